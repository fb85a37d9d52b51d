package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/stats"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type occupancyRepository interface {
	OccupancySnapshot(ctx context.Context) (*models.OccupancySnapshot, error)
}

type occupancySubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// OccupancyService keeps a live view of library occupancy. It refreshes the
// snapshot whenever the attendance change feed fires and otherwise serves the
// last known value.
type OccupancyService struct {
	repo       occupancyRepository
	subscriber occupancySubscriber
	channel    string
	logger     *zap.Logger

	mu       sync.RWMutex
	snapshot models.OccupancySnapshot
	loadedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewOccupancyService constructs an OccupancyService instance.
func NewOccupancyService(repo occupancyRepository, subscriber occupancySubscriber, channel string, logger *zap.Logger) *OccupancyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "library.attendance.changed"
	}
	return &OccupancyService{repo: repo, subscriber: subscriber, channel: channel, logger: logger}
}

// Start primes the snapshot and begins listening on the change feed.
func (s *OccupancyService) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	if err := s.refresh(runCtx); err != nil {
		s.logger.Warn("initial occupancy load failed", zap.Error(err))
	}

	go s.listen(runCtx)
}

// Stop tears down the change feed listener.
func (s *OccupancyService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Status returns the current occupancy view. A stale or never-loaded snapshot
// triggers a synchronous refresh.
func (s *OccupancyService) Status(ctx context.Context) (*models.OccupancyView, error) {
	s.mu.RLock()
	loaded := !s.loadedAt.IsZero()
	snapshot := s.snapshot
	s.mu.RUnlock()

	if !loaded {
		if err := s.refresh(ctx); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load library status")
		}
		s.mu.RLock()
		snapshot = s.snapshot
		s.mu.RUnlock()
	}

	return &models.OccupancyView{
		OccupancySnapshot: snapshot,
		Percent:           stats.OccupancyPercent(snapshot.Occupied, snapshot.TotalSeats),
	}, nil
}

func (s *OccupancyService) refresh(ctx context.Context) error {
	snapshot, err := s.repo.OccupancySnapshot(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshot = *snapshot
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

func (s *OccupancyService) listen(ctx context.Context) {
	defer close(s.done)

	if s.subscriber == nil {
		<-ctx.Done()
		return
	}

	sub := s.subscriber.Subscribe(ctx, s.channel)
	defer sub.Close() //nolint:errcheck
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := s.refresh(ctx); err != nil {
				s.logger.Warn("occupancy refresh failed", zap.String("channel", msg.Channel), zap.Error(err))
			}
		}
	}
}
