package models

import "time"

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	FormatXLSX ReportFormat = "xlsx"
	FormatPDF  ReportFormat = "pdf"
	FormatCSV  ReportFormat = "csv"
)

// ReportRow is one flattened attendance line: the record joined to its
// owner's display identity.
type ReportRow struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Duration    string `json:"duration"`
	Date        string `json:"date"`
}

// ReportJobStatus tracks queued export generation.
type ReportJobStatus string

const (
	ReportJobQueued    ReportJobStatus = "queued"
	ReportJobRunning   ReportJobStatus = "running"
	ReportJobCompleted ReportJobStatus = "completed"
	ReportJobFailed    ReportJobStatus = "failed"
)

// ReportJob is an asynchronous export request and its outcome.
type ReportJob struct {
	ID          string          `json:"id"`
	Format      ReportFormat    `json:"format"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Status      ReportJobStatus `json:"status"`
	FilePath    string          `json:"-"`
	DownloadURL string          `json:"download_url,omitempty"`
	Error       string          `json:"error,omitempty"`
	RequestedBy string          `json:"requested_by"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ReportRequest describes an export over a date range.
type ReportRequest struct {
	From   time.Time
	To     time.Time
	Format ReportFormat
}
