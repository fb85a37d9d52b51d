package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "job-1/report.xlsx")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	jobID, relPath, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "job-1/report.xlsx", relPath)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "job-1/report.xlsx")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[3] = strings.Repeat("0", len(parts[3]))
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.Error(t, err)
}

func TestSignedURLWrongSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("secret-a", time.Hour).Generate("job-1", "file.csv")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("secret-b", time.Hour).Parse(token, false)
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)
	token, _, err := signer.Generate("job-1", "file.csv")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	// Cleanup paths still need the metadata after expiry.
	jobID, _, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
}
