package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
)

func TestPatternDetectorRespectsMinBars(t *testing.T) {
	d := NewPatternDetector(&firingPattern{name: "needs10", minBars: 10})

	short := replayBars([]int{0}, 5)
	sig, err := d.Detect(context.Background(), "AAPL", "2024-03-11", 4, short)
	require.NoError(t, err)
	assert.Nil(t, sig)

	long := replayBars([]int{0}, 12)
	sig, err = d.Detect(context.Background(), "AAPL", "2024-03-11", 11, long)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "needs10", sig.Pattern)
}

func TestPatternDetectorRecoversPanics(t *testing.T) {
	d := NewPatternDetector(panickingPattern{})

	sig, err := d.Detect(context.Background(), "AAPL", "2024-03-11", 4, replayBars([]int{0}, 5))
	require.Error(t, err)
	assert.Nil(t, sig)
	assert.Contains(t, err.Error(), "panicked")
}

type captureExecutor struct {
	req domrepo.ScanRequest
	sig *models.Signal
	err error
}

func (c *captureExecutor) Execute(_ context.Context, req domrepo.ScanRequest) (*models.Signal, error) {
	c.req = req
	return c.sig, c.err
}

func TestScriptDetectorForwardsRequest(t *testing.T) {
	exec := &captureExecutor{sig: &models.Signal{Pattern: "external"}}
	d := NewScriptDetector(exec, 0)

	prefix := replayBars([]int{0}, 8)
	sig, err := d.Detect(context.Background(), "AAPL", "2024-03-11", 7, prefix)
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, "AAPL", exec.req.Ticker)
	assert.Equal(t, "2024-03-11", exec.req.Date)
	assert.Equal(t, 7, exec.req.Index)
	assert.Len(t, exec.req.Bars, 8)
	assert.Equal(t, DefaultScriptTimeout, exec.req.Timeout)
}
