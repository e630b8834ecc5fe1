package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
)

type recordingSink struct {
	name      string
	delivered []*models.Signal
	err       error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Deliver(_ context.Context, s *models.Signal) error {
	r.delivered = append(r.delivered, s)
	return r.err
}

func TestDispatchFansOutToEnabledSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}

	d := NewAlertDispatcher(nil)
	d.AddSink(a)
	d.AddSink(b)
	d.DisableSink("b")

	d.Dispatch(context.Background(), sig("AAPL", "gap_up"))

	require.Len(t, a.delivered, 1)
	assert.Empty(t, b.delivered)

	d.EnableSink("b")
	d.Dispatch(context.Background(), sig("AAPL", "gap_up"))
	assert.Len(t, a.delivered, 2)
	assert.Len(t, b.delivered, 1)
}

func TestDispatchSinkErrorDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("broker down")}
	good := &recordingSink{name: "good"}

	d := NewAlertDispatcher(nil)
	d.AddSink(bad)
	d.AddSink(good)

	d.Dispatch(context.Background(), sig("AAPL", "gap_up"))

	assert.Len(t, bad.delivered, 1)
	assert.Len(t, good.delivered, 1)
}

func TestDispatchFilter(t *testing.T) {
	s := &recordingSink{name: "s"}
	d := NewAlertDispatcher(nil, WithFilter(AlertFilter{
		MinConfidence: 70,
		Patterns:      []string{"gap_up"},
		Tickers:       []string{"AAPL"},
	}))
	d.AddSink(s)

	ctx := context.Background()

	d.Dispatch(ctx, sig("AAPL", "gap_up")) // confidence 80, allowed
	require.Len(t, s.delivered, 1)

	low := sig("AAPL", "gap_up")
	low.Confidence = 60
	d.Dispatch(ctx, low)
	assert.Len(t, s.delivered, 1)

	d.Dispatch(ctx, sig("AAPL", "volume_surge"))
	assert.Len(t, s.delivered, 1)

	d.Dispatch(ctx, sig("MSFT", "gap_up"))
	assert.Len(t, s.delivered, 1)
}

func TestAddSinkReplacesDuplicateName(t *testing.T) {
	v1 := &recordingSink{name: "console"}
	v2 := &recordingSink{name: "console"}

	d := NewAlertDispatcher(nil)
	d.AddSink(v1)
	d.AddSink(v2)

	d.Dispatch(context.Background(), sig("AAPL", "gap_up"))

	assert.Empty(t, v1.delivered)
	assert.Len(t, v2.delivered, 1)
}
