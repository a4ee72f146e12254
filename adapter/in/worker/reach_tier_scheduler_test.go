package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"reach_server/core/port/in"
	"reach_server/core/service/tier"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecomputer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRecomputer) RecomputeAll(ctx context.Context) (*in.RecomputeSummary, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &in.RecomputeSummary{Creators: 2, Changed: 1}, nil
}

func TestNewTierRecomputeScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewTierRecomputeScheduler(&countingRecomputer{}, "every now and then", zerolog.Nop())
	assert.Error(t, err)

	for _, schedule := range []string{"@every 6h", "0 */6 * * *", "@daily"} {
		s, err := NewTierRecomputeScheduler(&countingRecomputer{}, schedule, zerolog.Nop())
		require.NoError(t, err, schedule)
		s.Stop()
	}
}

func TestRunOnce(t *testing.T) {
	rec := &countingRecomputer{}
	s, err := NewTierRecomputeScheduler(rec, "@every 6h", zerolog.Nop())
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), rec.calls.Load())

	rec.err = tier.ErrRecomputeRunning
	assert.NoError(t, s.RunOnce(context.Background()))

	rec.err = errors.New("db down")
	assert.Error(t, s.RunOnce(context.Background()))
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	rec := &countingRecomputer{}
	s, err := NewTierRecomputeScheduler(rec, "@every 1s", zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
