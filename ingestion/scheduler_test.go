package ingestion

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	release chan struct{}
	runs    atomic.Int32
}

func (r *blockingRunner) RunScheduled(ctx context.Context) (*RunSummary, error) {
	r.runs.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return &RunSummary{}, nil
}

func TestNewScheduler(t *testing.T) {
	_, err := NewScheduler(nil)
	assert.ErrorIs(t, err, ErrRunnerRequired)

	_, err = NewScheduler(&blockingRunner{}, WithInterval(0))
	assert.Error(t, err)
}

func TestScheduler_DropsOverlappingTrigger(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s, err := NewScheduler(runner)
	require.NoError(t, err)
	defer s.Release()

	ctx := context.Background()
	assert.True(t, s.Trigger(ctx))
	assert.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, time.Millisecond)

	assert.False(t, s.Trigger(ctx), "second trigger while the first is running")

	close(runner.release)
	s.Wait()
	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestScheduler_Run(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	close(runner.release)

	s, err := NewScheduler(runner, WithInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer s.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runner.runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
