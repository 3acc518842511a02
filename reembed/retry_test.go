package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	errTemporary := errors.New("temporary error")

	tests := []struct {
		name         string
		maxAttempts  int
		failUntil    int // attempts that fail before success; -1 always fails
		wantAttempts int
		wantErr      error
	}{
		{name: "success first try", maxAttempts: 3, failUntil: 0, wantAttempts: 1},
		{name: "eventual success", maxAttempts: 5, failUntil: 2, wantAttempts: 3},
		{name: "all attempts fail", maxAttempts: 3, failUntil: -1, wantAttempts: 3, wantErr: errTemporary},
		{name: "zero attempts", maxAttempts: 0, failUntil: -1, wantAttempts: 0, wantErr: ErrInvalidMaxAttempts},
		{name: "negative attempts", maxAttempts: -1, failUntil: -1, wantAttempts: 0, wantErr: ErrInvalidMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := RetryWithBackoff(context.Background(), nil, tt.maxAttempts, time.Millisecond, func(context.Context) error {
				attempts++
				if tt.failUntil < 0 || attempts <= tt.failUntil {
					return errTemporary
				}
				return nil
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestRetryWithBackoff_Permanent(t *testing.T) {
	errFatal := errors.New("unauthorized")
	attempts := 0

	err := RetryWithBackoff(context.Background(), nil, 5, time.Millisecond, func(context.Context) error {
		attempts++
		return Permanent(errFatal)
	})
	assert.Same(t, errFatal, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := RetryWithBackoff(ctx, nil, 10, 10*time.Millisecond, func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	err := RetryWithBackoff(context.Background(), nil, 5, 10*time.Millisecond, func(context.Context) error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, delays, 3)

	assert.GreaterOrEqual(t, delays[0], 10*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, delays[2], 40*time.Millisecond)
}
