package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/pkg/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return stderrors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	retries := 0
	err := RetryWithCallback(context.Background(), fastPolicy(2), func() error {
		calls++
		return stderrors.New("still broken")
	}, func(attempt int, err error, nextDelay time.Duration) {
		retries++
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retries)
}

func TestRetry_StopsOnTypeMismatch(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return errors.ErrTypeMismatch
	})

	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnFatal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return NewFatalError(stderrors.New("bad"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CallbackSeesDelay(t *testing.T) {
	var delays []time.Duration
	err := RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		return stderrors.New("down")
	}, func(attempt int, err error, nextDelay time.Duration) {
		delays = append(delays, nextDelay)
	})

	require.Error(t, err)
	require.Len(t, delays, 2)
	for _, d := range delays {
		assert.LessOrEqual(t, d, 5*time.Millisecond)
	}
}

func TestPolicy_Merge(t *testing.T) {
	p := Policy{MaxAttempts: 7}.Merge(DefaultPolicy())

	assert.Equal(t, 7, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
	assert.Equal(t, 30*time.Second, p.MaxInterval)
	assert.Equal(t, 2.0, p.Multiplier)
}
