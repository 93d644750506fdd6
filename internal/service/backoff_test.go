package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastBackoff(maxWait time.Duration) Backoff {
	return Backoff{Initial: time.Millisecond, Max: 4 * time.Millisecond, Factor: 1.5, MaxWait: maxWait}
}

func TestBackoff_PollUntilDone(t *testing.T) {
	calls := 0
	err := fastBackoff(time.Second).Poll(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_TimesOut(t *testing.T) {
	err := fastBackoff(20*time.Millisecond).Poll(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrWatchTimeout)
}

func TestBackoff_StopsOnErrorAndCancel(t *testing.T) {
	boom := errors.New("boom")
	err := fastBackoff(time.Second).Poll(context.Background(), func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Backoff{Initial: time.Hour, Factor: 2, MaxWait: 2 * time.Hour}.Poll(ctx, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
