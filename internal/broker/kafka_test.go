package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func failingTimes(n int, err error, calls *int) MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		*calls++
		if *calls <= n {
			return err
		}
		return nil
	}
}

func TestRetryPolicyRetriesTransientFailures(t *testing.T) {
	calls := 0
	handle := fastRetry.Wrap(failingTimes(1, errors.New("db down"), &calls))

	require.NoError(t, handle(context.Background(), kafka.Message{Offset: 7}))
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("db down")
	handle := fastRetry.Wrap(failingTimes(10, wantErr, &calls))

	err := handle(context.Background(), kafka.Message{Offset: 7})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyDropsMalformedMessages(t *testing.T) {
	calls := 0
	handle := fastRetry.Wrap(failingTimes(10, ErrMalformedMessage, &calls))

	assert.NoError(t, handle(context.Background(), kafka.Message{Offset: 7}))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := RetryPolicy{MaxAttempts: 5, Backoff: time.Hour}

	calls := 0
	handle := slow.Wrap(func(ctx context.Context, msg kafka.Message) error {
		calls++
		cancel()
		return errors.New("db down")
	})

	err := handle(ctx, kafka.Message{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
