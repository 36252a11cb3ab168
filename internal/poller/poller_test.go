package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(statuses ...string) (Getter[string], *int) {
	calls := 0
	return func(context.Context) (string, error) {
		i := min(calls, len(statuses)-1)
		calls++
		return statuses[i], nil
	}, &calls
}

func TestWaitUntil_Transition(t *testing.T) {
	t.Parallel()
	get, calls := sequence("BUILD", "BUILD", "ACTIVE")

	var seen []string
	status, err := WaitUntil(context.Background(), "vm-1", get, "BUILD", time.Second,
		WithInterval(time.Millisecond, 2*time.Millisecond),
		WithObserver(func(s string) { seen = append(seen, s) }))

	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", status)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []string{"BUILD", "BUILD", "ACTIVE"}, seen)
}

func TestWaitUntil_AlreadyDifferent(t *testing.T) {
	t.Parallel()
	get, calls := sequence("DELETED")

	status, err := WaitUntil(context.Background(), "vm-1", get, "ACTIVE", time.Second)

	require.NoError(t, err)
	assert.Equal(t, "DELETED", status)
	assert.Equal(t, 1, *calls)
}

func TestWaitUntil_Timeout(t *testing.T) {
	t.Parallel()
	get, _ := sequence("BUILD")

	status, err := WaitUntil(context.Background(), "vm-1", get, "BUILD", 20*time.Millisecond,
		WithInterval(time.Millisecond, 5*time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, "BUILD", status)
	assert.ErrorIs(t, err, ErrTimeout)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "vm-1", timeoutErr.ResourceID)
	assert.Equal(t, "BUILD", timeoutErr.Prior)
	assert.GreaterOrEqual(t, timeoutErr.Waited, 20*time.Millisecond)
}

func TestWaitUntil_GetterErrorIsNotTimeout(t *testing.T) {
	t.Parallel()
	remote := errors.New("compute API unavailable")
	get := func(context.Context) (string, error) { return "", remote }

	_, err := WaitUntil(context.Background(), "vm-1", Getter[string](get), "BUILD", time.Second)

	assert.ErrorIs(t, err, remote)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestWaitUntil_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	get := func(context.Context) (string, error) {
		cancel()
		return "BUILD", nil
	}

	_, err := WaitUntil(ctx, "vm-1", Getter[string](get), "BUILD", time.Minute,
		WithInterval(time.Second, time.Second))

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}
