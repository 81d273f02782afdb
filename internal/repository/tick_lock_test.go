package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerRejectsSecondHolder(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "tick", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "tick", time.Minute)
	assert.True(t, errors.Is(err, ErrLockHeld))

	_, err = locker.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = locker.Acquire(ctx, "tick", time.Minute)
	require.NoError(t, err)
}

func TestMemoryLockerExpiredLeaseCanBeTaken(t *testing.T) {
	locker := NewMemoryLocker()
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.clock = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "tick", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = locker.Acquire(ctx, "tick", time.Minute)
	require.NoError(t, err)

	// the stale holder must not free the new lease
	require.NoError(t, staleRelease(ctx))
	_, err = locker.Acquire(ctx, "tick", time.Minute)
	assert.True(t, errors.Is(err, ErrLockHeld))
}
