package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/lock"
)

func newLocker(t *testing.T) lock.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
}

func TestWithLockSerializesHolders(t *testing.T) {
	locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var mu sync.Mutex
	var order []string
	firstInside := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		err := locker.WithLock(ctx, "draft:finalize:d1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstInside)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
	}()

	<-firstInside

	go func() {
		err := locker.WithLock(ctx, "draft:finalize:d1", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}()

	close(releaseFirst)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockReleasedOnError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	wantErr := context.DeadlineExceeded
	err := locker.WithLock(ctx, "draft:finalize:d2", time.Second, func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// the failed run must not leave the key behind
	reacquired := false
	err = locker.WithLock(ctx, "draft:finalize:d2", time.Second, func(context.Context) error {
		reacquired = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, reacquired)
}

func TestWithLockRequiresClient(t *testing.T) {
	var locker lock.Locker
	err := locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.Error(t, err)
}
