package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// assertSerialized 同一使用者的互斥區不可重疊
func assertSerialized(t *testing.T, guard usecase.Guard) {
	t.Helper()
	userID := uuid.New()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := guard.Run(context.Background(), userID, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestMutexGuard_SerializesSameUser(t *testing.T) {
	g := NewMutexGuard()
	assertSerialized(t, g)
	assert.Equal(t, 0, g.size())
}

func TestMutexGuard_DifferentUsersRunConcurrently(t *testing.T) {
	g := NewMutexGuard()
	holding := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = g.Run(context.Background(), uuid.New(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	done := make(chan error, 1)
	go func() {
		done <- g.Run(context.Background(), uuid.New(), func(context.Context) error { return nil })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("other user blocked by unrelated lock")
	}
	close(release)
}

func TestMutexGuard_CancelWhileWaiting(t *testing.T) {
	g := NewMutexGuard()
	userID := uuid.New()
	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = g.Run(context.Background(), userID, func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := g.Run(ctx, userID, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	close(release)
}

func TestLMAXGuard_Serializes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := NewLMAXGuard(16)
	g.Start(ctx)
	assertSerialized(t, g)
}

func TestLMAXGuard_StopDrainsAndRejects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewLMAXGuard(16)
	g.Start(ctx)

	var count int32
	require.NoError(t, g.Run(context.Background(), uuid.New(), func(context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	}))

	cancel()
	<-g.Done()

	err := g.Run(context.Background(), uuid.New(), func(context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	assert.ErrorIs(t, err, ErrGuardStopped)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestLMAXGuard_SkipsCancelledRequest(t *testing.T) {
	g := NewLMAXGuard(16)
	reqCtx, cancelReq := context.WithCancel(context.Background())

	ran := int32(0)
	done := make(chan error, 1)
	go func() {
		done <- g.Run(reqCtx, uuid.New(), func(context.Context) error {
			atomic.StoreInt32(&ran, 1)
			return nil
		})
	}()

	// 請求已排上輸送帶，但核心迴圈尚未啟動
	require.Eventually(t, func() bool { return len(g.requests) == 1 }, time.Second, time.Millisecond)
	cancelReq()

	loopCtx, stop := context.WithCancel(context.Background())
	defer stop()
	g.Start(loopCtx)

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}
