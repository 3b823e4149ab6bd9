package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// userLock 單一使用者的鎖，以容量 1 的 channel 實作，等待時可被 ctx 取消
type userLock struct {
	ch   chan struct{}
	refs int
}

// MutexGuard 以使用者 ID 為 key 的互斥鎖
//
// 不同使用者的交易可以並行，同一使用者的「檢查餘額 -> 寫入」一次只有一個在執行。
// 沒有人持有或等待的鎖會被移除，避免 map 無限成長。
type MutexGuard struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

func NewMutexGuard() *MutexGuard {
	return &MutexGuard{
		locks: make(map[uuid.UUID]*userLock),
	}
}

// Run 取得 userID 的鎖後執行 fn；ctx 在取得鎖之前取消則直接回傳 ctx.Err()
func (g *MutexGuard) Run(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	l := g.acquire(userID)
	defer g.release(userID, l)

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.ch }()

	return fn(ctx)
}

func (g *MutexGuard) acquire(userID uuid.UUID) *userLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[userID]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		g.locks[userID] = l
	}
	l.refs++
	return l
}

func (g *MutexGuard) release(userID uuid.UUID, l *userLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, userID)
	}
}

// size 目前存在的鎖數量 (測試用)
func (g *MutexGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

var _ usecase.Guard = (*MutexGuard)(nil)
