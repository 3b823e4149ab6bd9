package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// ErrGuardStopped 核心迴圈已停止，不再接受請求
var ErrGuardStopped = errors.New("lmax guard stopped")

// guardRequest 包裝一次互斥區請求，Run 會等 result
type guardRequest struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// LMAXGuard 單一寫入者模式：所有互斥區都在同一個 goroutine 依序執行
//
// Run(等待) -> Channel -> run loop -> fn -> result channel -> Run(收到結果)
//
// 不分使用者，全部序列化，因此不需要任何鎖。
type LMAXGuard struct {
	requests chan *guardRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	done        chan struct{}
	startOnce   sync.Once
}

// NewLMAXGuard 建立 LMAXGuard，buffer 為輸送帶容量，必須呼叫 Start 才會開始處理
func NewLMAXGuard(buffer int) *LMAXGuard {
	if buffer <= 0 {
		buffer = 1000
	}
	return &LMAXGuard{
		requests: make(chan *guardRequest, buffer),
		requestPool: sync.Pool{
			New: func() any {
				return &guardRequest{result: make(chan error, 1)}
			},
		},
		done: make(chan struct{}),
	}
}

// Start 啟動核心迴圈 (非同步)，ctx 取消時會把輸送帶上剩下的請求處理完再停止
func (g *LMAXGuard) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		go g.run(ctx)
	})
}

// Done 核心迴圈停止後關閉
func (g *LMAXGuard) Done() <-chan struct{} {
	return g.done
}

// Run 把 fn 放上輸送帶並等待結果，userID 只用來符合 usecase.Guard
func (g *LMAXGuard) Run(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	req := g.requestPool.Get().(*guardRequest)
	req.ctx = ctx
	req.fn = fn
	select {
	case <-req.result:
	default:
	}

	select {
	case g.requests <- req:
	case <-ctx.Done():
		g.recycle(req)
		return ctx.Err()
	case <-g.done:
		g.recycle(req)
		return ErrGuardStopped
	}

	select {
	case err := <-req.result:
		g.recycle(req)
		return err
	case <-g.done:
		// 迴圈停止前處理過的請求結果一定已經寫入 result
		select {
		case err := <-req.result:
			g.recycle(req)
			return err
		default:
			// 請求留在輸送帶上沒被處理，不放回 Pool
			return ErrGuardStopped
		}
	}
}

func (g *LMAXGuard) recycle(req *guardRequest) {
	req.ctx = nil
	req.fn = nil
	g.requestPool.Put(req)
}

func (g *LMAXGuard) run(ctx context.Context) {
	defer close(g.done)
	for {
		select {
		case <-ctx.Done():
			g.drain()
			return
		case req := <-g.requests:
			g.process(req)
		}
	}
}

func (g *LMAXGuard) drain() {
	for {
		select {
		case req := <-g.requests:
			g.process(req)
		default:
			return
		}
	}
}

// process 請求在排隊時已取消就不執行
func (g *LMAXGuard) process(req *guardRequest) {
	if err := req.ctx.Err(); err != nil {
		req.result <- err
		return
	}
	req.result <- req.fn(req.ctx)
}

var _ usecase.Guard = (*LMAXGuard)(nil)
