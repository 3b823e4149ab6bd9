package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// InnoDB 會回滾整個交易的錯誤，重跑一次交易即可
const (
	errLockWaitTimeout uint16 = 1205
	errDeadlock        uint16 = 1213
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 20 * time.Millisecond
)

// RowLockGuard 悲觀鎖：開交易並以 SELECT ... FOR UPDATE 鎖住使用者那一列
//
// fn 收到的 ctx 帶有交易，store 透過 client.Conn(ctx) 在同一個交易內讀寫，
// 因此多個服務實例共用同一個資料庫時也不會超扣。
//
// 互相轉帳 (A->B 與 B->A 同時進行) 時，INSERT 的外鍵檢查會對收款方加共享鎖，
// InnoDB 可能判定死結並回滾其中一方；被回滾的交易會整個重跑。
type RowLockGuard struct {
	client   *mysql.Client
	attempts int
	backoff  time.Duration
}

// RowLockOption 設定 RowLockGuard 的選項
type RowLockOption func(*RowLockGuard)

// WithRetry 設定死結 / 鎖等待逾時的重試次數 (含第一次) 與每次重試的間隔
func WithRetry(attempts int, backoff time.Duration) RowLockOption {
	return func(g *RowLockGuard) {
		if attempts > 0 {
			g.attempts = attempts
		}
		g.backoff = backoff
	}
}

func NewRowLockGuard(client *mysql.Client, opts ...RowLockOption) *RowLockGuard {
	g := &RowLockGuard{
		client:   client,
		attempts: defaultRetryAttempts,
		backoff:  defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run 使用者不存在時不會鎖到任何一列，交給 fn 內的存在檢查回報錯誤
//
// 已經在外層交易中時不重試，由開啟交易的那一層處理。
func (g *RowLockGuard) Run(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	if mysql.InTransaction(ctx) {
		return g.runOnce(ctx, userID, fn)
	}

	var err error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		err = g.runOnce(ctx, userID, fn)
		if !isRetryable(err) || attempt == g.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (g *RowLockGuard) runOnce(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	var fnErr error
	err := g.client.Transaction(ctx, func(txCtx context.Context) error {
		var locked []sqlUser
		err := g.client.Conn(txCtx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", userID).
			Limit(1).
			Find(&locked).Error
		if err != nil {
			return fmt.Errorf("%w: lock user %s: %w", domain.ErrPersistence, userID, err)
		}
		fnErr = fn(txCtx)
		return fnErr
	})
	if err != nil && fnErr == nil && !errors.Is(err, domain.ErrPersistence) {
		// Begin 或 Commit 失敗
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return err
}

// isRetryable 死結或鎖等待逾時
func isRetryable(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == errDeadlock || mysqlErr.Number == errLockWaitTimeout
}

var _ usecase.Guard = (*RowLockGuard)(nil)
