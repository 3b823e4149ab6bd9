package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// UserLookup 查詢使用者是否存在 (Identity Provider)
type UserLookup interface {
	// FindUserByID 找不到時回傳 (nil, nil)
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserStore 使用者儲存 (註冊、登入用)
type UserStore interface {
	UserLookup
	// CreateUser Email 重複時回傳 domain.ErrEmailAlreadyExists
	CreateUser(ctx context.Context, user *domain.User) error
	// FindUserByEmail 找不到時回傳 (nil, nil)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// OperationStore 交易紀錄儲存，只能新增不能修改
type OperationStore interface {
	// Create 新增一筆紀錄 (單筆寫入，原子操作)
	Create(ctx context.Context, op *domain.Operation) error
	// FindByID 找不到時回傳 (nil, nil)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error)
	// FindAllByUserID 回傳 userID 為擁有者或付款方的所有紀錄，依建立順序排列
	FindAllByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Operation, error)
	// SumByUserID 回傳 userID 的帶號金額總和
	SumByUserID(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// Guard 以使用者為單位的互斥區，確保「檢查餘額 -> 寫入」之間不會被其他扣款插隊
type Guard interface {
	// Run 在 userID 的互斥區內執行 fn，fn 收到的 ctx 可能帶有交易 (row lock)
	Run(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error
}

// EventPublisher 發送交易完成事件
type EventPublisher interface {
	PublishOperationCommitted(ctx context.Context, event *domain.OperationCommitted) error
}

// TokenIssuer 簽發與驗證存取 token
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
	Verify(token string) (uuid.UUID, error)
}
