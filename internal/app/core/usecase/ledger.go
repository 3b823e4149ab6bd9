package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// SubmitCommand 一次交易請求
type SubmitCommand struct {
	// RequestingUserID 已通過驗證的呼叫者；轉帳時一定是付款方
	RequestingUserID uuid.UUID
	Type             domain.OperationType
	Amount           decimal.Decimal
	Description      string
	// TargetUserID 只有轉帳使用 (收款方)
	TargetUserID uuid.UUID
}

// LedgerUseCase 帳本核心：驗證並寫入存款、提款、轉帳
type LedgerUseCase struct {
	users  UserLookup
	ops    OperationStore
	guard  Guard
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// LedgerOption 設定 LedgerUseCase 的選項
type LedgerOption func(*LedgerUseCase)

// WithEventPublisher 設定交易完成後的事件發送器
func WithEventPublisher(p EventPublisher) LedgerOption {
	return func(l *LedgerUseCase) {
		l.events = p
	}
}

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) LedgerOption {
	return func(l *LedgerUseCase) {
		l.logger = logger
	}
}

// WithClock 設定時間來源 (測試用)
func WithClock(now func() time.Time) LedgerOption {
	return func(l *LedgerUseCase) {
		l.now = now
	}
}

// NewLedgerUseCase 建立帳本核心
//
// 參數:
//
//	users: 使用者查詢
//	ops: 交易紀錄儲存
//	guard: 以使用者為單位的互斥區
//	opts: 選項
func NewLedgerUseCase(users UserLookup, ops OperationStore, guard Guard, opts ...LedgerOption) *LedgerUseCase {
	l := &LedgerUseCase{
		users:  users,
		ops:    ops,
		guard:  guard,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deposit 存款
func (l *LedgerUseCase) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*domain.Operation, error) {
	return l.Submit(ctx, SubmitCommand{
		RequestingUserID: userID,
		Type:             domain.OperationTypeDeposit,
		Amount:           amount,
		Description:      description,
	})
}

// Withdraw 提款
func (l *LedgerUseCase) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*domain.Operation, error) {
	return l.Submit(ctx, SubmitCommand{
		RequestingUserID: userID,
		Type:             domain.OperationTypeWithdraw,
		Amount:           amount,
		Description:      description,
	})
}

// Transfer 由 senderID 轉帳給 recipientID
func (l *LedgerUseCase) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, description string) (*domain.Operation, error) {
	return l.Submit(ctx, SubmitCommand{
		RequestingUserID: senderID,
		Type:             domain.OperationTypeTransfer,
		Amount:           amount,
		Description:      description,
		TargetUserID:     recipientID,
	})
}

// Submit 驗證並寫入一筆交易
//
// 流程: 欄位驗證 (無 I/O) -> 進入扣款方互斥區 -> 檢查使用者 -> 檢查餘額 -> 寫入單筆紀錄
//
// 回傳:
//
//	*domain.Operation: 寫入成功的紀錄
//	error: domain.ErrInvalidAmount, domain.ErrUserNotFound, domain.ErrInsufficientFunds, domain.ErrPersistence ...
func (l *LedgerUseCase) Submit(ctx context.Context, cmd SubmitCommand) (*domain.Operation, error) {
	// 1. 決定紀錄擁有者：轉帳時擁有者是收款方，呼叫者是付款方
	ownerID := cmd.RequestingUserID
	var senderID *uuid.UUID
	if cmd.Type == domain.OperationTypeTransfer {
		ownerID = cmd.TargetUserID
		sender := cmd.RequestingUserID
		senderID = &sender
	}

	op, err := domain.NewOperation(ownerID, cmd.Type, cmd.Amount, cmd.Description, senderID, l.now())
	if err != nil {
		return nil, err
	}

	// 2. 互斥區以呼叫者為 key (提款、轉帳時即為扣款方)
	err = l.guard.Run(ctx, cmd.RequestingUserID, func(ctx context.Context) error {
		return l.commit(ctx, op)
	})
	if err != nil {
		l.logger.Debug("operation rejected",
			zap.String("type", string(op.Type)),
			zap.Stringer("requester", cmd.RequestingUserID),
			zap.Error(err),
		)
		return nil, err
	}

	l.logger.Info("operation committed",
		zap.Stringer("operation_id", op.ID),
		zap.String("type", string(op.Type)),
		zap.Stringer("user_id", op.UserID),
		zap.String("amount", op.Amount.StringFixed(domain.AmountScale)),
	)
	l.publish(ctx, op)
	return op, nil
}

// commit 在互斥區內執行：檢查使用者、檢查餘額、寫入
func (l *LedgerUseCase) commit(ctx context.Context, op *domain.Operation) error {
	if err := l.requireUser(ctx, op.UserID); err != nil {
		return err
	}
	debitedID, isDebit := op.DebitedUserID()
	if isDebit && op.Type == domain.OperationTypeTransfer {
		if err := l.requireUser(ctx, debitedID); err != nil {
			return err
		}
	}

	if isDebit {
		balance, err := l.ops.SumByUserID(ctx, debitedID)
		if err != nil {
			return wrapPersistence(err)
		}
		// balance == amount 可以扣款，只有 balance < amount 才算不足
		if balance.LessThan(op.Amount) {
			return domain.ErrInsufficientFunds
		}
	}

	// 寫入前若請求已取消，直接放棄，不留下任何紀錄
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.ops.Create(ctx, op); err != nil {
		return wrapPersistence(err)
	}
	return nil
}

func (l *LedgerUseCase) requireUser(ctx context.Context, userID uuid.UUID) error {
	user, err := l.users.FindUserByID(ctx, userID)
	if err != nil {
		return wrapPersistence(err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	return nil
}

// publish 發送事件 (best effort，失敗只記 log)
func (l *LedgerUseCase) publish(ctx context.Context, op *domain.Operation) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishOperationCommitted(ctx, domain.NewOperationCommitted(op)); err != nil {
		l.logger.Warn("failed to publish operation committed event",
			zap.Stringer("operation_id", op.ID),
			zap.Error(err),
		)
	}
}

// wrapPersistence 把儲存層錯誤包成 domain.ErrPersistence，domain 錯誤與 context 錯誤原樣回傳
func wrapPersistence(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrPersistence),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}
