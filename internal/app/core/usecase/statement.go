package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// StatementUseCase 查詢餘額與交易紀錄
type StatementUseCase struct {
	users UserLookup
	ops   OperationStore
}

func NewStatementUseCase(users UserLookup, ops OperationStore) *StatementUseCase {
	return &StatementUseCase{
		users: users,
		ops:   ops,
	}
}

// GetBalance 取得餘額與完整歷史 (包含自己轉出的轉帳)，餘額每次都由完整歷史重新計算
func (s *StatementUseCase) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Statement, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	history, err := s.ops.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	return domain.NewStatement(userID, history), nil
}

// GetOperation 取得單筆紀錄，只有擁有者或付款方可以查詢，其他人視為不存在
func (s *StatementUseCase) GetOperation(ctx context.Context, userID, operationID uuid.UUID) (*domain.Operation, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	op, err := s.ops.FindByID(ctx, operationID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if op == nil || !op.Involves(userID) {
		return nil, domain.ErrStatementNotFound
	}
	return op, nil
}

func (s *StatementUseCase) requireUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return wrapPersistence(err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	return nil
}
