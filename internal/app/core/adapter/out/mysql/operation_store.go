package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// sumQuery 依照餘額的正負號規則加總
const sumQuery = `SELECT COALESCE(SUM(CASE
	WHEN user_id = ? AND type = 'withdraw' THEN -amount
	WHEN user_id = ? THEN amount
	WHEN sender_id = ? AND type = 'transfer' THEN -amount
	ELSE 0 END), 0) AS balance
FROM statements
WHERE user_id = ? OR sender_id = ?`

// OperationStore MySQL 版交易紀錄
type OperationStore struct {
	client *mysql.Client
}

func NewOperationStore(client *mysql.Client) *OperationStore {
	return &OperationStore{
		client: client,
	}
}

// Create 單筆 INSERT；擁有者不存在時由外鍵擋下
func (s *OperationStore) Create(ctx context.Context, op *domain.Operation) error {
	return s.client.Conn(ctx).Create(newSQLOperation(op)).Error
}

// FindByID 找不到時回傳 (nil, nil)
func (s *OperationStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operation, error) {
	var row sqlOperation
	err := s.client.Conn(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// FindAllByUserID 依 seq 排序，包含 userID 轉出的轉帳
func (s *OperationStore) FindAllByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Operation, error) {
	var rows []sqlOperation
	err := s.client.Conn(ctx).
		Where("user_id = ? OR sender_id = ?", userID, userID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ops := make([]*domain.Operation, 0, len(rows))
	for i := range rows {
		ops = append(ops, rows[i].toDomain())
	}
	return ops, nil
}

// SumByUserID 在資料庫端加總，不需要把歷史紀錄搬回來
func (s *OperationStore) SumByUserID(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := s.client.Conn(ctx).Raw(sumQuery, userID, userID, userID, userID, userID).Row()
	if err := row.Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

var _ usecase.OperationStore = (*OperationStore)(nil)
