package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

// ErrForeignKey 紀錄擁有者或付款方不存在 (模擬資料庫的外鍵限制)
var ErrForeignKey = errors.New("foreign key constraint: user does not exist")

// OperationStore 記憶體版交易紀錄，可選擇以 WAL 持久化
//
// 結構:
//
//	operations: 依寫入順序排列的所有紀錄
//	byID: ID 索引
//	byUser: 使用者索引 (擁有者與付款方都會建立索引)
//	users: 外鍵檢查用，可為 nil
//	wal: Write-Ahead Log，可為 nil
type OperationStore struct {
	mu         sync.RWMutex
	operations []*domain.Operation
	byID       map[uuid.UUID]*domain.Operation
	byUser     map[uuid.UUID][]*domain.Operation
	users      *UserStore
	wal        *wal.WAL
}

// NewOperationStore 建立記憶體交易紀錄，若有 WAL 會先重放恢復資料
//
// 參數:
//
//	users: 外鍵檢查用的使用者儲存 (nil 則不檢查)
//	w: Write-Ahead Log (nil 則只存在記憶體)
//
// 回傳:
//
//	*OperationStore: 實例
//	error: WAL 恢復失敗
func NewOperationStore(users *UserStore, w *wal.WAL) (*OperationStore, error) {
	s := &OperationStore{
		byID:   make(map[uuid.UUID]*domain.Operation),
		byUser: make(map[uuid.UUID][]*domain.Operation),
		users:  users,
		wal:    w,
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverFromWAL 只在建構時呼叫 (單執行緒)，不寫回 WAL
func (s *OperationStore) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Replay(func(raw json.RawMessage) error {
		var op domain.Operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return fmt.Errorf("recover operation: %w", err)
		}
		if _, ok := s.byID[op.ID]; ok {
			return nil
		}
		s.index(&op)
		return nil
	})
}

// Create 新增一筆紀錄: 外鍵檢查 -> 寫入 WAL -> 更新記憶體
func (s *OperationStore) Create(ctx context.Context, op *domain.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	if err := s.checkForeignKeys(ctx, op); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[op.ID]; ok {
		return fmt.Errorf("duplicate operation id %s", op.ID)
	}
	if s.wal != nil {
		if err := s.wal.Append(op); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}
	s.index(cloneOperation(op))
	return nil
}

func (s *OperationStore) checkForeignKeys(ctx context.Context, op *domain.Operation) error {
	if s.users == nil {
		return nil
	}
	ids := []uuid.UUID{op.UserID}
	if op.SenderID != nil {
		ids = append(ids, *op.SenderID)
	}
	for _, id := range ids {
		user, err := s.users.FindUserByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrForeignKey
		}
	}
	return nil
}

// index 呼叫前需持有寫鎖 (或處於建構階段)
func (s *OperationStore) index(op *domain.Operation) {
	s.operations = append(s.operations, op)
	s.byID[op.ID] = op
	s.byUser[op.UserID] = append(s.byUser[op.UserID], op)
	if op.SenderID != nil {
		s.byUser[*op.SenderID] = append(s.byUser[*op.SenderID], op)
	}
}

// FindByID 找不到時回傳 (nil, nil)
func (s *OperationStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneOperation(op), nil
}

// FindAllByUserID 依寫入順序回傳與 userID 有關的紀錄
func (s *OperationStore) FindAllByUserID(_ context.Context, userID uuid.UUID) ([]*domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ops := s.byUser[userID]
	result := make([]*domain.Operation, 0, len(ops))
	for _, op := range ops {
		result = append(result, cloneOperation(op))
	}
	return result, nil
}

// SumByUserID 不複製紀錄，直接在讀鎖內加總
func (s *OperationStore) SumByUserID(_ context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CalculateBalance(userID, s.byUser[userID]), nil
}

// Len 紀錄總數
func (s *OperationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.operations)
}

func cloneOperation(op *domain.Operation) *domain.Operation {
	c := *op
	if op.SenderID != nil {
		sender := *op.SenderID
		c.SenderID = &sender
	}
	return &c
}

var _ usecase.OperationStore = (*OperationStore)(nil)
