package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction 紀錄相對於查詢者的方向
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// CalculateBalance 依照完整歷史紀錄計算餘額 (不做任何快取)
func CalculateBalance(userID uuid.UUID, history []*Operation) decimal.Decimal {
	balance := decimal.Zero
	for _, op := range history {
		balance = balance.Add(op.Contribution(userID))
	}
	return balance
}

// Statement 使用者的餘額與歷史紀錄
type Statement struct {
	UserID  uuid.UUID
	Balance decimal.Decimal
	History []*Operation
}

// NewStatement 以歷史紀錄建立 Statement，餘額由 CalculateBalance 推導
func NewStatement(userID uuid.UUID, history []*Operation) *Statement {
	return &Statement{
		UserID:  userID,
		Balance: CalculateBalance(userID, history),
		History: history,
	}
}

// StatementEntry 對外輸出的單筆紀錄
//
// 只有轉帳會帶 SenderID；金額固定輸出兩位小數。
type StatementEntry struct {
	ID          uuid.UUID     `json:"id"`
	Type        OperationType `json:"type"`
	Amount      string        `json:"amount"`
	Description string        `json:"description"`
	Direction   Direction     `json:"direction"`
	SenderID    *uuid.UUID    `json:"sender_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Entries 依查詢者視角轉換歷史紀錄
func (s *Statement) Entries() []StatementEntry {
	entries := make([]StatementEntry, 0, len(s.History))
	for _, op := range s.History {
		entry := StatementEntry{
			ID:          op.ID,
			Type:        op.Type,
			Amount:      op.Amount.StringFixed(AmountScale),
			Description: op.Description,
			Direction:   DirectionCredit,
			CreatedAt:   op.CreatedAt,
			UpdatedAt:   op.UpdatedAt,
		}
		if op.Contribution(s.UserID).IsNegative() {
			entry.Direction = DirectionDebit
		}
		if op.Type == OperationTypeTransfer {
			sender := *op.SenderID
			entry.SenderID = &sender
		}
		entries = append(entries, entry)
	}
	return entries
}

// BalanceString 餘額固定兩位小數
func (s *Statement) BalanceString() string {
	return s.Balance.StringFixed(AmountScale)
}

// OperationCommitted 交易寫入成功後發出的事件
type OperationCommitted struct {
	OperationID uuid.UUID       `json:"operation_id"`
	UserID      uuid.UUID       `json:"user_id"`
	SenderID    *uuid.UUID      `json:"sender_id,omitempty"`
	Type        OperationType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewOperationCommitted 由交易紀錄建立事件
func NewOperationCommitted(op *Operation) *OperationCommitted {
	return &OperationCommitted{
		OperationID: op.ID,
		UserID:      op.UserID,
		SenderID:    op.SenderID,
		Type:        op.Type,
		Amount:      op.Amount,
		OccurredAt:  op.CreatedAt,
	}
}
