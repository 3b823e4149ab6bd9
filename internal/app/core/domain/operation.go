package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale 金額精度：小數點後 2 位
const AmountScale = 2

// MaxAmount 單筆金額上限 (不含)，對應 DECIMAL(12,2) 欄位的整數位數
var MaxAmount = decimal.New(1, 10)

// OperationType 交易類型 (封閉集合，新增類型時必須同步修改 LedgerUseCase 的驗證規則)
type OperationType string

const (
	// 存款
	OperationTypeDeposit OperationType = "deposit"
	// 提款
	OperationTypeWithdraw OperationType = "withdraw"
	// 轉帳
	OperationTypeTransfer OperationType = "transfer"
)

// Valid 檢查是否為已知的交易類型
func (t OperationType) Valid() bool {
	switch t {
	case OperationTypeDeposit, OperationTypeWithdraw, OperationTypeTransfer:
		return true
	}
	return false
}

// IsDebit 是否需要檢查扣款方餘額
func (t OperationType) IsDebit() bool {
	return t == OperationTypeWithdraw || t == OperationTypeTransfer
}

// Operation 一筆交易紀錄，建立後不可修改
//
// 轉帳只會存一筆紀錄：UserID 是收款方，SenderID 是付款方。
// 付款方的扣款在計算餘額時由 SenderID 推導出來。
type Operation struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Type        OperationType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SenderID    *uuid.UUID      `json:"sender_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewOperation 建立一筆新的交易紀錄並檢查所有不變量
//
// 參數:
//
//	userID: 紀錄擁有者 (轉帳時為收款方)
//	opType: 交易類型
//	amount: 金額 (> 0，最多兩位小數)
//	description: 描述 (必填)
//	senderID: 付款方，只有轉帳時可設定
//	now: 建立時間
//
// 回傳:
//
//	*Operation: 尚未寫入的交易紀錄
//	error: 驗證錯誤
func NewOperation(userID uuid.UUID, opType OperationType, amount decimal.Decimal, description string, senderID *uuid.UUID, now time.Time) (*Operation, error) {
	op := &Operation{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        opType,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		SenderID:    senderID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op, nil
}

// ValidateAmount 金額必須大於 0、小於 MaxAmount 且不超過兩位小數
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThanOrEqual(MaxAmount) {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return ErrInvalidAmount
	}
	return nil
}

// Validate 檢查紀錄是否符合不變量
func (o *Operation) Validate() error {
	if !o.Type.Valid() {
		return ErrInvalidOperationType
	}
	if err := ValidateAmount(o.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(o.Description) == "" {
		return ErrDescriptionRequired
	}
	switch o.Type {
	case OperationTypeTransfer:
		if o.SenderID == nil {
			return ErrInvalidOperationType
		}
		if *o.SenderID == o.UserID {
			return ErrSameAccount
		}
	default:
		if o.SenderID != nil {
			return ErrInvalidOperationType
		}
	}
	return nil
}

// DebitedUserID 回傳扣款方 (提款為本人，轉帳為付款方)，存款沒有扣款方
func (o *Operation) DebitedUserID() (uuid.UUID, bool) {
	switch o.Type {
	case OperationTypeWithdraw:
		return o.UserID, true
	case OperationTypeTransfer:
		return *o.SenderID, true
	}
	return uuid.Nil, false
}

// IsSentBy 該紀錄是否為 userID 轉出的轉帳
func (o *Operation) IsSentBy(userID uuid.UUID) bool {
	return o.Type == OperationTypeTransfer && o.SenderID != nil && *o.SenderID == userID
}

// Involves 該紀錄是否與 userID 有關 (擁有者或付款方)
func (o *Operation) Involves(userID uuid.UUID) bool {
	return o.UserID == userID || o.IsSentBy(userID)
}

// Contribution 回傳這筆紀錄對 userID 餘額的影響 (帶正負號)
func (o *Operation) Contribution(userID uuid.UUID) decimal.Decimal {
	switch {
	case o.UserID == userID && o.Type == OperationTypeWithdraw:
		return o.Amount.Neg()
	case o.UserID == userID:
		return o.Amount
	case o.IsSentBy(userID):
		return o.Amount.Neg()
	}
	return decimal.Zero
}
