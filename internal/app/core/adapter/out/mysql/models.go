package mysql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// sqlUser 對應資料庫的 users 表
type sqlUser struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name         string    `gorm:"size:255;not null"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (*sqlUser) TableName() string {
	return "users"
}

func newSQLUser(u *domain.User) *sqlUser {
	return &sqlUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (u *sqlUser) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// sqlOperation 對應資料庫的 statements 表
// Seq 自動遞增，作為建立順序；對外使用的是 ID (UUID)
type sqlOperation struct {
	Seq         uint64          `gorm:"primaryKey;autoIncrement"`
	ID          uuid.UUID       `gorm:"type:char(36);not null;uniqueIndex"`
	UserID      uuid.UUID       `gorm:"type:char(36);not null;index"`
	Type        string          `gorm:"type:enum('deposit','withdraw','transfer');not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"size:255;not null"`
	SenderID    *uuid.UUID      `gorm:"type:char(36);index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (*sqlOperation) TableName() string {
	return "statements"
}

func newSQLOperation(op *domain.Operation) *sqlOperation {
	return &sqlOperation{
		ID:          op.ID,
		UserID:      op.UserID,
		Type:        string(op.Type),
		Amount:      op.Amount,
		Description: op.Description,
		SenderID:    op.SenderID,
		CreatedAt:   op.CreatedAt,
		UpdatedAt:   op.UpdatedAt,
	}
}

func (o *sqlOperation) toDomain() *domain.Operation {
	return &domain.Operation{
		ID:          o.ID,
		UserID:      o.UserID,
		Type:        domain.OperationType(o.Type),
		Amount:      o.Amount,
		Description: o.Description,
		SenderID:    o.SenderID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// foreignKeys statements 對 users 的外鍵
var foreignKeys = []struct {
	name   string
	column string
}{
	{"fk_statements_user", "user_id"},
	{"fk_statements_sender", "sender_id"},
}

// Migrate 建立資料表與外鍵
func Migrate(client *mysql.Client) error {
	if err := client.AutoMigrate(&sqlUser{}, &sqlOperation{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	db := client.DB()
	for _, fk := range foreignKeys {
		if db.Migrator().HasConstraint(&sqlOperation{}, fk.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE statements ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES users(id) ON DELETE CASCADE ON UPDATE CASCADE", fk.name, fk.column)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", fk.name, err)
		}
	}
	return nil
}
