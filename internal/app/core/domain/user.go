package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User 使用者 (由 Identity Provider 管理，帳本只引用 ID)
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser 建立使用者，passwordHash 必須是已經雜湊過的密碼
func NewUser(name, email, passwordHash string, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || passwordHash == "" {
		return nil, ErrInvalidUserInput
	}
	return &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail 統一 Email 格式 (去空白、小寫)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
