package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

// walUser WAL 中的使用者格式 (domain.User 不輸出密碼雜湊)
type walUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

// UserStore 記憶體版使用者儲存
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
	wal     *wal.WAL
}

// NewUserStore 建立使用者儲存，w 可為 nil
func NewUserStore(w *wal.WAL) (*UserStore, error) {
	s := &UserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
		wal:     w,
	}
	if w == nil {
		return s, nil
	}
	err := w.Replay(func(raw json.RawMessage) error {
		var rec walUser
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("recover user: %w", err)
		}
		user := rec.User
		user.PasswordHash = rec.PasswordHash
		s.byID[user.ID] = &user
		s.byEmail[user.Email] = &user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateUser Email 重複時回傳 domain.ErrEmailAlreadyExists
func (s *UserStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}
	if s.wal != nil {
		if err := s.wal.Append(walUser{User: *user, PasswordHash: user.PasswordHash}); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}
	u := *user
	s.byID[u.ID] = &u
	s.byEmail[u.Email] = &u
	return nil
}

// FindUserByID 找不到時回傳 (nil, nil)
func (s *UserStore) FindUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

// FindUserByEmail 找不到時回傳 (nil, nil)
func (s *UserStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

var _ usecase.UserStore = (*UserStore)(nil)
