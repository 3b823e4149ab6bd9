package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// UserStore MySQL 版使用者儲存
type UserStore struct {
	client *mysql.Client
}

func NewUserStore(client *mysql.Client) *UserStore {
	return &UserStore{
		client: client,
	}
}

// CreateUser Email 唯一索引衝突時回傳 domain.ErrEmailAlreadyExists
func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.client.Conn(ctx).Create(newSQLUser(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailAlreadyExists
	}
	return err
}

// FindUserByID 找不到時回傳 (nil, nil)
func (s *UserStore) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindUserByEmail 找不到時回傳 (nil, nil)
func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (s *UserStore) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row sqlUser
	err := s.client.Conn(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

var _ usecase.UserStore = (*UserStore)(nil)
