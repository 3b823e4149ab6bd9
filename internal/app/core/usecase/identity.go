package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// IdentityUseCase 使用者註冊、登入、token 解析
type IdentityUseCase struct {
	users      UserStore
	tokens     TokenIssuer
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// IdentityOption 設定 IdentityUseCase 的選項
type IdentityOption func(*IdentityUseCase)

// WithBcryptCost 設定密碼雜湊成本 (測試可用 bcrypt.MinCost 加速)
func WithBcryptCost(cost int) IdentityOption {
	return func(i *IdentityUseCase) {
		i.bcryptCost = cost
	}
}

// WithIdentityLogger 設定 logger
func WithIdentityLogger(logger *zap.Logger) IdentityOption {
	return func(i *IdentityUseCase) {
		i.logger = logger
	}
}

func NewIdentityUseCase(users UserStore, tokens TokenIssuer, opts ...IdentityOption) *IdentityUseCase {
	i := &IdentityUseCase{
		users:      users,
		tokens:     tokens,
		logger:     zap.NewNop(),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Register 註冊新使用者
func (i *IdentityUseCase) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if password == "" {
		return nil, domain.ErrInvalidUserInput
	}
	existing, err := i.users.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), i.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		// bcrypt 只接受 72 bytes 以內的密碼
		return nil, domain.ErrInvalidUserInput
	}
	if err != nil {
		return nil, err
	}
	user, err := domain.NewUser(name, email, string(hash), i.now())
	if err != nil {
		return nil, err
	}
	if err := i.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, wrapPersistence(err)
	}
	i.logger.Info("user registered", zap.Stringer("user_id", user.ID))
	return user, nil
}

// Authenticate 以 Email 與密碼登入，成功回傳 token
//
// 找不到 Email 與密碼錯誤回傳同一個錯誤，避免洩漏帳號是否存在
func (i *IdentityUseCase) Authenticate(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := i.users.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return "", nil, wrapPersistence(err)
	}
	if user == nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := i.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Profile 取得使用者資料
func (i *IdentityUseCase) Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := i.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// ResolveToken 解析 token 取得使用者 ID
func (i *IdentityUseCase) ResolveToken(_ context.Context, token string) (uuid.UUID, error) {
	userID, err := i.tokens.Verify(token)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return userID, nil
}
