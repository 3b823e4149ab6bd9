package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

type fixture struct {
	users      *memory.UserStore
	ops        *memory.OperationStore
	ledger     *usecase.LedgerUseCase
	statements *usecase.StatementUseCase
}

func newFixture(t *testing.T, guard usecase.Guard, opts ...usecase.LedgerOption) *fixture {
	t.Helper()
	users, err := memory.NewUserStore(nil)
	require.NoError(t, err)
	ops, err := memory.NewOperationStore(users, nil)
	require.NoError(t, err)
	if guard == nil {
		guard = memory.NewMutexGuard()
	}
	return &fixture{
		users:      users,
		ops:        ops,
		ledger:     usecase.NewLedgerUseCase(users, ops, guard, opts...),
		statements: usecase.NewStatementUseCase(users, ops),
	}
}

func (f *fixture) addUser(t *testing.T) uuid.UUID {
	t.Helper()
	u, err := domain.NewUser("user", uuid.NewString()+"@example.com", "hash", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) balance(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	stmt, err := f.statements.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return stmt.BalanceString()
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingPublisher 記錄收到的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.OperationCommitted
	err    error
}

func (p *recordingPublisher) PublishOperationCommitted(_ context.Context, e *domain.OperationCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}
