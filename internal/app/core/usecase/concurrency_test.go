package usecase_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// guards 兩種記憶體互斥區實作都要通過相同的併發測試
func guards(t *testing.T) map[string]func() usecase.Guard {
	return map[string]func() usecase.Guard{
		"mutex": func() usecase.Guard { return memory.NewMutexGuard() },
		"lmax": func() usecase.Guard {
			ctx, cancel := context.WithCancel(context.Background())
			g := memory.NewLMAXGuard(64)
			g.Start(ctx)
			t.Cleanup(func() {
				cancel()
				<-g.Done()
			})
			return g
		},
	}
}

func TestLedger_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	for name, newGuard := range guards(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newGuard())
			ctx := context.Background()
			user := f.addUser(t)
			_, err := f.ledger.Deposit(ctx, user, amount("100"), "deposit")
			require.NoError(t, err)

			const workers = 50
			var ok, insufficient atomic.Int32
			var wg sync.WaitGroup
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					_, err := f.ledger.Withdraw(ctx, user, amount("10"), "withdraw")
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, domain.ErrInsufficientFunds):
						insufficient.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.EqualValues(t, 10, ok.Load())
			assert.EqualValues(t, workers-10, insufficient.Load())
			assert.Equal(t, "0.00", f.balance(t, user))
		})
	}
}

func TestLedger_ConcurrentTransfersConserveTotal(t *testing.T) {
	for name, newGuard := range guards(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newGuard())
			ctx := context.Background()

			users := make([]uuid.UUID, 5)
			for i := range users {
				users[i] = f.addUser(t)
				_, err := f.ledger.Deposit(ctx, users[i], amount("20"), "seed")
				require.NoError(t, err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					from := users[i%len(users)]
					to := users[(i*7+1)%len(users)]
					if from == to {
						to = users[(i+1)%len(users)]
					}
					_, err := f.ledger.Transfer(ctx, from, to, amount("3.33"), "shuffle")
					if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
						t.Errorf("unexpected error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			total := decimal.Zero
			for _, u := range users {
				stmt, err := f.statements.GetBalance(ctx, u)
				require.NoError(t, err)
				assert.False(t, stmt.Balance.IsNegative(), "user %s went negative", u)
				total = total.Add(stmt.Balance)
			}
			assert.Equal(t, "100.00", total.StringFixed(domain.AmountScale))
		})
	}
}

// TestLedger_RandomInterleavings 隨機交錯存款、提款、轉帳，任何時刻餘額都不能為負，
// 且餘額必須等於成功交易的帶號總和
func TestLedger_RandomInterleavings(t *testing.T) {
	for name, newGuard := range guards(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, newGuard())
			ctx := context.Background()
			users := []uuid.UUID{f.addUser(t), f.addUser(t), f.addUser(t)}

			var mu sync.Mutex
			expected := map[uuid.UUID]decimal.Decimal{}

			var wg sync.WaitGroup
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(seed int64) {
					defer wg.Done()
					rng := rand.New(rand.NewSource(seed))
					for i := 0; i < 50; i++ {
						u := users[rng.Intn(len(users))]
						amt := decimal.New(int64(rng.Intn(5000)+1), -2)
						var op *domain.Operation
						var err error
						switch rng.Intn(3) {
						case 0:
							op, err = f.ledger.Deposit(ctx, u, amt, "d")
						case 1:
							op, err = f.ledger.Withdraw(ctx, u, amt, "w")
						default:
							to := users[(rng.Intn(len(users)-1)+1+indexOf(users, u))%len(users)]
							op, err = f.ledger.Transfer(ctx, u, to, amt, "t")
						}
						if err != nil {
							if !errors.Is(err, domain.ErrInsufficientFunds) {
								t.Errorf("unexpected error: %v", err)
							}
							continue
						}
						mu.Lock()
						for _, id := range users {
							expected[id] = expected[id].Add(op.Contribution(id))
						}
						mu.Unlock()

						stmt, err := f.statements.GetBalance(ctx, u)
						if err != nil {
							t.Errorf("get balance: %v", err)
							continue
						}
						if stmt.Balance.IsNegative() {
							t.Errorf("negative balance %s for %s", stmt.BalanceString(), u)
						}
					}
				}(int64(w + 1))
			}
			wg.Wait()

			for _, u := range users {
				stmt, err := f.statements.GetBalance(ctx, u)
				require.NoError(t, err)
				assert.True(t, expected[u].Equal(stmt.Balance), "user %s: want %s got %s", u, expected[u], stmt.Balance)
			}
		})
	}
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
