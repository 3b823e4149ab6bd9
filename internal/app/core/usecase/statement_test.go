package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

func TestStatement_GetBalance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob := f.addUser(t), f.addUser(t)

	t.Run("empty history", func(t *testing.T) {
		stmt, err := f.statements.GetBalance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "0.00", stmt.BalanceString())
		assert.Empty(t, stmt.History)
	})

	_, err := f.ledger.Deposit(ctx, alice, amount("80.5"), "deposit")
	require.NoError(t, err)
	sent, err := f.ledger.Transfer(ctx, alice, bob, amount("30"), "dinner")
	require.NoError(t, err)

	t.Run("sender sees outgoing transfer", func(t *testing.T) {
		stmt, err := f.statements.GetBalance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "50.50", stmt.BalanceString())
		require.Len(t, stmt.History, 2)

		entries := stmt.Entries()
		assert.Equal(t, "80.50", entries[0].Amount)
		assert.Equal(t, domain.DirectionCredit, entries[0].Direction)
		assert.Nil(t, entries[0].SenderID)
		assert.Equal(t, sent.ID, entries[1].ID)
		assert.Equal(t, domain.DirectionDebit, entries[1].Direction)
		require.NotNil(t, entries[1].SenderID)
		assert.Equal(t, alice, *entries[1].SenderID)
	})

	t.Run("recipient sees incoming transfer", func(t *testing.T) {
		stmt, err := f.statements.GetBalance(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, "30.00", stmt.BalanceString())
		require.Len(t, stmt.History, 1)
		assert.Equal(t, domain.DirectionCredit, stmt.Entries()[0].Direction)
	})

	t.Run("reads are idempotent", func(t *testing.T) {
		first, err := f.statements.GetBalance(ctx, alice)
		require.NoError(t, err)
		second, err := f.statements.GetBalance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, first.BalanceString(), second.BalanceString())
		assert.Equal(t, first.Entries(), second.Entries())
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.statements.GetBalance(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestStatement_GetOperation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t), f.addUser(t), f.addUser(t)

	_, err := f.ledger.Deposit(ctx, alice, amount("10"), "deposit")
	require.NoError(t, err)
	op, err := f.ledger.Transfer(ctx, alice, bob, amount("10"), "gift")
	require.NoError(t, err)

	for _, reader := range []uuid.UUID{alice, bob} {
		got, err := f.statements.GetOperation(ctx, reader, op.ID)
		require.NoError(t, err)
		assert.Equal(t, op.ID, got.ID)
		assert.True(t, op.Amount.Equal(got.Amount))
	}

	_, err = f.statements.GetOperation(ctx, carol, op.ID)
	assert.ErrorIs(t, err, domain.ErrStatementNotFound)

	_, err = f.statements.GetOperation(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, domain.ErrStatementNotFound)

	_, err = f.statements.GetOperation(ctx, uuid.New(), op.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
