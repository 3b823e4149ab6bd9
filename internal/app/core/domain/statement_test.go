package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOperation(t *testing.T, user uuid.UUID, opType OperationType, amount string, sender *uuid.UUID) *Operation {
	t.Helper()
	op, err := NewOperation(user, opType, decimal.RequireFromString(amount), "test", sender, time.Now())
	require.NoError(t, err)
	return op
}

func TestCalculateBalance(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	history := []*Operation{
		mustOperation(t, alice, OperationTypeDeposit, "100.00", nil),
		mustOperation(t, alice, OperationTypeWithdraw, "30.10", nil),
		mustOperation(t, bob, OperationTypeTransfer, "19.90", &alice),
		mustOperation(t, alice, OperationTypeTransfer, "5.00", &bob),
	}

	assert.Equal(t, "55.00", CalculateBalance(alice, history).StringFixed(2))
	assert.Equal(t, "14.90", CalculateBalance(bob, history).StringFixed(2))
	assert.True(t, CalculateBalance(uuid.New(), history).IsZero())
	assert.True(t, CalculateBalance(alice, nil).IsZero())
}

func TestStatement_Entries(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	deposit := mustOperation(t, alice, OperationTypeDeposit, "100", nil)
	sent := mustOperation(t, bob, OperationTypeTransfer, "40.5", &alice)

	stmt := NewStatement(alice, []*Operation{deposit, sent})
	assert.Equal(t, "59.50", stmt.BalanceString())

	entries := stmt.Entries()
	require.Len(t, entries, 2)

	assert.Equal(t, "100.00", entries[0].Amount)
	assert.Equal(t, DirectionCredit, entries[0].Direction)
	assert.Nil(t, entries[0].SenderID)

	assert.Equal(t, "40.50", entries[1].Amount)
	assert.Equal(t, DirectionDebit, entries[1].Direction)
	require.NotNil(t, entries[1].SenderID)
	assert.Equal(t, alice, *entries[1].SenderID)

	recipient := NewStatement(bob, []*Operation{sent})
	assert.Equal(t, DirectionCredit, recipient.Entries()[0].Direction)
	assert.Equal(t, "40.50", recipient.BalanceString())
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(" Alice ", " Alice@Example.COM ", "hash", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err = NewUser("", "a@b.c", "hash", time.Now())
	assert.ErrorIs(t, err, ErrInvalidUserInput)
}
