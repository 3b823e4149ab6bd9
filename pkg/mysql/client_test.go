package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), gormConfig("silent"))
	require.NoError(t, err)
	return NewClientWithDB(db), mock
}

func TestConfig_DSNAndDefaults(t *testing.T) {
	cfg := Config{Host: "db", User: "ledger", Password: "pw", DBName: "ledger"}
	cfg.ApplyDefaults()

	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, 100, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, "ledger:pw@tcp(db:3306)/ledger?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}

func TestClient_TransactionCommitAndRollback(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	err := client.Transaction(context.Background(), func(ctx context.Context) error {
		// 巢狀呼叫沿用同一個交易
		return client.Transaction(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = client.Transaction(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
