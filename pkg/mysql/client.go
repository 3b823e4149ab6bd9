package mysql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// txKey context 中存放交易 (*gorm.DB) 的 key
type txKey struct{}

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// NewClient 建立 MySQL 客戶端，連線失敗會依設定重試
//
// 參數:
//
//	cfg: Config - MySQL 連線配置
//	log: 用來記錄重試過程
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 重試次數用完仍連不上
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	var db *gorm.DB
	var err error
	for i := 0; i < cfg.ConnectRetries; i++ {
		db, err = gorm.Open(mysql.Open(cfg.DSN()), gormConfig(cfg.LogLevel))
		if err == nil {
			err = ping(db)
		}
		if err == nil {
			break
		}
		if i < cfg.ConnectRetries-1 {
			log.Warn("failed to connect to mysql, retrying",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", cfg.ConnectRetries),
				zap.Duration("retry_in", cfg.RetryInterval),
				zap.Error(err),
			)
			time.Sleep(cfg.RetryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", cfg.ConnectRetries, err)
	}

	// 連線池參數，避免連線耗盡
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Client{db: db}, nil
}

// NewClientWithDB 以既有的 *gorm.DB 建立客戶端 (測試用 sqlmock)
func NewClientWithDB(db *gorm.DB) *Client {
	return &Client{db: db}
}

func gormConfig(level string) *gorm.Config {
	return &gorm.Config{
		// 單筆寫入本身就是原子操作，需要交易時由 Transaction 明確開啟
		SkipDefaultTransaction: true,
		// 把 duplicate key 等錯誤轉成 gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         newLogger(level),
	}
}

func ping(db *gorm.DB) error {
	rawDB, err := db.DB()
	if err != nil {
		return err
	}
	return rawDB.Ping()
}

// Conn 回傳 ctx 中的交易，沒有交易時回傳一般連線
func (c *Client) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return c.db.WithContext(ctx)
}

// InTransaction ctx 是否已帶有 Transaction 開啟的交易
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// Transaction 在交易中執行 fn，fn 內透過 Conn(ctx) 取得同一個交易
// 已經在交易中時直接沿用，不開巢狀交易
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// AutoMigrate 建立或更新資料表
func (c *Client) AutoMigrate(models ...any) error {
	return c.db.AutoMigrate(models...)
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger 根據配置建立 GORM Logger
func newLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error // 預設只記錄錯誤
	}
	return logger.Default.LogMode(logLevel)
}

// DB 回傳底層的 *gorm.DB 實例 (migration 用)
func (c *Client) DB() *gorm.DB {
	return c.db
}
