package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// 儲存層
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// 互斥區實作
const (
	GuardMutex   = "mutex"
	GuardLMAX    = "lmax"
	GuardRowLock = "row_lock"
)

// Config 服務設定 (config/config.yaml)
type Config struct {
	Server ServerConfig `yaml:"server"`
	MySQL  mysql.Config `yaml:"mysql"`
	Ledger LedgerConfig `yaml:"ledger"`
	Auth   AuthConfig   `yaml:"auth"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Reflection      bool          `yaml:"reflection"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LedgerConfig struct {
	// Store "memory" 或 "mysql"
	Store string `yaml:"store"`
	// Guard "mutex"、"lmax" 或 "row_lock" (只能搭配 mysql)
	Guard string `yaml:"guard"`
	// WALDir memory store 的 WAL 目錄，空字串表示不落地
	WALDir     string `yaml:"wal_dir"`
	LMAXBuffer int    `yaml:"lmax_buffer"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// KafkaConfig 沒有設定 broker 時不發送事件
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Async   bool     `yaml:"async"`
}

// Enabled 是否啟用事件發送
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load 讀取設定
//
// 順序: yaml -> .env (存在才載入) -> LEDGER_* 環境變數覆蓋 -> 預設值 -> 檢查
//
// 參數:
//
//	path: yaml 路徑，空字串時只使用環境變數與預設值
//	envFile: .env 路徑，空字串時使用目前目錄的 .env
func Load(path, envFile string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	envFiles := []string{}
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("LEDGER_SERVER_ADDR", &c.Server.Addr)
	setString("LEDGER_MYSQL_HOST", &c.MySQL.Host)
	setString("LEDGER_MYSQL_USER", &c.MySQL.User)
	setString("LEDGER_MYSQL_PASSWORD", &c.MySQL.Password)
	setString("LEDGER_MYSQL_DB", &c.MySQL.DBName)
	setString("LEDGER_STORE", &c.Ledger.Store)
	setString("LEDGER_GUARD", &c.Ledger.Guard)
	setString("LEDGER_WAL_DIR", &c.Ledger.WALDir)
	setString("LEDGER_JWT_SECRET", &c.Auth.JWTSecret)
	setString("LEDGER_KAFKA_TOPIC", &c.Kafka.Topic)
	setString("LEDGER_LOG_LEVEL", &c.Log.Level)

	if v, ok := os.LookupEnv("LEDGER_MYSQL_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_MYSQL_PORT %q: %w", v, err)
		}
		c.MySQL.Port = port
	}
	if v, ok := os.LookupEnv("LEDGER_KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = nil
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, broker)
			}
		}
	}
	return nil
}

// ApplyDefaults 補全沒有設定的欄位
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":50051"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Ledger.Store == "" {
		c.Ledger.Store = StoreMemory
	}
	if c.Ledger.Guard == "" {
		c.Ledger.Guard = GuardMutex
	}
	if c.Ledger.LMAXBuffer == 0 {
		c.Ledger.LMAXBuffer = 1000
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "go-statement-ledger"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.MySQL.ApplyDefaults()
}

// Validate 檢查設定組合是否合法
func (c *Config) Validate() error {
	switch c.Ledger.Store {
	case StoreMemory, StoreMySQL:
	default:
		return fmt.Errorf("unknown ledger.store %q", c.Ledger.Store)
	}
	switch c.Ledger.Guard {
	case GuardMutex, GuardLMAX:
	case GuardRowLock:
		if c.Ledger.Store != StoreMySQL {
			return fmt.Errorf("ledger.guard %q requires ledger.store %q", GuardRowLock, StoreMySQL)
		}
	default:
		return fmt.Errorf("unknown ledger.guard %q", c.Ledger.Guard)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}
