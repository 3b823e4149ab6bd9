package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/in/grpc"
	kafka_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/internal/config"
	"github.com/JoeShih716/go-statement-ledger/pkg/logger"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
	"github.com/JoeShih716/go-statement-ledger/pkg/token"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config yaml")
	envFile := flag.String("env", "", "path to .env file (default ./.env)")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("server exited with error", zap.Error(err))
	}
	zapLogger.Info("Server exited")
}

// stores 選定的儲存層與關閉函式
type stores struct {
	users   usecase.UserStore
	ops     usecase.OperationStore
	client  *mysql.Client
	closers []func() error
}

func (s *stores) Close(log *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// 2. 儲存層
	st, err := newStores(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(log)

	// 3. 互斥區，LMAX 迴圈在 gRPC 停止後才停止並處理完剩下的請求
	guardCtx, stopGuard := context.WithCancel(context.Background())
	defer stopGuard()
	guard, guardDone, err := newGuard(guardCtx, cfg, st)
	if err != nil {
		return err
	}

	// 4. UseCase
	ledgerOpts := []usecase.LedgerOption{usecase.WithLogger(log.Named("ledger"))}
	if cfg.Kafka.Enabled() {
		publisher := kafka_adapter.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Async)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("failed to close kafka publisher", zap.Error(err))
			}
		}()
		ledgerOpts = append(ledgerOpts, usecase.WithEventPublisher(publisher))
		log.Info("Kafka publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	issuer, err := token.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	identityOpts := []usecase.IdentityOption{usecase.WithIdentityLogger(log.Named("identity"))}
	if cfg.Auth.BcryptCost > 0 {
		identityOpts = append(identityOpts, usecase.WithBcryptCost(cfg.Auth.BcryptCost))
	}

	identity := usecase.NewIdentityUseCase(st.users, issuer, identityOpts...)
	ledger := usecase.NewLedgerUseCase(st.users, st.ops, guard, ledgerOpts...)
	statements := usecase.NewStatementUseCase(st.users, st.ops)

	// 5. gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpc_adapter.LoggingInterceptor(log.Named("grpc")),
		grpc_adapter.AuthInterceptor(identity),
	))
	grpc_adapter.RegisterLedgerServiceServer(s, grpc_adapter.NewGrpcServer(identity, ledger, statements))
	if cfg.Server.Reflection {
		reflection.Register(s)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting gRPC server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Ledger.Store),
			zap.String("guard", cfg.Ledger.Guard),
		)
		serveErr <- s.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	// Graceful Shutdown
	log.Info("Shutting down server...")
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("graceful stop timed out, forcing stop")
		s.Stop()
	}

	stopGuard()
	if guardDone != nil {
		<-guardDone
	}
	return nil
}

func newStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	st := &stores{}
	switch cfg.Ledger.Store {
	case config.StoreMySQL:
		client, err := mysql.NewClient(cfg.MySQL, log.Named("mysql"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		st.closers = append(st.closers, client.Close)
		if err := mysql_adapter.Migrate(client); err != nil {
			st.Close(log)
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("Connected to MySQL successfully")
		st.client = client
		st.users = mysql_adapter.NewUserStore(client)
		st.ops = mysql_adapter.NewOperationStore(client)
		return st, nil

	case config.StoreMemory:
		var usersWAL, opsWAL *wal.WAL
		if dir := cfg.Ledger.WALDir; dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create wal dir: %w", err)
			}
			var err error
			if usersWAL, err = wal.Open(filepath.Join(dir, "users.wal")); err != nil {
				return nil, err
			}
			st.closers = append(st.closers, usersWAL.Close)
			if opsWAL, err = wal.Open(filepath.Join(dir, "operations.wal")); err != nil {
				st.Close(log)
				return nil, err
			}
			st.closers = append(st.closers, opsWAL.Close)
		}

		users, err := memory_adapter.NewUserStore(usersWAL)
		if err != nil {
			st.Close(log)
			return nil, fmt.Errorf("failed to recover users: %w", err)
		}
		ops, err := memory_adapter.NewOperationStore(users, opsWAL)
		if err != nil {
			st.Close(log)
			return nil, fmt.Errorf("failed to recover operations: %w", err)
		}
		log.Info("Memory store ready", zap.Int("operations", ops.Len()), zap.String("wal_dir", cfg.Ledger.WALDir))
		st.users = users
		st.ops = ops
		return st, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Ledger.Store)
}

// newGuard 回傳互斥區，LMAX 另外回傳迴圈結束的 channel
func newGuard(ctx context.Context, cfg *config.Config, st *stores) (usecase.Guard, <-chan struct{}, error) {
	switch cfg.Ledger.Guard {
	case config.GuardMutex:
		return memory_adapter.NewMutexGuard(), nil, nil
	case config.GuardLMAX:
		g := memory_adapter.NewLMAXGuard(cfg.Ledger.LMAXBuffer)
		g.Start(ctx)
		return g, g.Done(), nil
	case config.GuardRowLock:
		if st.client == nil {
			return nil, nil, errors.New("row_lock guard requires the mysql store")
		}
		return mysql_adapter.NewRowLockGuard(st.client), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown guard %q", cfg.Ledger.Guard)
}
