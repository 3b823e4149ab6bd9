package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpc_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-statement-ledger/pkg/grpc"
	"github.com/JoeShih716/go-statement-ledger/pkg/logger"
)

// 壓測：兩個使用者，付款方存入固定金額後同時大量提款與轉帳，
// 最後檢查付款方餘額不為負，且 (付款方 + 收款方 + 成功提款總額) 等於存入金額
func main() {
	addr := flag.String("addr", "localhost:50051", "ledger gRPC address")
	total := flag.Int("n", 10000, "number of debit requests")
	concurrency := flag.Int("c", 100, "concurrent requests")
	seed := flag.String("seed", "1000.00", "initial deposit of the sender")
	amount := flag.String("amount", "0.37", "amount of each withdraw / transfer")
	flag.Parse()

	zapLogger, err := logger.New("info", true)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	pool := grpc.NewPool()
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		zapLogger.Fatal("did not connect", zap.Error(err))
	}
	c := grpc_adapter.NewLedgerServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	senderID, senderToken := signUp(ctx, c, "sender")
	recipientID, recipientToken := signUp(ctx, c, "recipient")
	zapLogger.Info("users ready", zap.String("sender", senderID), zap.String("recipient", recipientID))

	if _, err := c.Deposit(ctx, mustStruct(map[string]any{
		"amount": *seed, "description": "load test seed",
	}), grpc.WithBearerToken(senderToken)); err != nil {
		zapLogger.Fatal("seed deposit failed", zap.Error(err))
	}

	var ok, insufficient, failed, withdrawn atomic.Int64
	var wg sync.WaitGroup
	wg.Add(*total)
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *total; i++ {
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			var err error
			if idx%2 == 0 {
				_, err = c.Withdraw(ctx, mustStruct(map[string]any{
					"amount": *amount, "description": fmt.Sprintf("withdraw #%d", idx),
				}), grpc.WithBearerToken(senderToken))
			} else {
				_, err = c.Transfer(ctx, mustStruct(map[string]any{
					"recipient_id": recipientID, "amount": *amount, "description": fmt.Sprintf("transfer #%d", idx),
				}), grpc.WithBearerToken(senderToken))
			}

			switch status.Code(err) {
			case codes.OK:
				ok.Add(1)
				if idx%2 == 0 {
					withdrawn.Add(1)
				}
			case codes.FailedPrecondition:
				insufficient.Add(1)
			default:
				if failed.Add(1) <= 10 {
					zapLogger.Warn("request failed", zap.Int("idx", idx), zap.Error(err))
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	senderBalance := balance(ctx, c, senderToken)
	recipientBalance := balance(ctx, c, recipientToken)
	withdrawnTotal := decimal.RequireFromString(*amount).Mul(decimal.NewFromInt(withdrawn.Load()))
	conserved := senderBalance.Add(recipientBalance).Add(withdrawnTotal).Equal(decimal.RequireFromString(*seed))

	fmt.Printf("Completed %d requests in %v\n", *total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())
	fmt.Printf("ok=%d insufficient=%d failed=%d\n", ok.Load(), insufficient.Load(), failed.Load())
	fmt.Printf("sender=%s recipient=%s withdrawn=%s\n",
		senderBalance.StringFixed(2), recipientBalance.StringFixed(2), withdrawnTotal.StringFixed(2))

	if senderBalance.IsNegative() {
		zapLogger.Fatal("sender balance went negative", zap.String("balance", senderBalance.String()))
	}
	if !conserved {
		zapLogger.Fatal("balances do not add up to the seed deposit")
	}
	zapLogger.Info("balances are consistent")
}

// signUp 註冊一個隨機 Email 的使用者並登入，回傳使用者 ID 與 token
func signUp(ctx context.Context, c *grpc_adapter.LedgerServiceClient, name string) (string, string) {
	email := fmt.Sprintf("%s-%s@loadtest.local", name, uuid.NewString()[:8])
	password := uuid.NewString()

	user, err := c.CreateUser(ctx, mustStruct(map[string]any{
		"name": name, "email": email, "password": password,
	}))
	if err != nil {
		log.Fatalf("CreateUser %s failed: %v", name, err)
	}
	auth, err := c.Authenticate(ctx, mustStruct(map[string]any{
		"email": email, "password": password,
	}))
	if err != nil {
		log.Fatalf("Authenticate %s failed: %v", name, err)
	}
	return user.GetFields()["id"].GetStringValue(), auth.GetFields()["token"].GetStringValue()
}

func balance(ctx context.Context, c *grpc_adapter.LedgerServiceClient, token string) decimal.Decimal {
	resp, err := c.GetBalance(ctx, nil, grpc.WithBearerToken(token))
	if err != nil {
		log.Fatalf("GetBalance failed: %v", err)
	}
	return decimal.RequireFromString(resp.GetFields()["balance"].GetStringValue())
}

func mustStruct(m map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(m)
	if err != nil {
		panic(err)
	}
	return s
}
