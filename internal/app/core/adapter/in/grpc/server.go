package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// GrpcServer LedgerService 的實作 (Driving Adapter)
//
// 呼叫者身分一律取自 AuthInterceptor 放入 ctx 的使用者 ID，請求內容不能指定付款方。
type GrpcServer struct {
	identity   *usecase.IdentityUseCase
	ledger     *usecase.LedgerUseCase
	statements *usecase.StatementUseCase
}

func NewGrpcServer(identity *usecase.IdentityUseCase, ledger *usecase.LedgerUseCase, statements *usecase.StatementUseCase) *GrpcServer {
	return &GrpcServer{
		identity:   identity,
		ledger:     ledger,
		statements: statements,
	}
}

// CreateUser {name, email, password} -> user
func (s *GrpcServer) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	user, err := s.identity.Register(ctx, stringField(in, "name"), stringField(in, "email"), stringField(in, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(userMap(user))
}

// Authenticate {email, password} -> {token, user}
func (s *GrpcServer) Authenticate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	token, user, err := s.identity.Authenticate(ctx, stringField(in, "email"), stringField(in, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"token": token,
		"user":  userMap(user),
	})
}

// Profile {} -> user
func (s *GrpcServer) Profile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.identity.Profile(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(userMap(user))
}

// Deposit {amount, description} -> operation
func (s *GrpcServer) Deposit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.submit(ctx, in, domain.OperationTypeDeposit)
}

// Withdraw {amount, description} -> operation
func (s *GrpcServer) Withdraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.submit(ctx, in, domain.OperationTypeWithdraw)
}

// Transfer {recipient_id, amount, description} -> operation
func (s *GrpcServer) Transfer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.submit(ctx, in, domain.OperationTypeTransfer)
}

func (s *GrpcServer) submit(ctx context.Context, in *structpb.Struct, opType domain.OperationType) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := amountField(in, "amount")
	if err != nil {
		return nil, toStatus(err)
	}
	cmd := usecase.SubmitCommand{
		RequestingUserID: userID,
		Type:             opType,
		Amount:           amount,
		Description:      stringField(in, "description"),
	}
	if opType == domain.OperationTypeTransfer {
		if cmd.TargetUserID, err = uuidField(in, "recipient_id"); err != nil {
			return nil, err
		}
	}

	op, err := s.ledger.Submit(ctx, cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(operationMap(op))
}

// GetBalance {} -> {user_id, balance, history}
func (s *GrpcServer) GetBalance(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := s.statements.GetBalance(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	history := make([]any, 0, len(stmt.History))
	for _, entry := range stmt.Entries() {
		item := map[string]any{
			"id":          entry.ID.String(),
			"type":        string(entry.Type),
			"amount":      entry.Amount,
			"description": entry.Description,
			"direction":   string(entry.Direction),
			"created_at":  entry.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updated_at":  entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
		if entry.SenderID != nil {
			item["sender_id"] = entry.SenderID.String()
		}
		history = append(history, item)
	}
	return newStruct(map[string]any{
		"user_id": stmt.UserID.String(),
		"balance": stmt.BalanceString(),
		"history": history,
	})
}

// GetOperation {operation_id} -> operation
func (s *GrpcServer) GetOperation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	operationID, err := uuidField(in, "operation_id")
	if err != nil {
		return nil, err
	}
	op, err := s.statements.GetOperation(ctx, userID, operationID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(operationMap(op))
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return userID, nil
}

func stringField(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func uuidField(in *structpb.Struct, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(in, key))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s", key)
	}
	return id, nil
}

// amountField 金額以字串傳遞 ("12.34")，也接受數字
func amountField(in *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		amount, err := decimal.NewFromString(kind.StringValue)
		if err != nil {
			return decimal.Zero, domain.ErrInvalidAmount
		}
		return amount, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	}
	return decimal.Zero, domain.ErrInvalidAmount
}

func userMap(user *domain.User) map[string]any {
	return map[string]any{
		"id":         user.ID.String(),
		"name":       user.Name,
		"email":      user.Email,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func operationMap(op *domain.Operation) map[string]any {
	m := map[string]any{
		"id":          op.ID.String(),
		"user_id":     op.UserID.String(),
		"type":        string(op.Type),
		"amount":      op.Amount.StringFixed(domain.AmountScale),
		"description": op.Description,
		"created_at":  op.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  op.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if op.SenderID != nil {
		m["sender_id"] = op.SenderID.String()
	}
	return m
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
