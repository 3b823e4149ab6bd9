package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務名稱
const ServiceName = "ledger.v1.LedgerService"

// protoFile 服務所在的檔案描述 (由 descriptor.go 註冊，供 reflection 查詢)
const protoFile = "ledger/v1/ledger.proto"

// 方法名稱
const (
	MethodCreateUser   = "CreateUser"
	MethodAuthenticate = "Authenticate"
	MethodProfile      = "Profile"
	MethodDeposit      = "Deposit"
	MethodWithdraw     = "Withdraw"
	MethodTransfer     = "Transfer"
	MethodGetBalance   = "GetBalance"
	MethodGetOperation = "GetOperation"
)

// FullMethod 回傳 "/ledger.v1.LedgerService/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerServiceServer 服務端介面，請求與回應都是 google.protobuf.Struct
type LedgerServiceServer interface {
	CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Authenticate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Profile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Deposit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Withdraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Transfer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetOperation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc LedgerService 的服務描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateUser, Handler: unaryHandler(MethodCreateUser, LedgerServiceServer.CreateUser)},
		{MethodName: MethodAuthenticate, Handler: unaryHandler(MethodAuthenticate, LedgerServiceServer.Authenticate)},
		{MethodName: MethodProfile, Handler: unaryHandler(MethodProfile, LedgerServiceServer.Profile)},
		{MethodName: MethodDeposit, Handler: unaryHandler(MethodDeposit, LedgerServiceServer.Deposit)},
		{MethodName: MethodWithdraw, Handler: unaryHandler(MethodWithdraw, LedgerServiceServer.Withdraw)},
		{MethodName: MethodTransfer, Handler: unaryHandler(MethodTransfer, LedgerServiceServer.Transfer)},
		{MethodName: MethodGetBalance, Handler: unaryHandler(MethodGetBalance, LedgerServiceServer.GetBalance)},
		{MethodName: MethodGetOperation, Handler: unaryHandler(MethodGetOperation, LedgerServiceServer.GetOperation)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(srv LedgerServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// unaryHandler 解碼請求並串接攔截器，與 protoc-gen-go-grpc 產生的 handler 相同流程
func unaryHandler(method string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerServiceClient 客戶端
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

func (c *LedgerServiceClient) CreateUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateUser, in, opts...)
}

func (c *LedgerServiceClient) Authenticate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAuthenticate, in, opts...)
}

func (c *LedgerServiceClient) Profile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProfile, in, opts...)
}

func (c *LedgerServiceClient) Deposit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeposit, in, opts...)
}

func (c *LedgerServiceClient) Withdraw(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodWithdraw, in, opts...)
}

func (c *LedgerServiceClient) Transfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodTransfer, in, opts...)
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetBalance, in, opts...)
}

func (c *LedgerServiceClient) GetOperation(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetOperation, in, opts...)
}

func (c *LedgerServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
