package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthorizationHeader 帶 token 的 metadata key
const AuthorizationHeader = "authorization"

type userIDKey struct{}

// TokenResolver 把 token 解析成使用者 ID
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (uuid.UUID, error)
}

// publicMethods 不需要登入的方法
var publicMethods = map[string]bool{
	FullMethod(MethodCreateUser):   true,
	FullMethod(MethodAuthenticate): true,
}

// ContextWithUserID 把已驗證的使用者 ID 放進 ctx
func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext 取出 AuthInterceptor 放入的使用者 ID
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return userID, ok
}

// AuthInterceptor 驗證 "authorization: Bearer <token>"，通過後把使用者 ID 放進 ctx
func AuthInterceptor(resolver TokenResolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token, err := bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		userID, err := resolver.ResolveToken(ctx, token)
		if err != nil {
			return nil, toStatus(err)
		}
		return handler(ContextWithUserID(ctx, userID), req)
	}
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get(AuthorizationHeader)
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}
	scheme, token, found := strings.Cut(values[0], " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", status.Error(codes.Unauthenticated, "malformed authorization header")
	}
	return strings.TrimSpace(token), nil
}

// LoggingInterceptor 記錄每個請求的方法、狀態碼與耗時
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Debug("rpc", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("rpc", append(fields, zap.Error(err))...)
		default:
			logger.Info("rpc", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
