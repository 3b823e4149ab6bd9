package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestPool_ReusesConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	b, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := p.GetConnection("localhost:50052")
	require.NoError(t, err)
	assert.NotSame(t, a, other)
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestPool_WithInterceptor(t *testing.T) {
	noop := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(ctx, method, req, reply, cc, opts...)
	}
	p := NewPool(WithInterceptor(noop), WithInterceptor(noop))
	defer p.Close()
	assert.Len(t, p.interceptors, 2)

	_, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
}

func TestBearerToken(t *testing.T) {
	md, err := bearerToken("abc").GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", md["authorization"])
	assert.False(t, bearerToken("abc").RequireTransportSecurity())
}
