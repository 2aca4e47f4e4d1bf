package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthServer_Refresh(t *testing.T) {
	var redisErr error
	deps := map[string]Pinger{
		"mongodb": pingFunc(func(context.Context) error { return nil }),
		"redis":   pingFunc(func(context.Context) error { return redisErr }),
	}
	s := NewHealthServer(&config.GRPCConfig{}, "storefront", deps, zap.NewNop())
	ctx := context.Background()

	st, err := s.Check(ctx, "storefront")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st, "not serving before the first refresh")

	assert.True(t, s.Refresh(ctx))
	st, err = s.Check(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	redisErr = errors.New("connection refused")
	assert.False(t, s.Refresh(ctx))
	st, err = s.Check(ctx, "storefront")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}

func TestHealthServer_UnknownService(t *testing.T) {
	s := NewHealthServer(&config.GRPCConfig{}, "storefront", nil, zap.NewNop())

	_, err := s.Check(context.Background(), "inventory")
	assert.Equal(t, codes.NotFound, status.Code(err))
}
