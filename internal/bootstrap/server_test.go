package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/Domenick1991/busbooking/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestCheckReadiness(t *testing.T) {
	var readyErr error
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: ":0"}}
	s := NewServers(cfg, http.NotFoundHandler(), func(context.Context) error { return readyErr }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	s.checkReadiness(ctx)
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	readyErr = errors.New("db down")
	s.checkReadiness(ctx)
	resp, err = s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}
	s := NewServers(cfg, http.NotFoundHandler(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Run(ctx, "127.0.0.1:0"))
}
