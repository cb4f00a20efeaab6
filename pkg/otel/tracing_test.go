package otel

import (
	"context"
	"helixclips/pkg/config"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))

	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestInitEnabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = "localhost:4318"
	cfg.Tracing.Insecure = true
	cfg.Sentry.TracesSampleRate = 1

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
