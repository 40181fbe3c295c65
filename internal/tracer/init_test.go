package tracer

import (
	"context"
	"testing"

	"insightdocs-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown := InitTracer(context.Background(), Config{Enabled: false}, logger.NewNopLogger())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracerEnabledShutsDownCleanly(t *testing.T) {
	shutdown := InitTracer(context.Background(), Config{Enabled: true, Endpoint: "127.0.0.1:4318"}, logger.NewNopLogger())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
