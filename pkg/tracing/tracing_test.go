package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_InstallsProvider(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracer(ctx, "dm-concierge-test", "localhost:4318")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.NoError(t, Shutdown(ctx, tp))
}

func TestShutdown_Nil(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), nil))
}
