package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSampleRatio(t *testing.T) {
	assert.InDelta(t, 0.0, SampleRatio(-5), 0)
	assert.InDelta(t, 0.0, SampleRatio(0), 0)
	assert.InDelta(t, 0.25, SampleRatio(25), 1e-9)
	assert.InDelta(t, 1.0, SampleRatio(100), 0)
	assert.InDelta(t, 1.0, SampleRatio(150), 0)
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Service: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.False(t, span.SpanContext().IsSampled())
}
