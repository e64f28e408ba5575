package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestCounter(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	client := NewClientWithProvider(true, provider)
	client.Counter(t.Context(), "test.counter", 2, map[string]string{"kind": "a"})
	client.Counter(t.Context(), "test.counter", 3, map[string]string{"kind": "a"})

	metrics := collect(t, reader)
	m, ok := metrics["test.counter"]
	require.True(t, ok)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)
}

func TestCounterDisabled(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	client := NewClientWithProvider(false, provider)
	client.Counter(t.Context(), "test.counter", 1, nil)

	metrics := collect(t, reader)
	_, ok := metrics["test.counter"]
	assert.False(t, ok)
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	var client *Client
	client.Counter(t.Context(), "test.counter", 1, nil)
	client.RecordToolCall(t.Context(), "shell", time.Second, nil)
}

func TestRecordToolCall(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	client := NewClientWithProvider(true, provider)
	client.RecordToolCall(t.Context(), "shell", 250*time.Millisecond, nil)

	metrics := collect(t, reader)
	_, ok := metrics["agentrt.tool.call"]
	assert.True(t, ok)
	_, ok = metrics["agentrt.tool.duration"]
	assert.True(t, ok)
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	client := NewClient(false)
	ctx := WithClient(context.Background(), client)
	assert.Same(t, client, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
