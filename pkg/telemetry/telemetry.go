// Package telemetry provides best-effort usage counters for the runtime.
// Emission failures are logged and swallowed; telemetry must never change the
// outcome of the work it observes.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/vvoland/agentrt"

// Client records runtime counters through an OpenTelemetry meter.
type Client struct {
	meter   metric.Meter
	enabled bool

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewClient creates a telemetry client on the global meter provider. A
// disabled client records nothing but is still safe to call.
func NewClient(enabled bool) *Client {
	return NewClientWithProvider(enabled, otel.GetMeterProvider())
}

// NewClientWithProvider creates a telemetry client on a specific meter
// provider.
func NewClientWithProvider(enabled bool, provider metric.MeterProvider) *Client {
	return &Client{
		meter:      provider.Meter(meterName),
		enabled:    enabled,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// Counter adds delta to the named counter with the given tags. Fire and
// forget: instrument-creation errors are logged at debug and dropped.
func (c *Client) Counter(ctx context.Context, name string, delta int64, tags map[string]string) {
	if c == nil || !c.enabled {
		return
	}

	counter, err := c.counter(name)
	if err != nil {
		slog.Debug("Failed to create telemetry counter", "name", name, "error", err)
		return
	}

	counter.Add(ctx, delta, metric.WithAttributes(attrs(tags)...))
}

// RecordToolCall records one tool invocation with its duration and outcome.
func (c *Client) RecordToolCall(ctx context.Context, toolName string, duration time.Duration, err error) {
	if c == nil || !c.enabled {
		return
	}

	c.Counter(ctx, "agentrt.tool.call", 1, map[string]string{
		"tool":    toolName,
		"success": boolTag(err == nil),
	})

	histogram, histErr := c.histogram("agentrt.tool.duration")
	if histErr != nil {
		slog.Debug("Failed to create telemetry histogram", "name", "agentrt.tool.duration", "error", histErr)
		return
	}
	histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", toolName),
	))
}

func (c *Client) counter(name string) (metric.Int64Counter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[name]; ok {
		return counter, nil
	}
	counter, err := c.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	c.counters[name] = counter
	return counter, nil
}

func (c *Client) histogram(name string) (metric.Float64Histogram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.histograms[name]; ok {
		return histogram, nil
	}
	histogram, err := c.meter.Float64Histogram(name, metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	c.histograms[name] = histogram
	return histogram, nil
}

func attrs(tags map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(tags))
	for k, v := range tags {
		out = append(out, attribute.String(k, v))
	}
	return out
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
