package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// Outcome is the result label attached to recorded operations.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// CustomMetrics records the domain metrics of the configuration service.
type CustomMetrics interface {
	// RecordConfigChange counts a config revision bump.
	RecordConfigChange(ctx context.Context, reason types.ConfigChangedReason)

	// RecordServerConnection records an attempt to connect to an MCP server during a reload.
	RecordServerConnection(ctx context.Context, server string, transport types.McpServerTransport, outcome Outcome, elapsed time.Duration)

	// RecordOllamaModelListUpdate records a refresh of the Ollama model list.
	RecordOllamaModelListUpdate(ctx context.Context, outcome Outcome, models int)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns metrics that record nothing.
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordConfigChange(context.Context, types.ConfigChangedReason) {}

func (noopCustomMetrics) RecordServerConnection(context.Context, string, types.McpServerTransport, Outcome, time.Duration) {
}

func (noopCustomMetrics) RecordOllamaModelListUpdate(context.Context, Outcome, int) {}

type otelCustomMetrics struct {
	configChanges     metric.Int64Counter
	serverConnections metric.Int64Counter
	connectLatency    metric.Float64Histogram
	ollamaUpdates     metric.Int64Counter
	ollamaModels      metric.Int64Gauge
}

// NewOtelCustomMetrics creates the metric instruments on the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	configChanges, err := meter.Int64Counter(
		"nbi_config_changes_total",
		metric.WithDescription("Number of configuration revisions, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create config changes counter: %w", err)
	}

	serverConnections, err := meter.Int64Counter(
		"nbi_mcp_server_connections_total",
		metric.WithDescription("Number of MCP server connection attempts, by server and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create server connections counter: %w", err)
	}

	connectLatency, err := meter.Float64Histogram(
		"nbi_mcp_server_connect_duration_seconds",
		metric.WithDescription("Time taken to connect to an MCP server and list its tools and prompts"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connect latency histogram: %w", err)
	}

	ollamaUpdates, err := meter.Int64Counter(
		"nbi_ollama_model_list_updates_total",
		metric.WithDescription("Number of Ollama model list refreshes, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama updates counter: %w", err)
	}

	ollamaModels, err := meter.Int64Gauge(
		"nbi_ollama_models",
		metric.WithDescription("Number of models reported by Ollama on the last refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama models gauge: %w", err)
	}

	return &otelCustomMetrics{
		configChanges:     configChanges,
		serverConnections: serverConnections,
		connectLatency:    connectLatency,
		ollamaUpdates:     ollamaUpdates,
		ollamaModels:      ollamaModels,
	}, nil
}

func (m *otelCustomMetrics) RecordConfigChange(ctx context.Context, reason types.ConfigChangedReason) {
	m.configChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
}

func (m *otelCustomMetrics) RecordServerConnection(
	ctx context.Context,
	server string,
	transport types.McpServerTransport,
	outcome Outcome,
	elapsed time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("mcp_server", server),
		attribute.String("transport", string(transport)),
		attribute.String("outcome", string(outcome)),
	)
	m.serverConnections.Add(ctx, 1, attrs)
	m.connectLatency.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordOllamaModelListUpdate(ctx context.Context, outcome Outcome, models int) {
	m.ollamaUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	if outcome == OutcomeSuccess {
		m.ollamaModels.Record(ctx, int64(models))
	}
}
