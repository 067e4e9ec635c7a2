package metrics

import (
	"log/slog"

	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/telemetry/metrics/base"
	"github.com/artie-labs/starsync/lib/telemetry/metrics/datadog"
)

// LoadExporter falls back to [NullMetricsProvider] when no provider is configured or the client cannot be created.
func LoadExporter(cfg config.Config) base.Client {
	kind := cfg.Telemetry.Metrics.Provider
	switch kind {
	case constants.Datadog:
		statsClient, err := datadog.NewDatadogClient(cfg.Telemetry.Metrics.Settings, map[string]string{
			"warehouse": string(cfg.Warehouse),
			"dataset":   cfg.Pipeline.Dataset,
		})
		if err != nil {
			slog.Error("Metrics client error", slog.Any("err", err), slog.Any("provider", kind))
		} else {
			slog.Info("Metrics client loaded", slog.Any("provider", kind))
			return statsClient
		}
	case "":
		slog.Debug("No metrics provider configured, skipping...")
	default:
		slog.Info("Invalid exporter kind passed in, skipping...", slog.Any("exporterKind", kind))
	}

	return NullMetricsProvider{}
}
