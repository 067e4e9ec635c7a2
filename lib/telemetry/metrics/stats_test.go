package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/config/constants"
)

func TestLoadExporter(t *testing.T) {
	// Datadog should not be a NullMetricsProvider
	exporterKindToResultMap := map[constants.ExporterKind]bool{
		constants.Datadog:                 false,
		constants.ExporterKind("invalid"): true,
		"":                                true,
	}

	for kind, result := range exporterKindToResultMap {
		cfg := config.Config{
			Telemetry: config.Telemetry{
				Metrics: config.Metrics{
					Provider: kind,
					Settings: map[string]any{"url": "localhost:8125"},
				},
			},
		}

		client := LoadExporter(cfg)
		_, isNullMetricsProvider := client.(NullMetricsProvider)
		assert.Equal(t, result, isNullMetricsProvider, kind)
		assert.NoError(t, client.Flush())
	}
}
