package datadog

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/artie-labs/starsync/lib/telemetry/metrics/base"
)

// Keys read from `telemetry.metrics.settings`.
const (
	Tags      = "tags"
	Sampling  = "sampling"
	Namespace = "namespace"
	Addr      = "addr"
)

const (
	DefaultSampleRate = 1
	DefaultNamespace  = "starsync."
	DefaultAddr       = "127.0.0.1:8125"

	// addrEnvVar takes precedence over [Addr], so the agent address can be injected by the runtime.
	addrEnvVar = "STARSYNC_STATSD_ADDR"
)

type clientSettings struct {
	addr      string
	namespace string
	tags      []string
	rate      float64
}

func parseSettings(settings map[string]any, constantTags map[string]string) clientSettings {
	parsed := clientSettings{
		addr:      DefaultAddr,
		namespace: DefaultNamespace,
		rate:      DefaultSampleRate,
		tags:      append(getTags(settings[Tags]), toDatadogTags(constantTags)...),
	}

	if value, ok := settings[Addr]; ok {
		parsed.addr = fmt.Sprint(value)
	}

	if addr := os.Getenv(addrEnvVar); addr != "" {
		parsed.addr = addr
	}

	if value, ok := settings[Namespace]; ok {
		parsed.namespace = fmt.Sprint(value)
	}

	if value, ok := settings[Sampling]; ok {
		parsed.rate = getSampleRate(value)
	}

	return parsed
}

// getSampleRate returns [DefaultSampleRate] unless [val] parses to a rate within (0, 1].
func getSampleRate(val any) float64 {
	floatVal, err := strconv.ParseFloat(fmt.Sprint(val), 64)
	if err != nil || floatVal > 1 || floatVal <= 0 {
		return DefaultSampleRate
	}
	return floatVal
}

// NewDatadogClient sends metrics to a statsd agent. [constantTags] are attached to every metric, on top of the configured tags.
func NewDatadogClient(settings map[string]any, constantTags map[string]string) (base.Client, error) {
	parsed := parseSettings(settings, constantTags)
	client, err := statsd.New(parsed.addr,
		statsd.WithNamespace(parsed.namespace),
		statsd.WithTags(parsed.tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client for %q: %w", parsed.addr, err)
	}

	slog.Debug("Created statsd client", slog.String("addr", parsed.addr), slog.Float64("sampleRate", parsed.rate))
	return &statsClient{client: client, rate: parsed.rate}, nil
}

type statsClient struct {
	client *statsd.Client
	rate   float64
}

func (s *statsClient) Timing(name string, value time.Duration, tags map[string]string) {
	_ = s.client.Timing(name, value, toDatadogTags(tags), s.rate)
}

func (s *statsClient) Incr(name string, tags map[string]string) {
	_ = s.client.Incr(name, toDatadogTags(tags), s.rate)
}

func (s *statsClient) Count(name string, value int64, tags map[string]string) {
	_ = s.client.Count(name, value, toDatadogTags(tags), s.rate)
}

func (s *statsClient) Gauge(name string, value float64, tags map[string]string) {
	_ = s.client.Gauge(name, value, toDatadogTags(tags), s.rate)
}

func (s *statsClient) Flush() error {
	return s.client.Flush()
}
