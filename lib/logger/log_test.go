package logger

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artie-labs/starsync/lib/config"
)

func TestNewLogger(t *testing.T) {
	{
		// No settings
		logger, sentryEnabled := NewLogger(nil)
		assert.False(t, sentryEnabled)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	}
	{
		// Verbose
		logger, sentryEnabled := NewLogger(&config.Settings{VerboseLogging: true})
		assert.False(t, sentryEnabled)
		assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	}
	{
		// Empty Sentry DSN does not enable Sentry
		logger, sentryEnabled := NewLogger(&config.Settings{Config: config.Config{Reporting: config.Reporting{Sentry: &config.Sentry{}}}})
		assert.False(t, sentryEnabled)
		assert.NotNil(t, logger)
	}
	{
		// Invalid Sentry DSN falls back to stderr only
		_, sentryEnabled := NewLogger(&config.Settings{Config: config.Config{Reporting: config.Reporting{Sentry: &config.Sentry{DSN: "not a dsn"}}}})
		assert.False(t, sentryEnabled)
	}
}

func TestRedactErrors(t *testing.T) {
	{
		attr := redactErrors(nil, slog.Any("err", fmt.Errorf("failed to connect to postgres://reader:s3cret@db:5432/library")))
		assert.Equal(t, "err", attr.Key)
		assert.Equal(t, "failed to connect to postgres://reader:[REDACTED]@db:5432/library", attr.Value.String())
	}
	{
		// Other attributes are untouched.
		attr := redactErrors(nil, slog.String("table", "work"))
		assert.Equal(t, slog.String("table", "work"), attr)

		attr = redactErrors(nil, slog.Int("rows", 3))
		assert.Equal(t, int64(3), attr.Value.Int64())
	}
}
