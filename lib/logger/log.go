package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"

	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/redact"
)

const sentryFlushTimeout = 2 * time.Second

// NewLogger returns a colourised stderr logger, fanned out to Sentry for errors when a DSN is configured.
// The bool reports whether Sentry is enabled, callers should [Flush] before exiting if it is.
func NewLogger(settings *config.Settings) (*slog.Logger, bool) {
	tintLogLevel := slog.LevelInfo
	if settings != nil && settings.VerboseLogging {
		tintLogLevel = slog.LevelDebug
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:       tintLogLevel,
		TimeFormat:  time.DateTime,
		NoColor:     !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: redactErrors,
	})

	var loggingToSentry bool
	if settings != nil && settings.Config.Reporting.Sentry != nil && settings.Config.Reporting.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: settings.Config.Reporting.Sentry.DSN}); err != nil {
			slog.New(handler).Warn("Failed to enable Sentry output", slog.Any("err", err))
		} else {
			handler = slogmulti.Fanout(
				handler,
				slogsentry.Option{Level: slog.LevelError, ReplaceAttr: redactErrors}.NewSentryHandler(),
			)
			loggingToSentry = true
		}
	}

	return slog.New(handler), loggingToSentry
}

// redactErrors scrubs credentials out of logged errors, driver errors can carry the DSN.
func redactErrors(_ []string, attr slog.Attr) slog.Attr {
	if err, ok := attr.Value.Any().(error); ok && attr.Value.Kind() == slog.KindAny {
		return slog.String(attr.Key, redact.Credentials(err.Error()))
	}
	return attr
}

// Flush waits for buffered Sentry events to be sent.
func Flush() {
	sentry.Flush(sentryFlushTimeout)
}

func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	Flush()
	os.Exit(1)
}

func Panic(msg string, args ...any) {
	slog.Error(msg, args...)
	Flush()
	panic(msg)
}
