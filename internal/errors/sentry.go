package errors

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig configures error telemetry.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// InitSentry initializes the Sentry client and installs it as the reporter.
// An empty DSN leaves telemetry disabled.
func InitSentry(cfg SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	SetReporter(sentryReporter)
	return nil
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

func sentryReporter(ee *EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.component)
		scope.SetTag("category", string(ee.category))
		if len(ee.context) > 0 {
			scope.SetContext("error", sentry.Context(ee.context))
		}
		sentry.CaptureException(ee.Err)
	})
}
