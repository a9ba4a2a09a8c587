package errors

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures the Sentry client.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// InitSentry initializes the global Sentry client.
func InitSentry(opts SentryOptions) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		SampleRate:  opts.SampleRate,
	}); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}

	return nil
}

// FlushSentry waits up to timeout for buffered events to be delivered.
func FlushSentry(timeout time.Duration) error {
	if !sentry.Flush(timeout) {
		return fmt.Errorf("sentry flush did not complete within %s", timeout)
	}

	return nil
}
