package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/usermgmt/pkg/logger"
	"github.com/Proton-105/usermgmt/pkg/metrics"
)

const codeUnknown = "unknown"

// Handler logs, counts and forwards errors that no caller can act on.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Report records err. AppErrors of high or critical severity, and every
// unclassified error, are sent to Sentry when it is enabled.
func (h *Handler) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code, severity, retryable := classify(err)

	attrs := []any{
		slog.String("code", code),
		slog.String("severity", string(severity)),
		slog.Bool("retryable", retryable),
		slog.Any("error", err),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	h.log.ErrorContext(ctx, "application error", attrs...)
	metrics.RecordError(code, string(severity))

	if h.sentryEnabled && (severity == SeverityHigh || severity == SeverityCritical) {
		h.sendToSentry(code, severity, err)
	}
}

func classify(err error) (string, Severity, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		severity := appErr.Severity
		if severity == "" {
			severity = SeverityMedium
		}
		return appErr.Code, severity, appErr.Retryable
	}

	return codeUnknown, SeverityHigh, false
}

func (h *Handler) sendToSentry(code string, severity Severity, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		scope.SetTag("severity", string(severity))
		sentry.CaptureException(err)
	})
}
