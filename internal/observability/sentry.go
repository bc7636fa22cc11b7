package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error reporting when a DSN is configured.
func InitSentry(dsn string, environment string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// CaptureError forwards err to Sentry with the given code tag. No-op when Sentry is not initialised.
func CaptureError(code string, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		sentry.CaptureException(err)
	})
}

// FlushSentry waits briefly for buffered events.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
