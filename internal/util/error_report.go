package util

import (
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitErrorReporting enables Sentry when dsn is set. The returned func flushes
// buffered events and is safe to call when reporting is disabled.
func InitErrorReporting(dsn, environment string) (func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: environment}); err != nil {
		return nil, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// ReportError sends an unexpected request failure to Sentry. It does nothing
// until InitErrorReporting has installed a client.
func ReportError(r *http.Request, err error) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub = hub.Clone()
	hub.Scope().SetRequest(r)
	if id := RequestIDFromRequest(r); id != "" {
		hub.Scope().SetTag("request_id", id)
	}
	hub.CaptureException(err)
}
