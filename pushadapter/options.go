package pushadapter

import (
	"log/slog"

	"github.com/tinywideclouds/go-push-client/internal/session"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// ServiceFactory builds the RPC service for one operation. It receives the
// adapter's private session so that successful calls reach OnSuccess.
type ServiceFactory func(s *session.Session) push.Service

type Option func(*Adapter)

// WithServiceFactory replaces the default JSON-WS client, e.g. to decorate it
// with a registration cache.
func WithServiceFactory(f ServiceFactory) Option {
	return func(a *Adapter) {
		a.newService = f
	}
}

// WithRegistrar sets the platform hook used by RegisterDevice.
func WithRegistrar(r push.Registrar) Option {
	return func(a *Adapter) {
		a.registrar = r
	}
}

// WithPlatform overrides the platform name sent with device registrations.
func WithPlatform(platform string) Option {
	return func(a *Adapter) {
		a.platform = platform
	}
}

// WithLogger sets the adapter's logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRegistrationFailureReporting routes AddDevice/DeleteDevice failures to
// OnFailure. Off by default: registration is fire-and-forget.
func WithRegistrationFailureReporting(enabled bool) Option {
	return func(a *Adapter) {
		a.reportRegistrationFailures = enabled
	}
}

// WithSendFailureReporting controls whether a failed send RPC reaches
// OnFailure. On by default; disabling it drops the error after logging.
func WithSendFailureReporting(enabled bool) Option {
	return func(a *Adapter) {
		a.reportSendFailures = enabled
	}
}
