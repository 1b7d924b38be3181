// --- File: pushadapter/bridge.go ---
package pushadapter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-push-client/internal/api"
	"github.com/tinywideclouds/go-push-client/pushadapter/config"
)

// Bridge serves an adapter's operations over HTTP.
type Bridge struct {
	*microservice.BaseServer
	logger *slog.Logger
}

// NewBridge assembles the HTTP bridge in front of adapter.
func NewBridge(cfg *config.Config, adapter api.Adapter, logger *slog.Logger) *Bridge {
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)
	deviceAPI := api.NewDeviceAPI(adapter, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(handlerFunc))
	}

	// Devices
	handle("POST /api/v1/devices/register", deviceAPI.RegisterDevice)
	handle("POST /api/v1/devices/unregister", deviceAPI.UnregisterDevice)

	// Notifications
	handle("POST /api/v1/notifications/send", deviceAPI.Send)
	handle("POST /api/v1/notifications/receive", deviceAPI.Receive)

	// CORS preflight; the middleware writes the headers.
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	return &Bridge{
		BaseServer: baseServer,
		logger:     logger.With("component", "Bridge"),
	}
}

// Start marks the bridge ready and blocks serving until Shutdown.
func (b *Bridge) Start() error {
	b.SetReady(true)
	b.logger.Info("HTTP bridge is now ready.")
	return b.BaseServer.Start()
}

func (b *Bridge) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down HTTP bridge...")
	if err := b.BaseServer.Shutdown(ctx); err != nil {
		b.logger.Error("HTTP server shutdown failed.", "err", err)
		return err
	}
	b.logger.Info("HTTP bridge shutdown complete.")
	return nil
}
