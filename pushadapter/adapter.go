// --- File: pushadapter/adapter.go ---
// Package pushadapter registers devices for push notifications with the
// server, sends pushes to users and hands incoming pushes to the application.
package pushadapter

import (
	"context"
	"log/slog"

	"github.com/tinywideclouds/go-push-client/internal/jsonws"
	"github.com/tinywideclouds/go-push-client/internal/pipeline"
	"github.com/tinywideclouds/go-push-client/internal/session"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Adapter is configured once, then used. The callback fields are plain
// fields: setting a callback while another goroutine is running an
// operation is a data race.
type Adapter struct {
	session    *session.Session
	newService ServiceFactory
	registrar  push.Registrar
	platform   string
	baseLogger *slog.Logger
	logger     *slog.Logger

	reportRegistrationFailures bool
	reportSendFailures         bool

	success          func(result map[string]any)
	failure          func(err error)
	pushNotification func(n push.Notification)
}

// WithSession creates an adapter working on its own copy of s. The copy's
// completion handlers forward to the adapter's OnSuccess/OnFailure, so the
// caller's session handlers are never touched.
func WithSession(s *session.Session, opts ...Option) *Adapter {
	a := &Adapter{
		platform:           push.PlatformApple,
		logger:             slog.Default(),
		reportSendFailures: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.baseLogger = a.logger
	a.logger = a.logger.With("component", "PushAdapter")
	if a.registrar == nil {
		a.registrar = nopRegistrar{logger: a.logger}
	}

	a.session = s.WithHandlers(
		func(result map[string]any) {
			if a.success != nil {
				a.success(result)
			}
		},
		func(err error) {
			if a.failure != nil {
				a.failure(err)
			}
		},
	)
	return a
}

// --- Callbacks ---

func (a *Adapter) OnSuccess(fn func(result map[string]any)) *Adapter {
	a.success = fn
	return a
}

func (a *Adapter) OnFailure(fn func(err error)) *Adapter {
	a.failure = fn
	return a
}

func (a *Adapter) OnPushNotification(fn func(n push.Notification)) *Adapter {
	a.pushNotification = fn
	return a
}

// WithCallbacks sets all three callbacks at once. Nil entries clear the slot.
func (a *Adapter) WithCallbacks(cb push.Callbacks) *Adapter {
	return a.OnSuccess(cb.OnSuccess).
		OnFailure(cb.OnFailure).
		OnPushNotification(cb.OnPushNotification)
}

// --- Registration ---

// RegisterDevice asks the platform to register for badge, sound and alert
// notifications. Platform errors are logged, not reported.
func (a *Adapter) RegisterDevice(ctx context.Context) {
	if err := a.registrar.RegisterForRemoteNotifications(ctx, push.DefaultKinds); err != nil {
		a.logger.Warn("Platform registration for remote notifications failed", "err", err)
	}
}

// RegisterDeviceTokenData registers the raw token bytes the platform hands
// back after RegisterDevice.
func (a *Adapter) RegisterDeviceTokenData(ctx context.Context, data []byte) {
	a.RegisterDeviceToken(ctx, push.DeviceTokenFromBytes(data))
}

// RegisterDeviceToken adds token to the server's device registry. Failures
// are dropped unless registration failure reporting is enabled.
func (a *Adapter) RegisterDeviceToken(ctx context.Context, token push.DeviceToken) {
	err := a.service().AddDevice(ctx, token, a.platform)
	if err != nil {
		a.registrationFailed("register", err)
	}
}

// UnregisterDeviceToken removes token from the server's device registry.
// Failures follow the same policy as RegisterDeviceToken.
func (a *Adapter) UnregisterDeviceToken(ctx context.Context, token push.DeviceToken) {
	err := a.service().DeleteDevice(ctx, token)
	if err != nil {
		a.registrationFailed("unregister", err)
	}
}

func (a *Adapter) registrationFailed(op string, err error) {
	if a.reportRegistrationFailures {
		a.session.Fail(err)
		return
	}
	a.logger.Warn("Device registration call failed (dropped)", "op", op, "err", err)
}

// --- Outbound ---

func (a *Adapter) SendToUserID(ctx context.Context, userID int64, n push.Notification) {
	a.SendToUserIDs(ctx, []int64{userID}, n)
}

// SendToUserIDs asks the server to push n to every device of every user in
// userIDs. An unencodable notification is reported to OnFailure and no call
// is made.
func (a *Adapter) SendToUserIDs(ctx context.Context, userIDs []int64, n push.Notification) {
	payload, err := pipeline.EncodeNotification(n)
	if err != nil {
		a.session.Fail(err)
		return
	}

	if err := a.service().SendNotification(ctx, userIDs, payload); err != nil {
		if a.reportSendFailures {
			a.session.Fail(err)
			return
		}
		a.logger.Warn("Send push notification call failed (dropped)", "user_count", len(userIDs), "err", err)
	}
}

// --- Inbound ---

// DidReceiveRemoteNotification decodes the notification's "payload" string
// and hands the expanded copy to OnPushNotification. A missing, non-string
// or non-JSON payload is reported to OnFailure instead.
func (a *Adapter) DidReceiveRemoteNotification(n push.Notification) {
	expanded, err := pipeline.ExpandPayload(n)
	if err != nil {
		a.session.Fail(err)
		return
	}
	if a.pushNotification != nil {
		a.pushNotification(expanded)
	}
}

func (a *Adapter) service() push.Service {
	if a.newService != nil {
		return a.newService(a.session)
	}
	return jsonws.NewClient(a.session, a.baseLogger)
}

// nopRegistrar stands in when no platform hook is configured, e.g. on a
// server that only sends.
type nopRegistrar struct {
	logger *slog.Logger
}

func (r nopRegistrar) RegisterForRemoteNotifications(_ context.Context, kinds push.NotificationKind) error {
	r.logger.Debug("No platform registrar configured; skipping", "kinds", kinds.String())
	return nil
}
