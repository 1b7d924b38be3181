// --- File: pkg/push/interfaces.go ---
// Package push contains the public interfaces and domain models shared by the
// push adapter, its RPC client and the platform helpers.
package push

import (
	"context"
)

// Service is the remote device-registry surface of the push server.
// Every call is a single request/response exchange over a session.
type Service interface {
	// AddDevice registers a device token for the session's user.
	AddDevice(ctx context.Context, token DeviceToken, platform string) error

	// DeleteDevice removes a previously registered device token.
	DeleteDevice(ctx context.Context, token DeviceToken) error

	// SendNotification asks the server to push payload (a JSON document)
	// to every device registered by the given users.
	SendNotification(ctx context.Context, userIDs []int64, payload string) error
}

// Registrar asks the local platform to register the app for remote
// notifications. The platform later hands back a raw device token.
type Registrar interface {
	RegisterForRemoteNotifications(ctx context.Context, kinds NotificationKind) error
}

// Callbacks are the three optional handlers an adapter reports to.
// None of them is required; a nil handler drops the event.
type Callbacks struct {
	OnSuccess          func(result map[string]any)
	OnFailure          func(err error)
	OnPushNotification func(n Notification)
}
