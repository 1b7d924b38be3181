// --- File: internal/platform/apns/userinfo.go ---
// Package apns builds notifications in the shape Apple devices hand to the
// app, so inbound handling can be driven without a real device.
package apns

import (
	"encoding/json"
	"fmt"

	"github.com/sideshow/apns2/payload"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Alert is the user-visible part of an APNs notification.
type Alert struct {
	Title string
	Body  string
	Sound string
	// Badge is left unset when nil; a pointer to zero clears the badge.
	Badge *int
}

// UserInfo returns the dictionary a device delivers for a push sent by the
// server: the "aps" dictionary built from alert, plus the server's
// "payload" key carrying data as a JSON-encoded string.
func UserInfo(alert Alert, data any) (push.Notification, error) {
	// We use the builder pattern to construct the correct JSON structure
	builder := payload.NewPayload().
		AlertTitle(alert.Title).
		AlertBody(alert.Body)
	if alert.Sound != "" {
		builder.Sound(alert.Sound)
	}
	if alert.Badge != nil {
		if *alert.Badge == 0 {
			builder.ZeroBadge()
		} else {
			builder.Badge(*alert.Badge)
		}
	}

	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode push payload: %w", err)
		}
		builder.Custom(push.PayloadKey, string(encoded))
	}

	raw, err := json.Marshal(builder)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal apns payload: %w", err)
	}

	var n push.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("failed to decode apns payload: %w", err)
	}
	return n, nil
}
