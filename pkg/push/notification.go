package push

import (
	"encoding/hex"
	"errors"
	"strings"
)

// PayloadKey is the reserved notification key holding the JSON payload.
const PayloadKey = "payload"

// PlatformApple is the platform name the server expects for APNs tokens.
const PlatformApple = "apple"

var (
	ErrMissingPayload   = errors.New("push notification has no payload")
	ErrPayloadNotString = errors.New("push notification payload is not a string")
	ErrPayloadNotObject = errors.New("push notification payload is not a JSON object")
)

// Notification is a string-keyed, JSON-compatible push notification.
type Notification map[string]any

// Clone returns a shallow copy of n. Nested values are shared.
func (n Notification) Clone() Notification {
	if n == nil {
		return nil
	}
	out := make(Notification, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// DeviceToken identifies a device with the push provider.
type DeviceToken string

func (t DeviceToken) String() string {
	return string(t)
}

// DeviceTokenFromBytes encodes raw token bytes as the provider expects:
// two uppercase hex characters per byte, in order, no separators.
func DeviceTokenFromBytes(b []byte) DeviceToken {
	return DeviceToken(strings.ToUpper(hex.EncodeToString(b)))
}

// NotificationKind is a set of user-facing notification presentations.
type NotificationKind uint8

const (
	KindBadge NotificationKind = 1 << iota
	KindSound
	KindAlert
)

// DefaultKinds is what RegisterDevice asks the platform for.
const DefaultKinds = KindBadge | KindSound | KindAlert

func (k NotificationKind) Has(kind NotificationKind) bool {
	return k&kind == kind
}

func (k NotificationKind) String() string {
	var parts []string
	if k.Has(KindBadge) {
		parts = append(parts, "badge")
	}
	if k.Has(KindSound) {
		parts = append(parts, "sound")
	}
	if k.Has(KindAlert) {
		parts = append(parts, "alert")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
