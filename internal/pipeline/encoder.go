package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// EncodeNotification serializes an outbound notification into the JSON
// document the server forwards to devices.
func EncodeNotification(n push.Notification) (string, error) {
	if n == nil {
		n = push.Notification{}
	}
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to marshal push notification: %w", err)
	}
	return string(data), nil
}
