// --- File: internal/pipeline/transformer.go ---
// Package pipeline converts notifications between their wire form and the
// form handed to application callbacks.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// ExpandPayload returns a copy of n whose "payload" entry, a JSON-encoded
// string on the wire, is replaced by the decoded object. n is not modified.
func ExpandPayload(n push.Notification) (push.Notification, error) {
	raw, ok := n[push.PayloadKey]
	if !ok {
		return nil, push.ErrMissingPayload
	}
	encoded, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", push.ErrPayloadNotString, raw)
	}

	// Numbers stay json.Number so integer IDs survive beyond 2^53.
	dec := json.NewDecoder(strings.NewReader(encoded))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal push payload: trailing data after JSON value")
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", push.ErrPayloadNotObject, decoded)
	}

	expanded := n.Clone()
	expanded[push.PayloadKey] = obj
	return expanded, nil
}
