// --- File: internal/jsonws/client.go ---
// Package jsonws is the client for the push server's JSON web-service
// endpoint. It implements push.Service on top of a session.
package jsonws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-push-client/internal/session"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

const invokePath = "/api/jsonws/invoke"

const (
	cmdAddDevice    = "/push-notifications-portlet.pushnotificationsdevice/add-push-notifications-device"
	cmdDeleteDevice = "/push-notifications-portlet.pushnotificationsdevice/delete-push-notifications-device"
	cmdSend         = "/push-notifications-portlet.pushnotificationsdevice/send-push-notification"
)

// RemoteError is a failure reported by the server, either as a non-2xx
// status or as an exception object in a 2xx body.
type RemoteError struct {
	Status  int
	Type    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("jsonws: %s (status %d): %s", e.Type, e.Status, e.Message)
	}
	return fmt.Sprintf("jsonws: status %d: %s", e.Status, e.Message)
}

// Client issues one HTTP request per call. It holds no state beyond its
// session, so a fresh Client per operation is cheap.
type Client struct {
	session *session.Session
	logger  *slog.Logger
}

func NewClient(s *session.Session, logger *slog.Logger) *Client {
	return &Client{
		session: s,
		logger:  logger.With("component", "JSONWSClient"),
	}
}

func (c *Client) AddDevice(ctx context.Context, token push.DeviceToken, platform string) error {
	_, err := c.invoke(ctx, cmdAddDevice, map[string]any{
		"token":    token.String(),
		"platform": platform,
	})
	return err
}

func (c *Client) DeleteDevice(ctx context.Context, token push.DeviceToken) error {
	_, err := c.invoke(ctx, cmdDeleteDevice, map[string]any{
		"token": token.String(),
	})
	return err
}

func (c *Client) SendNotification(ctx context.Context, userIDs []int64, payload string) error {
	if userIDs == nil {
		userIDs = []int64{}
	}
	_, err := c.invoke(ctx, cmdSend, map[string]any{
		"toUserIds": userIDs,
		"payload":   payload,
	})
	return err
}

// invoke posts a single command and reports a successful result to the
// session's success handler. Failures are only returned; the caller decides
// whether they reach the session's failure handler.
func (c *Client) invoke(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{command: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", command, err)
	}

	if c.session.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.session.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(c.session.ServerURL, "/") + invokePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", command, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.session.Auth != nil {
		c.session.Auth.Authenticate(req)
	}

	logger := c.logger.With("command", command, "request_id", requestID)

	httpClient := c.session.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Debug("JSON-WS transport failed", "err", err)
		return nil, fmt.Errorf("%s transport failed: %w", command, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", command, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := decodeRemoteError(resp.StatusCode, raw)
		logger.Debug("JSON-WS call rejected", "status", resp.StatusCode, "err", remoteErr)
		return nil, remoteErr
	}

	result, err := decodeResult(resp.StatusCode, raw)
	if err != nil {
		logger.Debug("JSON-WS call returned an exception", "err", err)
		return nil, err
	}

	logger.Debug("JSON-WS call succeeded", "status", resp.StatusCode)
	c.session.Succeed(result)
	return result, nil
}

// decodeResult returns the result object of a 2xx response. Void commands
// answer with an empty body or a non-object value; both yield a nil map.
func decodeResult(status int, raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, nil
	}
	if remoteErr := exceptionFrom(status, obj); remoteErr != nil {
		return nil, remoteErr
	}
	return obj, nil
}

func decodeRemoteError(status int, raw []byte) *RemoteError {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if remoteErr := exceptionFrom(status, obj); remoteErr != nil {
			return remoteErr
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RemoteError{Status: status, Message: msg}
}

// exceptionFrom recognises both exception shapes the server uses:
// {"exception": "...", "message": "..."} and {"error": {"type", "message"}}.
func exceptionFrom(status int, obj map[string]any) *RemoteError {
	if exception, ok := obj["exception"].(string); ok {
		msg, _ := obj["message"].(string)
		if msg == "" {
			msg = exception
		}
		return &RemoteError{Status: status, Type: exception, Message: msg}
	}
	if inner, ok := obj["error"].(map[string]any); ok {
		typ, _ := inner["type"].(string)
		msg, _ := inner["message"].(string)
		return &RemoteError{Status: status, Type: typ, Message: msg}
	}
	return nil
}

// IsRemote reports whether err came from the server rather than transport.
func IsRemote(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}
