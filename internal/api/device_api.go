package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Adapter is the subset of pushadapter.Adapter the HTTP bridge drives.
type Adapter interface {
	RegisterDeviceToken(ctx context.Context, token push.DeviceToken)
	RegisterDeviceTokenData(ctx context.Context, data []byte)
	UnregisterDeviceToken(ctx context.Context, token push.DeviceToken)
	SendToUserIDs(ctx context.Context, userIDs []int64, n push.Notification)
	DidReceiveRemoteNotification(n push.Notification)
}

type DeviceAPI struct {
	Adapter Adapter
	Logger  *slog.Logger
}

func NewDeviceAPI(adapter Adapter, logger *slog.Logger) *DeviceAPI {
	return &DeviceAPI{
		Adapter: adapter,
		Logger:  logger.With("component", "DeviceAPI"),
	}
}

// --- Devices ---

// RegisterDeviceRequest carries either the hex token or the raw token bytes
// (base64 in JSON) exactly as the platform produced them.
type RegisterDeviceRequest struct {
	Token     string `json:"token"`
	TokenData []byte `json:"token_data"`
}

func (api *DeviceAPI) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	switch {
	case req.Token != "":
		api.Adapter.RegisterDeviceToken(r.Context(), push.DeviceToken(req.Token))
	case len(req.TokenData) > 0:
		api.Adapter.RegisterDeviceTokenData(r.Context(), req.TokenData)
	default:
		api.Logger.Warn("RegisterDevice: Validation failed", "reason", "missing token")
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type UnregisterDeviceRequest struct {
	Token string `json:"token"`
}

func (api *DeviceAPI) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	var req UnregisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	api.Adapter.UnregisterDeviceToken(r.Context(), push.DeviceToken(req.Token))
	w.WriteHeader(http.StatusNoContent)
}

// --- Notifications ---

type SendRequest struct {
	UserIDs      []int64           `json:"user_ids"`
	Notification push.Notification `json:"notification"`
}

func (api *DeviceAPI) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.UserIDs) == 0 {
		response.WriteJSONError(w, http.StatusBadRequest, "missing user_ids")
		return
	}

	api.Logger.Debug("Send: forwarding notification", "user_count", len(req.UserIDs))
	api.Adapter.SendToUserIDs(r.Context(), req.UserIDs, req.Notification)
	w.WriteHeader(http.StatusNoContent)
}

// Receive accepts an inbound notification as delivered by the platform.
// Payload problems are the adapter's to report; the bridge only checks that
// the body is a JSON object.
func (api *DeviceAPI) Receive(w http.ResponseWriter, r *http.Request) {
	var n push.Notification
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil || n == nil {
		api.Logger.Warn("Receive: JSON Decode failed", "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, "invalid notification json")
		return
	}

	api.Adapter.DidReceiveRemoteNotification(n)
	w.WriteHeader(http.StatusNoContent)
}
