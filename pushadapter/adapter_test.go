package pushadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-client/internal/session"
	"github.com/tinywideclouds/go-push-client/pkg/push"
	"github.com/tinywideclouds/go-push-client/pushadapter"
)

// --- Mocks ---
type MockService struct {
	mock.Mock
}

func (m *MockService) AddDevice(ctx context.Context, token push.DeviceToken, platform string) error {
	return m.Called(ctx, token, platform).Error(0)
}
func (m *MockService) DeleteDevice(ctx context.Context, token push.DeviceToken) error {
	return m.Called(ctx, token).Error(0)
}
func (m *MockService) SendNotification(ctx context.Context, userIDs []int64, payload string) error {
	return m.Called(ctx, userIDs, payload).Error(0)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) RegisterForRemoteNotifications(ctx context.Context, kinds push.NotificationKind) error {
	return m.Called(ctx, kinds).Error(0)
}

// recorder counts callback invocations.
type recorder struct {
	successes     []map[string]any
	failures      []error
	notifications []push.Notification
}

func (r *recorder) attach(a *pushadapter.Adapter) *pushadapter.Adapter {
	return a.
		OnSuccess(func(result map[string]any) { r.successes = append(r.successes, result) }).
		OnFailure(func(err error) { r.failures = append(r.failures, err) }).
		OnPushNotification(func(n push.Notification) { r.notifications = append(r.notifications, n) })
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAdapter(t *testing.T, opts ...pushadapter.Option) (*pushadapter.Adapter, *MockService, *recorder) {
	t.Helper()
	svc := new(MockService)
	rec := &recorder{}
	opts = append([]pushadapter.Option{
		pushadapter.WithLogger(newLogger()),
		pushadapter.WithServiceFactory(func(*session.Session) push.Service { return svc }),
	}, opts...)
	a := pushadapter.WithSession(session.New("http://localhost", nil), opts...)
	return rec.attach(a), svc, rec
}

func TestCallbackSetters(t *testing.T) {
	a := pushadapter.WithSession(session.New("http://localhost", nil), pushadapter.WithLogger(newLogger()))

	assert.Same(t, a, a.OnSuccess(nil))
	assert.Same(t, a, a.OnFailure(nil))
	assert.Same(t, a, a.OnPushNotification(nil))
	assert.Same(t, a, a.WithCallbacks(push.Callbacks{}))

	t.Run("Last set callback wins", func(t *testing.T) {
		first, second := 0, 0
		a.OnPushNotification(func(push.Notification) { first++ }).
			OnPushNotification(func(push.Notification) { second++ })

		a.DidReceiveRemoteNotification(push.Notification{"payload": `{}`})

		assert.Equal(t, 0, first)
		assert.Equal(t, 1, second)
	})

	t.Run("Nil logger falls back to the default", func(t *testing.T) {
		assert.NotPanics(t, func() {
			b := pushadapter.WithSession(session.New("http://localhost", nil), pushadapter.WithLogger(nil))
			b.RegisterDevice(context.Background())
		})
	})

	t.Run("Unset callbacks are optional", func(t *testing.T) {
		b := pushadapter.WithSession(session.New("http://localhost", nil), pushadapter.WithLogger(newLogger()))
		assert.NotPanics(t, func() {
			b.DidReceiveRemoteNotification(push.Notification{"payload": `{}`})
			b.DidReceiveRemoteNotification(push.Notification{})
		})
	})
}

func TestDidReceiveRemoteNotification(t *testing.T) {
	t.Run("Happy Path - payload expanded", func(t *testing.T) {
		a, _, rec := setupAdapter(t)

		a.DidReceiveRemoteNotification(push.Notification{"payload": `{"a":1}`})

		require.Len(t, rec.notifications, 1)
		assert.Equal(t, push.Notification{"payload": map[string]any{"a": json.Number("1")}}, rec.notifications[0])
		assert.Empty(t, rec.failures)
	})

	testCases := []struct {
		name  string
		input push.Notification
	}{
		{name: "Invalid JSON", input: push.Notification{"payload": "not json"}},
		{name: "Missing payload", input: push.Notification{"aps": map[string]any{}}},
		{name: "Payload not a string", input: push.Notification{"payload": 1}},
	}
	for _, tc := range testCases {
		t.Run("Failure - "+tc.name, func(t *testing.T) {
			a, _, rec := setupAdapter(t)

			a.DidReceiveRemoteNotification(tc.input)

			assert.Len(t, rec.failures, 1)
			assert.Empty(t, rec.notifications)
		})
	}
}

func TestRegisterDeviceTokenData(t *testing.T) {
	a, svc, _ := setupAdapter(t)
	ctx := context.Background()

	svc.On("AddDevice", ctx, push.DeviceToken("00AB10FF"), "apple").Return(nil)

	a.RegisterDeviceTokenData(ctx, []byte{0x00, 0xab, 0x10, 0xff})

	svc.AssertExpectations(t)
}

func TestRegistrationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Swallowed by default", func(t *testing.T) {
		a, svc, rec := setupAdapter(t)
		svc.On("AddDevice", ctx, push.DeviceToken("ABCD"), "apple").Return(assert.AnError)
		svc.On("DeleteDevice", ctx, push.DeviceToken("ABCD")).Return(assert.AnError)

		assert.NotPanics(t, func() {
			a.RegisterDeviceToken(ctx, "ABCD")
			a.UnregisterDeviceToken(ctx, "ABCD")
		})

		assert.Empty(t, rec.failures)
		svc.AssertExpectations(t)
	})

	t.Run("Reported when enabled", func(t *testing.T) {
		a, svc, rec := setupAdapter(t, pushadapter.WithRegistrationFailureReporting(true))
		svc.On("AddDevice", ctx, push.DeviceToken("ABCD"), "apple").Return(assert.AnError)
		svc.On("DeleteDevice", ctx, push.DeviceToken("ABCD")).Return(assert.AnError)

		a.RegisterDeviceToken(ctx, "ABCD")
		a.UnregisterDeviceToken(ctx, "ABCD")

		require.Len(t, rec.failures, 2)
		assert.ErrorIs(t, rec.failures[0], assert.AnError)
	})

	t.Run("Custom platform", func(t *testing.T) {
		a, svc, _ := setupAdapter(t, pushadapter.WithPlatform("android"))
		svc.On("AddDevice", ctx, push.DeviceToken("ABCD"), "android").Return(nil)

		a.RegisterDeviceToken(ctx, "ABCD")

		svc.AssertExpectations(t)
	})
}

func TestSendToUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("Single ID delegates to multi-ID form", func(t *testing.T) {
		a, svc, rec := setupAdapter(t)
		svc.On("SendNotification", ctx, []int64{42}, `{"title":"hi"}`).Return(nil)

		a.SendToUserID(ctx, 42, push.Notification{"title": "hi"})

		svc.AssertExpectations(t)
		assert.Empty(t, rec.failures)
	})

	t.Run("Serialization failure reported, no call made", func(t *testing.T) {
		a, svc, rec := setupAdapter(t)

		a.SendToUserIDs(ctx, []int64{1, 2}, push.Notification{"bad": make(chan int)})

		require.Len(t, rec.failures, 1)
		svc.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RPC failure reported by default", func(t *testing.T) {
		a, svc, rec := setupAdapter(t)
		svc.On("SendNotification", ctx, []int64{1}, `{}`).Return(assert.AnError)

		a.SendToUserIDs(ctx, []int64{1}, push.Notification{})

		require.Len(t, rec.failures, 1)
		assert.ErrorIs(t, rec.failures[0], assert.AnError)
	})

	t.Run("RPC failure dropped when reporting disabled", func(t *testing.T) {
		a, svc, rec := setupAdapter(t, pushadapter.WithSendFailureReporting(false))
		svc.On("SendNotification", ctx, []int64{1}, `{}`).Return(assert.AnError)

		a.SendToUserIDs(ctx, []int64{1}, push.Notification{})

		assert.Empty(t, rec.failures)
	})
}

func TestRegisterDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("Requests badge, sound and alert", func(t *testing.T) {
		registrar := new(MockRegistrar)
		registrar.On("RegisterForRemoteNotifications", ctx, push.KindBadge|push.KindSound|push.KindAlert).Return(nil)
		a, _, _ := setupAdapter(t, pushadapter.WithRegistrar(registrar))

		a.RegisterDevice(ctx)

		registrar.AssertExpectations(t)
	})

	t.Run("Platform error is not surfaced", func(t *testing.T) {
		registrar := new(MockRegistrar)
		registrar.On("RegisterForRemoteNotifications", ctx, mock.Anything).Return(errors.New("denied"))
		a, _, rec := setupAdapter(t, pushadapter.WithRegistrar(registrar))

		a.RegisterDevice(ctx)

		assert.Empty(t, rec.failures)
	})

	t.Run("No registrar configured", func(t *testing.T) {
		a, _, rec := setupAdapter(t)
		assert.NotPanics(t, func() { a.RegisterDevice(ctx) })
		assert.Empty(t, rec.failures)
	})
}

// TestAdapter_JSONWS runs the adapter against a fake server with the default
// JSON-WS client and checks the session hooks are wired per adapter.
func TestAdapter_JSONWS(t *testing.T) {
	ctx := context.Background()
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{"token":"ABCD"}`)
	}))
	t.Cleanup(server.Close)

	callerSuccesses := 0
	caller := session.New(server.URL, nil).WithHandlers(func(map[string]any) { callerSuccesses++ }, nil)

	rec := &recorder{}
	a := rec.attach(pushadapter.WithSession(caller, pushadapter.WithLogger(newLogger())))

	a.RegisterDeviceToken(ctx, "ABCD")
	require.Len(t, rec.successes, 1)
	assert.Equal(t, "ABCD", rec.successes[0]["token"])
	assert.Zero(t, callerSuccesses)

	status.Store(http.StatusInternalServerError)
	a.RegisterDeviceToken(ctx, "ABCD")
	assert.Empty(t, rec.failures)

	a.SendToUserID(ctx, 7, push.Notification{"title": "hi"})
	assert.Len(t, rec.failures, 1)
}
