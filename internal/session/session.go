// Package session holds the handle identifying an authenticated connection to
// the push server.
package session

import (
	"net/http"
	"time"
)

// Authenticator decorates outgoing requests with credentials.
type Authenticator interface {
	Authenticate(req *http.Request)
}

// BasicAuth authenticates with a portal username (or email) and password.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Authenticate(req *http.Request) {
	req.SetBasicAuth(a.Username, a.Password)
}

func (a BasicAuth) Principal() string {
	return a.Username
}

// Session is owned by the caller. Components that need their own completion
// handlers work on a copy made with WithHandlers.
type Session struct {
	ServerURL  string
	Auth       Authenticator
	HTTPClient *http.Client
	Timeout    time.Duration

	onSuccess func(result map[string]any)
	onFailure func(err error)
}

type Option func(*Session)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.HTTPClient = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.Timeout = d
	}
}

// New creates a session against serverURL. A nil auth sends anonymous requests.
func New(serverURL string, auth Authenticator, opts ...Option) *Session {
	s := &Session{
		ServerURL:  serverURL,
		Auth:       auth,
		HTTPClient: &http.Client{},
		Timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clone returns a deep copy of s. The HTTP client value is copied so a
// later change to one session's client settings does not leak into the other.
func (s *Session) Clone() *Session {
	c := *s
	if s.HTTPClient != nil {
		client := *s.HTTPClient
		c.HTTPClient = &client
	}
	return &c
}

// WithHandlers returns a copy of s whose completion handlers are set to
// success and failure. s itself is left untouched.
func (s *Session) WithHandlers(success func(map[string]any), failure func(error)) *Session {
	c := s.Clone()
	c.onSuccess = success
	c.onFailure = failure
	return c
}

// Identity names the server and, when the authenticator exposes one, the
// principal the session acts as. Two sessions with the same identity see the
// same device registry.
func (s *Session) Identity() string {
	if p, ok := s.Auth.(interface{ Principal() string }); ok {
		return s.ServerURL + ":" + p.Principal()
	}
	return s.ServerURL + ":"
}

// Succeed reports a completed call to the success handler, if any.
func (s *Session) Succeed(result map[string]any) {
	if s.onSuccess != nil {
		s.onSuccess(result)
	}
}

// Fail reports a failed call to the failure handler, if any.
func (s *Session) Fail(err error) {
	if s.onFailure != nil {
		s.onFailure(err)
	}
}
