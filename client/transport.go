package client

import (
	"net/http"
)

// AuthTransport wraps an http.RoundTripper to add a bearer Authorization
// header. Requests that already carry one are passed through unchanged.
type AuthTransport struct {
	Base http.RoundTripper

	// Token returns the current session token. An empty token sends no header.
	Token func() string
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token != nil && req.Header.Get("Authorization") == "" {
		if token := t.Token(); token != "" {
			// Clone the request to avoid mutating the original
			req2 := req.Clone(req.Context())
			req2.Header.Set("Authorization", "Bearer "+token)
			req = req2
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// NewAuthTransport creates an AuthTransport that always sends token.
func NewAuthTransport(token string) *AuthTransport {
	return NewAuthTransportWithBase(http.DefaultTransport, token)
}

// NewAuthTransportWithBase creates an AuthTransport with a custom base transport
func NewAuthTransportWithBase(base http.RoundTripper, token string) *AuthTransport {
	return &AuthTransport{
		Base:  base,
		Token: func() string { return token },
	}
}
