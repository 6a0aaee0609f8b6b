package authcore

import (
	"context"
	"log/slog"
	"net/http"
)

type identityKey struct{}

// Middleware resolves the session of each request and exposes the identity to
// downstream handlers via IdentityFromContext.
type Middleware struct {
	Auth *Authenticator

	// OnUnauthorized writes the response for EnsureIdentity failures.
	// Defaults to a JSON 401 with code "unauthorized".
	OnUnauthorized http.HandlerFunc
}

// IdentityFromContext returns the identity attached by the middleware, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey{}).(*Identity)
	return identity
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func (m *Middleware) resolve(r *http.Request) *Identity {
	identity, err := m.Auth.Authenticate(r)
	if err != nil {
		slog.Warn("failed to resolve session", "path", r.URL.Path, "error", err)
		return nil
	}
	return identity
}

// ExtractIdentity attaches the request's identity, if any, and never rejects.
func (m *Middleware) ExtractIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity := m.resolve(r); identity != nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureIdentity rejects requests without a valid session.
func (m *Middleware) EnsureIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolve(r)
		if identity == nil {
			if m.OnUnauthorized != nil {
				m.OnUnauthorized(w, r)
				return
			}
			writeError(w, NewAuthError(ErrCodeUnauthorized, "", http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
