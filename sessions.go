package authcore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultSessionCookie is the cookie that carries the session token.
const DefaultSessionCookie = "reweave_session"

// Session binds an opaque token to an identity. Sessions do not expire.
type Session struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	CreatedAt int64  `json:"created_at"`
}

// SessionManager issues, resolves and revokes sessions.
type SessionManager struct {
	Sessions   SessionStore
	Identities IdentityStore
	Now        func() time.Time
}

func (m *SessionManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Create issues a new session for userID.
func (m *SessionManager) Create(userID string) (*Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		ID:        newSessionID(),
		Token:     token,
		UserID:    userID,
		CreatedAt: unixMillis(m.now()),
	}
	if err := m.Sessions.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Resolve returns the identity owning token, or nil when the token is empty,
// unknown, or points to an identity that no longer exists.
func (m *SessionManager) Resolve(token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	session, err := m.Sessions.GetSessionByToken(token)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	identity, err := m.Identities.GetIdentityByID(session.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// Revoke deletes every session carrying token.
func (m *SessionManager) Revoke(token string) error {
	if token == "" {
		return nil
	}
	return m.Sessions.DeleteSessionsByToken(token)
}

// TokenFromRequest extracts a session token, preferring an
// "Authorization: Bearer" header over the named cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
