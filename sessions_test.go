package authcore_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	ac "github.com/reweave/authcore"
)

func TestSessionManager_Lifecycle(t *testing.T) {
	auth, _, clock := setupTestAuth(t)
	user := mustSignup(t, auth, "a@x.com", "pw")
	sessions := auth.SessionManager()

	session, err := sessions.Create(user.User.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(session.Token) != 64 {
		t.Errorf("expected 64 character token, got %q", session.Token)
	}
	if session.CreatedAt != clock.Now().UnixMilli() {
		t.Errorf("expected CreatedAt %d, got %d", clock.Now().UnixMilli(), session.CreatedAt)
	}

	identity, err := sessions.Resolve(session.Token)
	if err != nil || identity == nil || identity.ID != user.User.ID {
		t.Fatalf("Resolve() = %+v, %v", identity, err)
	}

	// Each login gets its own session; revoking one leaves the others.
	if err := sessions.Revoke(user.Token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if identity, _ := sessions.Resolve(user.Token); identity != nil {
		t.Error("expected revoked token to resolve to nil")
	}
	if identity, _ := sessions.Resolve(session.Token); identity == nil {
		t.Error("expected second session to survive")
	}
}

func TestSessionManager_ResolveMisses(t *testing.T) {
	auth, _, _ := setupTestAuth(t)
	sessions := auth.SessionManager()

	orphan, err := sessions.Create("user_missing")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for name, token := range map[string]string{
		"empty":            "",
		"unknown":          "deadbeef",
		"missing identity": orphan.Token,
	} {
		t.Run(name, func(t *testing.T) {
			identity, err := sessions.Resolve(token)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if identity != nil {
				t.Errorf("expected nil identity, got %+v", identity)
			}
		})
	}

	if err := sessions.Revoke("deadbeef"); err != nil {
		t.Errorf("expected revoking an unknown token to succeed, got %v", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"none", "", "", ""},
		{"cookie", "", "from-cookie", "from-cookie"},
		{"bearer", "Bearer from-header", "", "from-header"},
		{"bearer wins", "Bearer from-header", "from-cookie", "from-header"},
		{"non bearer header falls back", "Basic abc", "from-cookie", "from-cookie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: ac.DefaultSessionCookie, Value: tt.cookie})
			}
			if got := ac.TokenFromRequest(r, ""); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenFromRequest_CustomCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: ac.DefaultSessionCookie, Value: "default"})
	r.AddCookie(&http.Cookie{Name: "shop_session", Value: "custom"})

	if got := ac.TokenFromRequest(r, "shop_session"); got != "custom" {
		t.Errorf("expected custom cookie value, got %q", got)
	}
}
