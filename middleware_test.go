package authcore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	ac "github.com/reweave/authcore"
)

func TestMiddleware_ExtractIdentity(t *testing.T) {
	auth, _, _ := setupTestAuth(t)
	user := mustSignup(t, auth, "a@x.com", "pw")
	m := &ac.Middleware{Auth: auth}

	var got *ac.Identity
	handler := m.ExtractIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ac.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// Anonymous requests pass through without an identity.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent || got != nil {
		t.Errorf("expected anonymous pass-through, got %d %+v", rec.Code, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.ID != user.User.ID {
		t.Errorf("expected identity %s in context, got %+v", user.User.ID, got)
	}
}

func TestMiddleware_EnsureIdentity(t *testing.T) {
	auth, _, _ := setupTestAuth(t)
	user := mustSignup(t, auth, "a@x.com", "pw")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	m := &ac.Middleware{Auth: auth}
	rec := httptest.NewRecorder()
	m.EnsureIdentity(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("expected 401 without calling next, got %d called=%v", rec.Code, called)
	}

	m.OnUnauthorized = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}
	rec = httptest.NewRecorder()
	m.EnsureIdentity(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected custom unauthorized handler, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: user.Token})
	rec = httptest.NewRecorder()
	m.EnsureIdentity(next).ServeHTTP(rec, req)
	if !called {
		t.Error("expected next to be called with a valid session")
	}
}

func TestIdentityContext(t *testing.T) {
	if ac.IdentityFromContext(context.Background()) != nil {
		t.Error("expected nil identity on empty context")
	}
	identity := &ac.Identity{ID: "user_1"}
	ctx := ac.WithIdentity(context.Background(), identity)
	if ac.IdentityFromContext(ctx) != identity {
		t.Error("expected identity round trip through context")
	}
}
