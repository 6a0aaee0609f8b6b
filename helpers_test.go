package authcore_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	ac "github.com/reweave/authcore"
	"github.com/reweave/authcore/stores/fs"
)

// testClock is a settable clock for expiry tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureSender records the last secret sent to each address.
type captureSender struct {
	mu     sync.Mutex
	otps   map[string]string
	links  map[string]string
	resets map[string]string
	err    error
}

func newCaptureSender() *captureSender {
	return &captureSender{
		otps:   make(map[string]string),
		links:  make(map[string]string),
		resets: make(map[string]string),
	}
}

func (s *captureSender) SendOTP(to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[to] = code
	return s.err
}

func (s *captureSender) SendMagicLink(to, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[to] = link
	return s.err
}

func (s *captureSender) SendPasswordReset(to, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[to] = token
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestAuth returns an Authenticator over a fresh fs store with a fast
// hasher and a controllable clock.
func setupTestAuth(t *testing.T) (*ac.Authenticator, *fs.Store, *testClock) {
	t.Helper()
	store, err := fs.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	clock := newTestClock()
	auth := &ac.Authenticator{
		Identities: store,
		Sessions:   store,
		OneTime:    store,
		Hasher:     &ac.PBKDF2Hasher{Iterations: 1000},
		Logger:     discardLogger(),
		Now:        clock.Now,
	}
	auth.EnsureDefaults()
	return auth, store, clock
}

func mustSignup(t *testing.T, auth *ac.Authenticator, email, password string) *ac.AuthResult {
	t.Helper()
	res, err := auth.Signup(ac.SignupRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Signup(%q) error = %v", email, err)
	}
	return res
}
