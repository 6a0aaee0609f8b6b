// Package client is a Go client for the authcore HTTP API. It keeps the
// session token per server in a CredentialStore and sends it as a bearer
// token on authenticated calls.
package client

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCredential is returned when storing a credential without a token.
var ErrInvalidCredential = errors.New("credential has no session token")

// ServerCredential is the session a server issued at login. Tokens are opaque
// and do not expire; a credential is only dropped on logout.
type ServerCredential struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *ServerCredential) Validate() error {
	if c == nil || strings.TrimSpace(c.Token) == "" {
		return ErrInvalidCredential
	}
	return nil
}

// NormalizeServerURL reduces a server URL to the lowercase scheme://host key
// credentials are stored under. A missing scheme defaults to https and any
// path, such as the /api prefix, is dropped.
func NormalizeServerURL(serverURL string) (string, error) {
	raw := strings.TrimSpace(serverURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: no host", serverURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// CredentialStore holds one session credential per server. Implementations
// key entries by NormalizeServerURL.
type CredentialStore interface {
	// GetCredential returns nil, nil if no credential exists for the server.
	GetCredential(serverURL string) (*ServerCredential, error)

	// SetCredential fails with ErrInvalidCredential for a credential without a token.
	SetCredential(serverURL string, cred *ServerCredential) error

	RemoveCredential(serverURL string) error

	// ListServers returns the normalized URLs with stored credentials, sorted.
	ListServers() ([]string, error)

	// Save persists pending changes. Stores without persistence return nil.
	Save() error
}

// Sessions is a concurrency-safe map of normalized server URL to credential.
// CredentialStore implementations embed it and add persistence.
type Sessions struct {
	mu      sync.RWMutex
	servers map[string]*ServerCredential
	dirty   bool
}

func (s *Sessions) GetCredential(serverURL string) (*ServerCredential, error) {
	key, err := NormalizeServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[key], nil
}

func (s *Sessions) SetCredential(serverURL string, cred *ServerCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	key, err := NormalizeServerURL(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.servers == nil {
		s.servers = make(map[string]*ServerCredential)
	}
	s.servers[key] = cred
	s.dirty = true
	return nil
}

func (s *Sessions) RemoveCredential(serverURL string) error {
	key, err := NormalizeServerURL(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[key]; ok {
		delete(s.servers, key)
		s.dirty = true
	}
	return nil
}

func (s *Sessions) ListServers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	servers := make([]string, 0, len(s.servers))
	for k := range s.servers {
		servers = append(servers, k)
	}
	sort.Strings(servers)
	return servers, nil
}

// Snapshot calls fn with the current entries if they changed since the last
// successful snapshot. fn must not retain the map.
func (s *Sessions) Snapshot(fn func(map[string]*ServerCredential) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := fn(s.servers); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Load replaces the entries, dropping keys that do not normalize and
// credentials without a token. It returns the number dropped.
func (s *Sessions) Load(entries map[string]*ServerCredential) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = make(map[string]*ServerCredential, len(entries))
	dropped := 0
	for k, cred := range entries {
		key, err := NormalizeServerURL(k)
		if err != nil || cred.Validate() != nil {
			dropped++
			continue
		}
		s.servers[key] = cred
	}
	s.dirty = false
	return dropped
}

// MemoryCredentialStore keeps credentials for the life of the process.
type MemoryCredentialStore struct {
	Sessions
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Save() error { return nil }
