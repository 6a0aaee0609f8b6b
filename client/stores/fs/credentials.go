// Package fs keeps authcore client sessions in a JSON file readable only by
// its owner.
package fs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reweave/authcore/client"
)

// DefaultFileName is created under os.UserConfigDir()/authcore when no path is given.
const DefaultFileName = "credentials.json"

// fileFormat is the on-disk layout:
//
//	{"sessions": {"https://shop.example.com": {"token": "...", "user_id": "user_...", ...}}}
type fileFormat struct {
	Sessions map[string]*client.ServerCredential `json:"sessions"`
}

// FSCredentialStore is a client.CredentialStore persisted to a single file.
type FSCredentialStore struct {
	client.Sessions
	path string
}

var _ client.CredentialStore = (*FSCredentialStore)(nil)

// DefaultPath returns <user config dir>/authcore/credentials.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, "authcore", DefaultFileName), nil
}

// NewFSCredentialStore opens the store at path, or at DefaultPath when path
// is empty. A missing file is an empty store. Entries with an unparseable
// server URL or no token are dropped with a warning.
func NewFSCredentialStore(path string) (*FSCredentialStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	s := &FSCredentialStore{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if dropped := s.Load(file.Sessions); dropped > 0 {
		slog.Warn("dropped invalid client sessions", "path", path, "count", dropped)
	}
	return s, nil
}

// Save writes the sessions if they changed, replacing the file atomically.
func (s *FSCredentialStore) Save() error {
	return s.Snapshot(func(sessions map[string]*client.ServerCredential) error {
		if sessions == nil {
			sessions = map[string]*client.ServerCredential{}
		}
		data, err := json.MarshalIndent(fileFormat{Sessions: sessions}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize sessions: %w", err)
		}
		return writeFile(s.path, data)
	})
}

// Path returns the path to the credentials file
func (s *FSCredentialStore) Path() string {
	return s.path
}

// writeFile writes data through a temp file in the same directory and renames
// it over path, so readers never see a partial file.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
