// Package fs stores identities, sessions and one-time credentials as JSON
// array files in a single directory:
//
//	users.json     identities, including pending reset tokens
//	sessions.json  sessions
//	otps.json      OTP and magic-link entries
//
// Each file is rewritten in full on every change through a temp file and
// rename. Changes are serialized per file within one process; running two
// processes against the same directory is not supported.
package fs

import (
	"fmt"
	"os"
	"path/filepath"

	ac "github.com/reweave/authcore"
)

// Store implements ac.IdentityStore, ac.SessionStore and ac.OneTimeStore.
type Store struct {
	StoragePath string

	users    *collection[ac.Identity]
	sessions *collection[ac.Session]
	otps     *collection[ac.OneTimeCredential]
}

var (
	_ ac.IdentityStore = (*Store)(nil)
	_ ac.SessionStore  = (*Store)(nil)
	_ ac.OneTimeStore  = (*Store)(nil)
)

// NewStore opens a store rooted at storagePath, creating the directory if needed.
func NewStore(storagePath string) (*Store, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Store{
		StoragePath: storagePath,
		users:       &collection[ac.Identity]{path: filepath.Join(storagePath, "users.json")},
		sessions:    &collection[ac.Session]{path: filepath.Join(storagePath, "sessions.json")},
		otps:        &collection[ac.OneTimeCredential]{path: filepath.Join(storagePath, "otps.json")},
	}, nil
}
