package authcore

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters compatible with stored users.json credentials.
const (
	DefaultPBKDF2Iterations = 100_000
	DefaultSaltSize         = 16
	DefaultKeyLength        = 32
)

// PBKDF2Hasher derives password digests with PBKDF2-HMAC-SHA256.
// The zero value uses the default parameters.
type PBKDF2Hasher struct {
	Iterations int
	SaltSize   int
	KeyLength  int
}

func (h *PBKDF2Hasher) params() (iter, saltSize, keyLen int) {
	iter, saltSize, keyLen = DefaultPBKDF2Iterations, DefaultSaltSize, DefaultKeyLength
	if h == nil {
		return
	}
	if h.Iterations > 0 {
		iter = h.Iterations
	}
	if h.SaltSize > 0 {
		saltSize = h.SaltSize
	}
	if h.KeyLength > 0 {
		keyLen = h.KeyLength
	}
	return
}

// Hash derives a credential for password using a fresh random salt.
// An empty password is hashed like any other.
func (h *PBKDF2Hasher) Hash(password string) (Credential, error) {
	iter, saltSize, keyLen := h.params()
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	dk := pbkdf2.Key([]byte(password), salt, iter, keyLen, sha256.New)
	return Credential{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Hash: base64.StdEncoding.EncodeToString(dk),
	}, nil
}

// Verify reports whether password matches cred. Malformed or empty stored
// values never match.
func (h *PBKDF2Hasher) Verify(password string, cred Credential) bool {
	iter, _, _ := h.params()
	salt, err := base64.StdEncoding.DecodeString(cred.Salt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(cred.Hash)
	if err != nil || len(expected) == 0 {
		return false
	}
	dk := pbkdf2.Key([]byte(password), salt, iter, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(dk, expected) == 1
}
