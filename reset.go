package authcore

import (
	"fmt"
	"time"
)

const DefaultResetTTL = 15 * time.Minute

// ResetFlow issues and redeems password reset tokens stored on the identity.
type ResetFlow struct {
	Identities IdentityStore
	Hasher     *PBKDF2Hasher
	TTL        time.Duration
	Now        func() time.Time
}

func (f *ResetFlow) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// RequestReset sets a fresh reset token on the identity and returns it.
func (f *ResetFlow) RequestReset(email string) (string, error) {
	token, err := GenerateURLToken()
	if err != nil {
		return "", err
	}
	ttl := f.TTL
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	if err := f.Identities.SetResetToken(email, token, unixMillis(f.now().Add(ttl))); err != nil {
		return "", err
	}
	return token, nil
}

// CompleteReset replaces the password of the identity holding token.
// Unknown and expired tokens both yield ErrInvalidOrExpired.
func (f *ResetFlow) CompleteReset(token, newPassword string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidOrExpired
	}
	cred, err := f.Hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return f.Identities.CompleteReset(token, unixMillis(f.now()), cred)
}
