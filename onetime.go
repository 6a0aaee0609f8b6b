package authcore

import (
	"errors"
	"fmt"
	"time"
)

// OneTimeKind distinguishes the two kinds of one-time credential.
type OneTimeKind string

const (
	KindOTP   OneTimeKind = "otp"
	KindMagic OneTimeKind = "magic"
)

// Default lifetimes.
const (
	DefaultOTPTTL       = 5 * time.Minute
	DefaultMagicLinkTTL = 15 * time.Minute
)

// OneTimeCredential is a single-use expiring secret issued to an email.
// OTP entries carry Code, magic entries carry Token. Expires is in ms since epoch.
type OneTimeCredential struct {
	Kind    OneTimeKind `json:"type"`
	Email   string      `json:"email"`
	Code    string      `json:"code,omitempty"`
	Token   string      `json:"token,omitempty"`
	Expires int64       `json:"expires"`
}

// Secret returns the code or token, depending on kind.
func (c *OneTimeCredential) Secret() string {
	if c.Kind == KindMagic {
		return c.Token
	}
	return c.Code
}

// Matches reports whether the entry is of kind and carries secret.
func (c *OneTimeCredential) Matches(kind OneTimeKind, email, secret string) bool {
	if c.Kind != kind || secret == "" || c.Secret() != secret {
		return false
	}
	return email == "" || c.Email == email
}

// OneTimeRegistry issues and redeems OTP codes and magic-link tokens.
type OneTimeRegistry struct {
	Store      OneTimeStore
	Identities IdentityStore

	// Now defaults to time.Now.
	Now func() time.Time
}

func (r *OneTimeRegistry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func newSecret(kind OneTimeKind) (string, error) {
	switch kind {
	case KindOTP:
		return RandomNumericCode(OTPDigits)
	case KindMagic:
		return GenerateURLToken()
	}
	return "", fmt.Errorf("unknown one-time kind %q", kind)
}

// Issue creates a new secret for (kind, email), replacing any previous one,
// and returns it.
func (r *OneTimeRegistry) Issue(kind OneTimeKind, email string, ttl time.Duration) (string, error) {
	secret, err := newSecret(kind)
	if err != nil {
		return "", err
	}
	entry := &OneTimeCredential{
		Kind:    kind,
		Email:   email,
		Expires: unixMillis(r.now().Add(ttl)),
	}
	if kind == KindMagic {
		entry.Token = secret
	} else {
		entry.Code = secret
	}
	if err := r.Store.ReplaceOneTime(entry); err != nil {
		return "", fmt.Errorf("failed to store %s credential: %w", kind, err)
	}
	return secret, nil
}

// Lookup returns the live entry matching (kind, email, secret). email is
// ignored for magic links. Returns ErrNotFound or ErrExpired.
func (r *OneTimeRegistry) Lookup(kind OneTimeKind, email, secret string) (*OneTimeCredential, error) {
	if kind == KindMagic {
		email = ""
	}
	if secret == "" || (kind == KindOTP && email == "") {
		return nil, ErrNotFound
	}
	entry, err := r.Store.FindOneTime(kind, email, secret)
	if err != nil {
		return nil, err
	}
	if entry.Expires <= unixMillis(r.now()) {
		return nil, ErrExpired
	}
	return entry, nil
}

// Consume spends entry, removing every entry for its (kind, email). It
// returns ErrNotFound if a concurrent redemption spent it first.
func (r *OneTimeRegistry) Consume(entry *OneTimeCredential) error {
	ok, err := r.Store.ConsumeOneTime(entry.Kind, entry.Email, entry.Secret())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Redeem spends a secret and returns the identity it was issued to. email is
// required for OTP and ignored for magic links.
//
// Magic links resolve the identity before spending the token, so a link for a
// missing identity fails with ErrUserNotFound and stays redeemable. OTP codes
// are spent first.
func (r *OneTimeRegistry) Redeem(kind OneTimeKind, email, secret string) (*Identity, error) {
	entry, err := r.Lookup(kind, email, secret)
	if err != nil {
		return nil, err
	}
	if kind == KindMagic {
		identity, err := r.Identities.GetIdentityByEmail(entry.Email)
		if err != nil {
			return nil, err
		}
		if err := r.Consume(entry); err != nil {
			return nil, err
		}
		return identity, nil
	}
	if err := r.Consume(entry); err != nil {
		return nil, err
	}
	return r.Identities.GetIdentityByEmail(entry.Email)
}

// IsRedeemFailure reports whether err is an expected redemption failure
// rather than a storage fault.
func IsRedeemFailure(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired)
}
