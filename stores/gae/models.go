//go:build !wasm
// +build !wasm

package gae

import (
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/datastore"
	ac "github.com/reweave/authcore"
)

// IdentityEntity is the Datastore entity for identities
type IdentityEntity struct {
	Key              *datastore.Key `datastore:"__key__"`
	Email            string         `datastore:"email"`
	Name             string         `datastore:"name,noindex"`
	Phone            string         `datastore:"phone,noindex"`
	MarketingConsent bool           `datastore:"marketing_consent"`
	PasswordSalt     string         `datastore:"password_salt,noindex"`
	PasswordHash     string         `datastore:"password_hash,noindex"`
	ResetToken       string         `datastore:"reset_token"`
	ResetExpires     int64          `datastore:"reset_expires"`
	CreatedAt        int64          `datastore:"created_at"`
	LoyaltyPoints    int            `datastore:"loyalty_points"`
	Profile          []byte         `datastore:"profile,noindex"` // JSON encoded profileData
}

// profileData holds the list and map fields that Datastore cannot store natively.
type profileData struct {
	Addresses          []ac.Address     `json:"addresses,omitempty"`
	Wishlist           []string         `json:"wishlist,omitempty"`
	CommunicationPrefs map[string]any   `json:"communication_prefs,omitempty"`
	PaymentMethods     []map[string]any `json:"payment_methods,omitempty"`
}

func (e *IdentityEntity) ToIdentity() *ac.Identity {
	var p profileData
	if e.Profile != nil {
		if err := json.Unmarshal(e.Profile, &p); err != nil {
			slog.Warn("ignoring unreadable identity profile", "id", e.Key.Name, "error", err)
		}
	}
	return &ac.Identity{
		ID:                 e.Key.Name,
		Email:              e.Email,
		Name:               e.Name,
		Phone:              e.Phone,
		MarketingConsent:   e.MarketingConsent,
		PasswordSalt:       e.PasswordSalt,
		PasswordHash:       e.PasswordHash,
		Addresses:          p.Addresses,
		CreatedAt:          e.CreatedAt,
		ResetToken:         e.ResetToken,
		ResetExpires:       e.ResetExpires,
		Wishlist:           p.Wishlist,
		CommunicationPrefs: p.CommunicationPrefs,
		PaymentMethods:     p.PaymentMethods,
		LoyaltyPoints:      e.LoyaltyPoints,
	}
}

func IdentityToEntity(i *ac.Identity, key *datastore.Key) (*IdentityEntity, error) {
	profile, err := json.Marshal(profileData{
		Addresses:          i.Addresses,
		Wishlist:           i.Wishlist,
		CommunicationPrefs: i.CommunicationPrefs,
		PaymentMethods:     i.PaymentMethods,
	})
	if err != nil {
		return nil, err
	}
	return &IdentityEntity{
		Key:              key,
		Email:            i.Email,
		Name:             i.Name,
		Phone:            i.Phone,
		MarketingConsent: i.MarketingConsent,
		PasswordSalt:     i.PasswordSalt,
		PasswordHash:     i.PasswordHash,
		ResetToken:       i.ResetToken,
		ResetExpires:     i.ResetExpires,
		CreatedAt:        i.CreatedAt,
		LoyaltyPoints:    i.LoyaltyPoints,
		Profile:          profile,
	}, nil
}

// EmailIndexEntity reserves an email for one identity.
// Key format: normalized email
type EmailIndexEntity struct {
	UserID string `datastore:"user_id"`
}

// SessionEntity is the Datastore entity for sessions
// Key format: session token
type SessionEntity struct {
	ID        string `datastore:"id"`
	UserID    string `datastore:"user_id"`
	CreatedAt int64  `datastore:"created_at"`
}

// OneTimeEntity is the Datastore entity for OTP and magic-link entries
// Key format: Kind + ":" + Email
type OneTimeEntity struct {
	Kind    string `datastore:"kind"`
	Email   string `datastore:"email"`
	Secret  string `datastore:"secret"`
	Expires int64  `datastore:"expires"`
}

func (e *OneTimeEntity) ToOneTime() *ac.OneTimeCredential {
	c := &ac.OneTimeCredential{
		Kind:    ac.OneTimeKind(e.Kind),
		Email:   e.Email,
		Expires: e.Expires,
	}
	if c.Kind == ac.KindMagic {
		c.Token = e.Secret
	} else {
		c.Code = e.Secret
	}
	return c
}
