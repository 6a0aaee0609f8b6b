package authcore

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is a registered account. Field names follow the users.json layout.
type Identity struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	MarketingConsent bool      `json:"marketing_consent"`
	PasswordSalt     string    `json:"password_salt"`
	PasswordHash     string    `json:"password_hash"`
	Addresses        []Address `json:"addresses"`
	CreatedAt        int64     `json:"created_at"`

	// Pending password reset. Both are cleared together.
	ResetToken   string `json:"reset_token,omitempty"`
	ResetExpires int64  `json:"reset_expires,omitempty"`

	Wishlist           []string         `json:"wishlist,omitempty"`
	CommunicationPrefs map[string]any   `json:"communication_prefs,omitempty"`
	PaymentMethods     []map[string]any `json:"payment_methods,omitempty"`
	LoyaltyPoints      int              `json:"loyalty_points,omitempty"`
}

// Credential is a salt and PBKDF2 digest pair, both standard base64.
type Credential struct {
	Salt string
	Hash string
}

func (i *Identity) Credential() Credential {
	return Credential{Salt: i.PasswordSalt, Hash: i.PasswordHash}
}

func (i *Identity) SetCredential(c Credential) {
	i.PasswordSalt = c.Salt
	i.PasswordHash = c.Hash
}

// Address is a stored shipping address.
type Address struct {
	ID        string `json:"id"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	IsDefault bool   `json:"is_default"`
}

// PublicProfile is the redacted view of an Identity returned to clients.
type PublicProfile struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	MarketingConsent bool   `json:"marketing_consent"`
}

// MeView is the profile returned to the owner of a session.
type MeView struct {
	PublicProfile
	Addresses          []Address        `json:"addresses"`
	Wishlist           []string         `json:"wishlist"`
	CommunicationPrefs map[string]any   `json:"communication_prefs"`
	PaymentMethods     []map[string]any `json:"payment_methods"`
	LoyaltyPoints      int              `json:"loyalty_points"`
}

func (i *Identity) Public() PublicProfile {
	return PublicProfile{
		ID:               i.ID,
		Email:            i.Email,
		Name:             i.Name,
		Phone:            i.Phone,
		MarketingConsent: i.MarketingConsent,
	}
}

// Me builds the owner view, substituting empty values for absent fields.
func (i *Identity) Me() MeView {
	v := MeView{
		PublicProfile:      i.Public(),
		Addresses:          i.Addresses,
		Wishlist:           i.Wishlist,
		CommunicationPrefs: i.CommunicationPrefs,
		PaymentMethods:     i.PaymentMethods,
		LoyaltyPoints:      i.LoyaltyPoints,
	}
	if v.Addresses == nil {
		v.Addresses = []Address{}
	}
	if v.Wishlist == nil {
		v.Wishlist = []string{}
	}
	if v.CommunicationPrefs == nil {
		v.CommunicationPrefs = map[string]any{}
	}
	if v.PaymentMethods == nil {
		v.PaymentMethods = []map[string]any{}
	}
	return v
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newIdentityID() string { return "user_" + uuid.NewString() }

func newSessionID() string { return "sess_" + uuid.NewString() }

func unixMillis(t time.Time) int64 { return t.UnixMilli() }
