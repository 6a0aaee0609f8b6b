//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	ac "github.com/reweave/authcore"
)

// JSONValue stores an arbitrary value as a JSON column.
type JSONValue[T any] struct {
	V T
}

func (j JSONValue[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (j *JSONValue[T]) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	return json.Unmarshal(data, &j.V)
}

// IdentityModel is the GORM model for identities
type IdentityModel struct {
	ID                 string                      `gorm:"primaryKey;size:64"`
	Email              string                      `gorm:"uniqueIndex;size:320;not null"`
	Name               string                      `gorm:"size:255"`
	Phone              string                      `gorm:"size:64"`
	MarketingConsent   bool                        `gorm:"default:false"`
	PasswordSalt       string                      `gorm:"size:64"`
	PasswordHash       string                      `gorm:"size:128"`
	Addresses          JSONValue[[]ac.Address]     `gorm:"type:text"`
	Wishlist           JSONValue[[]string]         `gorm:"type:text"`
	CommunicationPrefs JSONValue[map[string]any]   `gorm:"type:text"`
	PaymentMethods     JSONValue[[]map[string]any] `gorm:"type:text"`
	LoyaltyPoints      int                         `gorm:"default:0"`
	ResetToken         string                      `gorm:"index;size:64"`
	ResetExpires       int64
	CreatedAt          int64
}

func (IdentityModel) TableName() string {
	return "identities"
}

func (m *IdentityModel) ToIdentity() *ac.Identity {
	return &ac.Identity{
		ID:                 m.ID,
		Email:              m.Email,
		Name:               m.Name,
		Phone:              m.Phone,
		MarketingConsent:   m.MarketingConsent,
		PasswordSalt:       m.PasswordSalt,
		PasswordHash:       m.PasswordHash,
		Addresses:          m.Addresses.V,
		Wishlist:           m.Wishlist.V,
		CommunicationPrefs: m.CommunicationPrefs.V,
		PaymentMethods:     m.PaymentMethods.V,
		LoyaltyPoints:      m.LoyaltyPoints,
		ResetToken:         m.ResetToken,
		ResetExpires:       m.ResetExpires,
		CreatedAt:          m.CreatedAt,
	}
}

func IdentityToModel(i *ac.Identity) *IdentityModel {
	return &IdentityModel{
		ID:                 i.ID,
		Email:              i.Email,
		Name:               i.Name,
		Phone:              i.Phone,
		MarketingConsent:   i.MarketingConsent,
		PasswordSalt:       i.PasswordSalt,
		PasswordHash:       i.PasswordHash,
		Addresses:          JSONValue[[]ac.Address]{V: i.Addresses},
		Wishlist:           JSONValue[[]string]{V: i.Wishlist},
		CommunicationPrefs: JSONValue[map[string]any]{V: i.CommunicationPrefs},
		PaymentMethods:     JSONValue[[]map[string]any]{V: i.PaymentMethods},
		LoyaltyPoints:      i.LoyaltyPoints,
		ResetToken:         i.ResetToken,
		ResetExpires:       i.ResetExpires,
		CreatedAt:          i.CreatedAt,
	}
}

// SessionModel is the GORM model for sessions
type SessionModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Token     string `gorm:"uniqueIndex;size:128;not null"`
	UserID    string `gorm:"index;size:64"`
	CreatedAt int64
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *ac.Session {
	return &ac.Session{
		ID:        m.ID,
		Token:     m.Token,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}

// OneTimeModel is the GORM model for OTP and magic-link entries. There is at
// most one row per (kind, email).
type OneTimeModel struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	Kind    string `gorm:"size:16;uniqueIndex:idx_one_time_kind_email"`
	Email   string `gorm:"size:320;uniqueIndex:idx_one_time_kind_email"`
	Secret  string `gorm:"size:128;index"`
	Expires int64
}

func (OneTimeModel) TableName() string {
	return "one_time_credentials"
}

func (m *OneTimeModel) ToOneTime() *ac.OneTimeCredential {
	c := &ac.OneTimeCredential{
		Kind:    ac.OneTimeKind(m.Kind),
		Email:   m.Email,
		Expires: m.Expires,
	}
	if c.Kind == ac.KindMagic {
		c.Token = m.Secret
	} else {
		c.Code = m.Secret
	}
	return c
}
