//go:build !wasm
// +build !wasm

package gorm

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ac "github.com/reweave/authcore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return NewStore(db)
}

func TestIdentityRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := &ac.Identity{
		ID:                 "user_1",
		Email:              "a@x.com",
		Name:               "Ana",
		MarketingConsent:   true,
		PasswordSalt:       "salt",
		PasswordHash:       "hash",
		Addresses:          []ac.Address{{ID: "addr_1", City: "Yogyakarta", IsDefault: true}},
		Wishlist:           []string{"p1", "p2"},
		CommunicationPrefs: map[string]any{"email": true},
		LoyaltyPoints:      12,
		CreatedAt:          1700000000000,
	}
	require.NoError(t, s.CreateIdentity(in))

	got, err := s.GetIdentityByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Addresses, got.Addresses)
	assert.Equal(t, in.Wishlist, got.Wishlist)
	assert.Equal(t, true, got.CommunicationPrefs["email"])
	assert.Equal(t, 12, got.LoyaltyPoints)
	assert.Equal(t, int64(1700000000000), got.CreatedAt)

	_, err = s.GetIdentityByID("user_2")
	assert.ErrorIs(t, err, ac.ErrUserNotFound)
}

func TestDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateIdentity(&ac.Identity{ID: "user_1", Email: "a@x.com"}))
	assert.ErrorIs(t, s.CreateIdentity(&ac.Identity{ID: "user_2", Email: "a@x.com"}), ac.ErrEmailExists)
}

func TestCompleteReset(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateIdentity(&ac.Identity{ID: "user_1", Email: "a@x.com"}))
	require.NoError(t, s.SetResetToken("a@x.com", "tok", 5000))
	assert.ErrorIs(t, s.SetResetToken("b@x.com", "tok", 5000), ac.ErrUserNotFound)

	_, err := s.CompleteReset("tok", 5000, ac.Credential{Salt: "s", Hash: "h"})
	assert.ErrorIs(t, err, ac.ErrInvalidOrExpired)

	got, err := s.CompleteReset("tok", 4000, ac.Credential{Salt: "s", Hash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
	assert.Empty(t, got.ResetToken)

	stored, err := s.GetIdentityByID("user_1")
	require.NoError(t, err)
	assert.Equal(t, "s", stored.PasswordSalt)
	assert.Zero(t, stored.ResetExpires)

	_, err = s.CompleteReset("tok", 4000, ac.Credential{})
	assert.ErrorIs(t, err, ac.ErrInvalidOrExpired)
}

func TestSessionStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateSession(&ac.Session{ID: "sess_1", Token: "tok", UserID: "user_1", CreatedAt: 1}))

	got, err := s.GetSessionByToken("tok")
	require.NoError(t, err)
	assert.Equal(t, "user_1", got.UserID)

	require.NoError(t, s.DeleteSessionsByToken("tok"))
	require.NoError(t, s.DeleteSessionsByToken("tok"))
	_, err = s.GetSessionByToken("tok")
	assert.ErrorIs(t, err, ac.ErrNotFound)
}

func TestOneTimeStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindOTP, Email: "a@x.com", Code: "123456", Expires: 10}))
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindOTP, Email: "a@x.com", Code: "654321", Expires: 20}))
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindMagic, Email: "a@x.com", Token: "mtok", Expires: 30}))

	_, err := s.FindOneTime(ac.KindOTP, "a@x.com", "123456")
	assert.ErrorIs(t, err, ac.ErrNotFound)

	otp, err := s.FindOneTime(ac.KindOTP, "a@x.com", "654321")
	require.NoError(t, err)
	assert.Equal(t, "654321", otp.Code)
	assert.Equal(t, int64(20), otp.Expires)

	magic, err := s.FindOneTime(ac.KindMagic, "", "mtok")
	require.NoError(t, err)
	assert.Equal(t, "mtok", magic.Token)
	assert.Equal(t, "a@x.com", magic.Email)

	ok, err := s.ConsumeOneTime(ac.KindOTP, "a@x.com", "654321")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ConsumeOneTime(ac.KindOTP, "a@x.com", "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.FindOneTime(ac.KindMagic, "", "mtok")
	assert.NoError(t, err)
}

func TestConcurrentConsume(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindMagic, Email: "a@x.com", Token: "m", Expires: 10}))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := s.ConsumeOneTime(ac.KindMagic, "a@x.com", "m"); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestReplaceOneTimeKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindOTP, Email: "a@x.com", Code: "111111", Expires: 10}))
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindOTP, Email: "a@x.com", Code: "222222", Expires: 20}))
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindMagic, Email: "a@x.com", Token: "m", Expires: 30}))

	var count int64
	require.NoError(t, s.db.Model(&OneTimeModel{}).Where("kind = ? AND email = ?", "otp", "a@x.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := s.FindOneTime(ac.KindOTP, "a@x.com", "222222")
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Expires)
	_, err = s.FindOneTime(ac.KindOTP, "a@x.com", "111111")
	assert.ErrorIs(t, err, ac.ErrNotFound)
	_, err = s.FindOneTime(ac.KindMagic, "", "m")
	assert.NoError(t, err)

	// A duplicate (kind, email) insert that bypasses the upsert is rejected.
	err = s.db.Create(&OneTimeModel{Kind: "otp", Email: "a@x.com", Secret: "333333", Expires: 40}).Error
	assert.Error(t, err)
}

func TestConcurrentIssueThenRedeem(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateIdentity(&ac.Identity{ID: "user_1", Email: "a@x.com"}))
	registry := &ac.OneTimeRegistry{Store: s, Identities: s}

	const n = 20
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := registry.Issue(ac.KindOTP, "a@x.com", ac.DefaultOTPTTL)
			assert.NoError(t, err)
			codes[i] = code
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, code := range codes {
		if _, err := registry.Redeem(ac.KindOTP, "a@x.com", code); err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ac.ErrNotFound)
		}
	}
	assert.Equal(t, 1, wins)

	var count int64
	require.NoError(t, s.db.Model(&OneTimeModel{}).Where("kind = ? AND email = ?", "otp", "a@x.com").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
