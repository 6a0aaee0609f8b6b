//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ac "github.com/reweave/authcore"
)

// newTestStore connects to the Datastore emulator. Each test gets its own
// namespace so runs do not interfere.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := datastore.NewClient(ctx, "authcore-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewStore(client, fmt.Sprintf("test-%d", time.Now().UnixNano())).WithContext(ctx)
}

func TestCreateAndGetIdentity(t *testing.T) {
	s := newTestStore(t)
	in := &ac.Identity{ID: "user_1", Email: "a@x.com", Name: "Ana", Wishlist: []string{"p1"}, LoyaltyPoints: 3}
	require.NoError(t, s.CreateIdentity(in))
	assert.ErrorIs(t, s.CreateIdentity(&ac.Identity{ID: "user_2", Email: "a@x.com"}), ac.ErrEmailExists)

	got, err := s.GetIdentityByEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "user_1", got.ID)
	assert.Equal(t, []string{"p1"}, got.Wishlist)
	assert.Equal(t, 3, got.LoyaltyPoints)

	_, err = s.GetIdentityByEmail("b@x.com")
	assert.ErrorIs(t, err, ac.ErrUserNotFound)
}

func TestResetFlow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateIdentity(&ac.Identity{ID: "user_1", Email: "a@x.com"}))
	require.NoError(t, s.SetResetToken("a@x.com", "tok", 5000))

	var got *ac.Identity
	// Non-ancestor queries on the emulator are eventually consistent.
	require.Eventually(t, func() bool {
		var err error
		got, err = s.CompleteReset("tok", 4000, ac.Credential{Salt: "s", Hash: "h"})
		return err == nil
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, "h", got.PasswordHash)

	_, err := s.CompleteReset("tok", 4000, ac.Credential{})
	assert.ErrorIs(t, err, ac.ErrInvalidOrExpired)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateSession(&ac.Session{ID: "sess_1", Token: "tok", UserID: "user_1"}))
	got, err := s.GetSessionByToken("tok")
	require.NoError(t, err)
	assert.Equal(t, "sess_1", got.ID)

	require.NoError(t, s.DeleteSessionsByToken("tok"))
	require.NoError(t, s.DeleteSessionsByToken("tok"))
	_, err = s.GetSessionByToken("tok")
	assert.ErrorIs(t, err, ac.ErrNotFound)
}

func TestOneTime(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindOTP, Email: "a@x.com", Code: "111111", Expires: 10}))
	require.NoError(t, s.ReplaceOneTime(&ac.OneTimeCredential{Kind: ac.KindOTP, Email: "a@x.com", Code: "222222", Expires: 10}))

	_, err := s.FindOneTime(ac.KindOTP, "a@x.com", "111111")
	assert.ErrorIs(t, err, ac.ErrNotFound)

	ok, err := s.ConsumeOneTime(ac.KindOTP, "a@x.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ConsumeOneTime(ac.KindOTP, "a@x.com", "222222")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Empty emails and ids are not valid key names; they must read as unknown
// users without reaching Datastore.
func TestEmptyKeyIsUserNotFound(t *testing.T) {
	s := NewStore(nil, "test")

	_, err := s.GetIdentityByEmail("")
	assert.ErrorIs(t, err, ac.ErrUserNotFound)
	_, err = s.GetIdentityByID("")
	assert.ErrorIs(t, err, ac.ErrUserNotFound)
	assert.ErrorIs(t, s.SetResetToken("", "tok", 5000), ac.ErrUserNotFound)
}

func TestToIdentityUnreadableProfile(t *testing.T) {
	e := &IdentityEntity{
		Key:     datastore.NameKey(KindIdentity, "user_1", nil),
		Email:   "a@x.com",
		Profile: []byte("{not json"),
	}
	got := e.ToIdentity()
	assert.Equal(t, "user_1", got.ID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Empty(t, got.Wishlist)
}
