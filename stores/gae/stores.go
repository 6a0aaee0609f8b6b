//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	ac "github.com/reweave/authcore"
)

// Kind constants for Datastore entities
const (
	KindIdentity   = "Identity"
	KindEmailIndex = "EmailIndex"
	KindSession    = "Session"
	KindOneTime    = "OneTime"
)

// Store implements ac.IdentityStore, ac.SessionStore and ac.OneTimeStore
// using Google Cloud Datastore
type Store struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

var (
	_ ac.IdentityStore = (*Store)(nil)
	_ ac.SessionStore  = (*Store)(nil)
	_ ac.OneTimeStore  = (*Store)(nil)
)

// NewStore creates a new Datastore-backed Store
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{
		client:    s.client,
		namespace: s.namespace,
		ctx:       ctx,
	}
}

func (s *Store) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) query(kind string) *datastore.Query {
	q := datastore.NewQuery(kind)
	if s.namespace != "" {
		q = q.Namespace(s.namespace)
	}
	return q
}

func oneTimeKeyName(kind ac.OneTimeKind, email string) string {
	return string(kind) + ":" + email
}

// ============================================================================
// IdentityStore
// ============================================================================

func (s *Store) CreateIdentity(identity *ac.Identity) error {
	idxKey := s.namespacedKey(KindEmailIndex, identity.Email)
	key := s.namespacedKey(KindIdentity, identity.ID)
	entity, err := IdentityToEntity(identity, key)
	if err != nil {
		return err
	}

	_, err = s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var idx EmailIndexEntity
		err := tx.Get(idxKey, &idx)
		if err == nil {
			return ac.ErrEmailExists
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}
		if _, err := tx.Put(idxKey, &EmailIndexEntity{UserID: identity.ID}); err != nil {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	})
	return err
}

// GetIdentityByEmail returns ErrUserNotFound for an empty email, which is not
// a valid key name.
func (s *Store) GetIdentityByEmail(email string) (*ac.Identity, error) {
	if email == "" {
		return nil, ac.ErrUserNotFound
	}
	var idx EmailIndexEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindEmailIndex, email), &idx); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, ac.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetIdentityByID(idx.UserID)
}

func (s *Store) GetIdentityByID(id string) (*ac.Identity, error) {
	if id == "" {
		return nil, ac.ErrUserNotFound
	}
	var entity IdentityEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindIdentity, id), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, ac.ErrUserNotFound
		}
		return nil, err
	}
	return entity.ToIdentity(), nil
}

func (s *Store) SetResetToken(email, token string, expires int64) error {
	if email == "" {
		return ac.ErrUserNotFound
	}
	var idx EmailIndexEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindEmailIndex, email), &idx); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return ac.ErrUserNotFound
		}
		return err
	}

	key := s.namespacedKey(KindIdentity, idx.UserID)
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var entity IdentityEntity
		if err := tx.Get(key, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return ac.ErrUserNotFound
			}
			return err
		}
		entity.ResetToken = token
		entity.ResetExpires = expires
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

// CompleteReset locates candidates with a query and re-checks the token and
// expiry inside the transaction, since queries are not transactional.
func (s *Store) CompleteReset(token string, now int64, cred ac.Credential) (*ac.Identity, error) {
	if token == "" {
		return nil, ac.ErrInvalidOrExpired
	}
	keys, err := s.client.GetAll(s.ctx, s.query(KindIdentity).FilterField("reset_token", "=", token).KeysOnly(), nil)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		var updated *ac.Identity
		_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
			var entity IdentityEntity
			if err := tx.Get(key, &entity); err != nil {
				return err
			}
			if entity.ResetToken != token || entity.ResetExpires <= now {
				return ac.ErrInvalidOrExpired
			}
			entity.PasswordSalt = cred.Salt
			entity.PasswordHash = cred.Hash
			entity.ResetToken = ""
			entity.ResetExpires = 0
			if _, err := tx.Put(key, &entity); err != nil {
				return err
			}
			updated = entity.ToIdentity()
			return nil
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, ac.ErrInvalidOrExpired) && err != datastore.ErrNoSuchEntity {
			return nil, err
		}
	}
	return nil, ac.ErrInvalidOrExpired
}

// ============================================================================
// SessionStore
// ============================================================================

func (s *Store) CreateSession(session *ac.Session) error {
	key := s.namespacedKey(KindSession, session.Token)
	_, err := s.client.Put(s.ctx, key, &SessionEntity{
		ID:        session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
	})
	return err
}

func (s *Store) GetSessionByToken(token string) (*ac.Session, error) {
	if token == "" {
		return nil, ac.ErrNotFound
	}
	var entity SessionEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(KindSession, token), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, ac.ErrNotFound
		}
		return nil, err
	}
	return &ac.Session{
		ID:        entity.ID,
		Token:     token,
		UserID:    entity.UserID,
		CreatedAt: entity.CreatedAt,
	}, nil
}

func (s *Store) DeleteSessionsByToken(token string) error {
	if token == "" {
		return nil
	}
	return s.client.Delete(s.ctx, s.namespacedKey(KindSession, token))
}

// ============================================================================
// OneTimeStore
// ============================================================================

func (s *Store) ReplaceOneTime(entry *ac.OneTimeCredential) error {
	key := s.namespacedKey(KindOneTime, oneTimeKeyName(entry.Kind, entry.Email))
	_, err := s.client.Put(s.ctx, key, &OneTimeEntity{
		Kind:    string(entry.Kind),
		Email:   entry.Email,
		Secret:  entry.Secret(),
		Expires: entry.Expires,
	})
	return err
}

func (s *Store) FindOneTime(kind ac.OneTimeKind, email, secret string) (*ac.OneTimeCredential, error) {
	if secret == "" {
		return nil, ac.ErrNotFound
	}
	if email != "" {
		var entity OneTimeEntity
		if err := s.client.Get(s.ctx, s.namespacedKey(KindOneTime, oneTimeKeyName(kind, email)), &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return nil, ac.ErrNotFound
			}
			return nil, err
		}
		if entity.Secret != secret {
			return nil, ac.ErrNotFound
		}
		return entity.ToOneTime(), nil
	}

	query := s.query(KindOneTime).
		FilterField("kind", "=", string(kind)).
		FilterField("secret", "=", secret).
		Limit(1)
	it := s.client.Run(s.ctx, query)
	var entity OneTimeEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, ac.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.ToOneTime(), nil
}

func (s *Store) ConsumeOneTime(kind ac.OneTimeKind, email, secret string) (bool, error) {
	key := s.namespacedKey(KindOneTime, oneTimeKeyName(kind, email))
	consumed := false
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		consumed = false
		var entity OneTimeEntity
		if err := tx.Get(key, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return nil
			}
			return err
		}
		if entity.Secret != secret {
			return nil
		}
		consumed = true
		return tx.Delete(key)
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}
