//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ac "github.com/reweave/authcore"
)

// AutoMigrate runs database migrations for all authcore tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&IdentityModel{},
		&SessionModel{},
		&OneTimeModel{},
	)
}

// Store implements ac.IdentityStore, ac.SessionStore and ac.OneTimeStore using GORM
type Store struct {
	db *gorm.DB
}

var (
	_ ac.IdentityStore = (*Store)(nil)
	_ ac.SessionStore  = (*Store)(nil)
	_ ac.OneTimeStore  = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// =============================================================================
// IdentityStore
// =============================================================================

func emailTaken(tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := tx.Model(&IdentityModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreateIdentity(identity *ac.Identity) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, identity.Email)
		if err != nil {
			return err
		}
		if taken {
			return ac.ErrEmailExists
		}
		return tx.Create(IdentityToModel(identity)).Error
	})
	if err == nil || errors.Is(err, ac.ErrEmailExists) {
		return err
	}
	// A concurrent insert can pass the check and trip the unique index instead.
	if taken, checkErr := emailTaken(s.db, identity.Email); checkErr == nil && taken {
		return ac.ErrEmailExists
	}
	return err
}

func (s *Store) getIdentity(query string, arg any) (*ac.Identity, error) {
	var model IdentityModel
	if err := s.db.First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

func (s *Store) GetIdentityByEmail(email string) (*ac.Identity, error) {
	return s.getIdentity("email = ?", email)
}

func (s *Store) GetIdentityByID(id string) (*ac.Identity, error) {
	return s.getIdentity("id = ?", id)
}

func (s *Store) SetResetToken(email, token string, expires int64) error {
	res := s.db.Model(&IdentityModel{}).
		Where("email = ?", email).
		Updates(map[string]any{"reset_token": token, "reset_expires": expires})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ac.ErrUserNotFound
	}
	return nil
}

func (s *Store) CompleteReset(token string, now int64, cred ac.Credential) (*ac.Identity, error) {
	if token == "" {
		return nil, ac.ErrInvalidOrExpired
	}
	var updated *ac.Identity
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model IdentityModel
		if err := tx.First(&model, "reset_token = ? AND reset_expires > ?", token, now).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ac.ErrInvalidOrExpired
			}
			return err
		}
		// Guarded on the token so a concurrent redemption updates nothing.
		res := tx.Model(&IdentityModel{}).
			Where("id = ? AND reset_token = ?", model.ID, token).
			Updates(map[string]any{
				"password_salt": cred.Salt,
				"password_hash": cred.Hash,
				"reset_token":   "",
				"reset_expires": 0,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ac.ErrInvalidOrExpired
		}
		model.PasswordSalt, model.PasswordHash = cred.Salt, cred.Hash
		model.ResetToken, model.ResetExpires = "", 0
		updated = model.ToIdentity()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// SessionStore
// =============================================================================

func (s *Store) CreateSession(session *ac.Session) error {
	return s.db.Create(&SessionModel{
		ID:        session.ID,
		Token:     session.Token,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
	}).Error
}

func (s *Store) GetSessionByToken(token string) (*ac.Session, error) {
	var model SessionModel
	if err := s.db.First(&model, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrNotFound
		}
		return nil, err
	}
	return model.ToSession(), nil
}

func (s *Store) DeleteSessionsByToken(token string) error {
	return s.db.Where("token = ?", token).Delete(&SessionModel{}).Error
}

// =============================================================================
// OneTimeStore
// =============================================================================

// ReplaceOneTime upserts on (kind, email) so concurrent issues for one email
// leave a single row.
func (s *Store) ReplaceOneTime(entry *ac.OneTimeCredential) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"secret", "expires"}),
	}).Create(&OneTimeModel{
		Kind:    string(entry.Kind),
		Email:   entry.Email,
		Secret:  entry.Secret(),
		Expires: entry.Expires,
	}).Error
}

func (s *Store) FindOneTime(kind ac.OneTimeKind, email, secret string) (*ac.OneTimeCredential, error) {
	if secret == "" {
		return nil, ac.ErrNotFound
	}
	q := s.db.Where("kind = ? AND secret = ?", string(kind), secret)
	if email != "" {
		q = q.Where("email = ?", email)
	}
	var model OneTimeModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrNotFound
		}
		return nil, err
	}
	return model.ToOneTime(), nil
}

func (s *Store) ConsumeOneTime(kind ac.OneTimeKind, email, secret string) (bool, error) {
	res := s.db.Where("kind = ? AND email = ? AND secret = ?", string(kind), email, secret).
		Delete(&OneTimeModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
