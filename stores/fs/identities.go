package fs

import (
	ac "github.com/reweave/authcore"
)

func (s *Store) CreateIdentity(identity *ac.Identity) error {
	return s.users.update(func(users []ac.Identity) ([]ac.Identity, error) {
		for _, u := range users {
			if u.Email == identity.Email {
				return nil, ac.ErrEmailExists
			}
		}
		return append(users, *identity), nil
	})
}

func (s *Store) GetIdentityByEmail(email string) (*ac.Identity, error) {
	return s.findIdentity(func(u *ac.Identity) bool { return u.Email == email })
}

func (s *Store) GetIdentityByID(id string) (*ac.Identity, error) {
	return s.findIdentity(func(u *ac.Identity) bool { return u.ID == id })
}

func (s *Store) findIdentity(match func(*ac.Identity) bool) (*ac.Identity, error) {
	var found *ac.Identity
	s.users.view(func(users []ac.Identity) {
		for i := range users {
			if match(&users[i]) {
				found = &users[i]
				return
			}
		}
	})
	if found == nil {
		return nil, ac.ErrUserNotFound
	}
	return found, nil
}

func (s *Store) SetResetToken(email, token string, expires int64) error {
	return s.users.update(func(users []ac.Identity) ([]ac.Identity, error) {
		for i := range users {
			if users[i].Email == email {
				users[i].ResetToken = token
				users[i].ResetExpires = expires
				return users, nil
			}
		}
		return nil, ac.ErrUserNotFound
	})
}

func (s *Store) CompleteReset(token string, now int64, cred ac.Credential) (*ac.Identity, error) {
	var updated *ac.Identity
	err := s.users.update(func(users []ac.Identity) ([]ac.Identity, error) {
		for i := range users {
			u := &users[i]
			if u.ResetToken == "" || u.ResetToken != token || u.ResetExpires <= now {
				continue
			}
			u.SetCredential(cred)
			u.ResetToken = ""
			u.ResetExpires = 0
			copied := *u
			updated = &copied
			return users, nil
		}
		return nil, ac.ErrInvalidOrExpired
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
