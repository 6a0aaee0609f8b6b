package fs

import (
	ac "github.com/reweave/authcore"
)

func dropKindEmail(entries []ac.OneTimeCredential, kind ac.OneTimeKind, email string) []ac.OneTimeCredential {
	kept := entries[:0]
	for _, e := range entries {
		if e.Kind == kind && e.Email == email {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func (s *Store) ReplaceOneTime(entry *ac.OneTimeCredential) error {
	return s.otps.update(func(entries []ac.OneTimeCredential) ([]ac.OneTimeCredential, error) {
		return append(dropKindEmail(entries, entry.Kind, entry.Email), *entry), nil
	})
}

func (s *Store) FindOneTime(kind ac.OneTimeKind, email, secret string) (*ac.OneTimeCredential, error) {
	var found *ac.OneTimeCredential
	s.otps.view(func(entries []ac.OneTimeCredential) {
		for i := range entries {
			if entries[i].Matches(kind, email, secret) {
				found = &entries[i]
				return
			}
		}
	})
	if found == nil {
		return nil, ac.ErrNotFound
	}
	return found, nil
}

func (s *Store) ConsumeOneTime(kind ac.OneTimeKind, email, secret string) (bool, error) {
	consumed := false
	err := s.otps.update(func(entries []ac.OneTimeCredential) ([]ac.OneTimeCredential, error) {
		for i := range entries {
			if entries[i].Matches(kind, email, secret) {
				consumed = true
				return dropKindEmail(entries, kind, email), nil
			}
		}
		return nil, errSkipWrite
	})
	return consumed, err
}
