package fs

import (
	ac "github.com/reweave/authcore"
)

func (s *Store) CreateSession(session *ac.Session) error {
	return s.sessions.update(func(sessions []ac.Session) ([]ac.Session, error) {
		return append(sessions, *session), nil
	})
}

func (s *Store) GetSessionByToken(token string) (*ac.Session, error) {
	var found *ac.Session
	s.sessions.view(func(sessions []ac.Session) {
		for i := range sessions {
			if sessions[i].Token == token {
				found = &sessions[i]
				return
			}
		}
	})
	if found == nil {
		return nil, ac.ErrNotFound
	}
	return found, nil
}

func (s *Store) DeleteSessionsByToken(token string) error {
	return s.sessions.update(func(sessions []ac.Session) ([]ac.Session, error) {
		kept := sessions[:0]
		for _, sess := range sessions {
			if sess.Token != token {
				kept = append(kept, sess)
			}
		}
		if len(kept) == len(sessions) {
			return nil, errSkipWrite
		}
		return kept, nil
	})
}
