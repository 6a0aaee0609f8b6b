package authcore

// IdentityStore persists identities. Emails are stored normalized.
type IdentityStore interface {
	// CreateIdentity inserts identity, failing with ErrEmailExists when the email is taken.
	// The check and the insert are atomic.
	CreateIdentity(identity *Identity) error

	// GetIdentityByEmail returns ErrUserNotFound when there is no match.
	GetIdentityByEmail(email string) (*Identity, error)

	// GetIdentityByID returns ErrUserNotFound when there is no match.
	GetIdentityByID(id string) (*Identity, error)

	// SetResetToken records a pending reset on the identity with the given email,
	// replacing any previous one. Returns ErrUserNotFound when there is no match.
	SetResetToken(email, token string, expires int64) error

	// CompleteReset finds the identity whose reset token equals token and whose
	// reset expiry is after now, stores cred and clears both reset fields in a
	// single write. Returns ErrInvalidOrExpired when nothing qualifies.
	CompleteReset(token string, now int64, cred Credential) (*Identity, error)
}

// SessionStore persists sessions.
type SessionStore interface {
	CreateSession(session *Session) error

	// GetSessionByToken returns ErrNotFound when no session carries token.
	GetSessionByToken(token string) (*Session, error)

	// DeleteSessionsByToken removes every session carrying token. Deleting a
	// missing token is not an error.
	DeleteSessionsByToken(token string) error
}

// OneTimeStore persists OTP and magic-link entries.
type OneTimeStore interface {
	// ReplaceOneTime removes every entry for (entry.Kind, entry.Email) and inserts entry.
	ReplaceOneTime(entry *OneTimeCredential) error

	// FindOneTime returns the entry of kind whose secret matches. When email is
	// non-empty it must match too. Returns ErrNotFound when nothing matches.
	// Expired entries are returned as found.
	FindOneTime(kind OneTimeKind, email, secret string) (*OneTimeCredential, error)

	// ConsumeOneTime removes every entry for (kind, email) provided an entry with
	// secret is still present, and reports whether it was.
	ConsumeOneTime(kind OneTimeKind, email, secret string) (bool, error)
}
