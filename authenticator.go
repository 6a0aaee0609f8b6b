package authcore

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SignupRequest carries the fields accepted at signup.
type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	MarketingConsent bool   `json:"marketing_consent"`
}

// AuthResult is returned by every operation that logs an identity in.
type AuthResult struct {
	Token    string
	Session  *Session
	User     PublicProfile
	Identity *Identity
}

// Authenticator is the entry point for signup, login, logout, one-time login
// and password reset.
type Authenticator struct {
	Identities IdentityStore
	Sessions   SessionStore
	OneTime    OneTimeStore

	// Optional. When set, requested codes, links and reset tokens are delivered through it.
	Sender Sender

	Hasher *PBKDF2Hasher

	// BaseURL prefixes magic links, e.g. "http://localhost:3001".
	BaseURL string

	// CookieName defaults to DefaultSessionCookie.
	CookieName string

	OTPTTL       time.Duration
	MagicLinkTTL time.Duration
	ResetTTL     time.Duration

	Logger *slog.Logger
	Now    func() time.Time

	initOnce  sync.Once
	session   *SessionManager
	registry  *OneTimeRegistry
	reset     *ResetFlow
	dummyOnce sync.Once
	dummy     Credential
}

// NewAuthenticator returns an Authenticator over the given stores with default settings.
func NewAuthenticator(identities IdentityStore, sessions SessionStore, oneTime OneTimeStore) *Authenticator {
	a := &Authenticator{
		Identities: identities,
		Sessions:   sessions,
		OneTime:    oneTime,
	}
	a.EnsureDefaults()
	return a
}

// EnsureDefaults fills in unset fields.
func (a *Authenticator) EnsureDefaults() {
	if a.Hasher == nil {
		a.Hasher = &PBKDF2Hasher{}
	}
	if a.BaseURL == "" {
		a.BaseURL = "http://localhost:3001"
	}
	if a.CookieName == "" {
		a.CookieName = DefaultSessionCookie
	}
	if a.OTPTTL <= 0 {
		a.OTPTTL = DefaultOTPTTL
	}
	if a.MagicLinkTTL <= 0 {
		a.MagicLinkTTL = DefaultMagicLinkTTL
	}
	if a.ResetTTL <= 0 {
		a.ResetTTL = DefaultResetTTL
	}
	if a.Now == nil {
		a.Now = time.Now
	}
}

func (a *Authenticator) init() {
	a.initOnce.Do(func() {
		a.EnsureDefaults()
		a.session = &SessionManager{Sessions: a.Sessions, Identities: a.Identities, Now: a.Now}
		a.registry = &OneTimeRegistry{Store: a.OneTime, Identities: a.Identities, Now: a.Now}
		a.reset = &ResetFlow{Identities: a.Identities, Hasher: a.Hasher, TTL: a.ResetTTL, Now: a.Now}
	})
}

func (a *Authenticator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// SessionManager exposes the underlying session manager.
func (a *Authenticator) SessionManager() *SessionManager {
	a.init()
	return a.session
}

// Registry exposes the underlying one-time credential registry.
func (a *Authenticator) Registry() *OneTimeRegistry {
	a.init()
	return a.registry
}

func (a *Authenticator) login(identity *Identity) (*AuthResult, error) {
	session, err := a.session.Create(identity.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:    session.Token,
		Session:  session,
		User:     identity.Public(),
		Identity: identity,
	}, nil
}

// Signup registers a new identity and logs it in.
func (a *Authenticator) Signup(req SignupRequest) (*AuthResult, error) {
	a.init()
	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidInput
	}
	cred, err := a.Hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	identity := &Identity{
		ID:               newIdentityID(),
		Email:            email,
		Name:             strings.TrimSpace(req.Name),
		Phone:            strings.TrimSpace(req.Phone),
		MarketingConsent: req.MarketingConsent,
		Addresses:        []Address{},
		CreatedAt:        unixMillis(a.Now()),
	}
	identity.SetCredential(cred)
	if err := a.Identities.CreateIdentity(identity); err != nil {
		return nil, err
	}
	a.logger().Info("created identity", "user_id", identity.ID, "email", email)
	return a.login(identity)
}

// LoginPassword logs in with email and password. Unknown emails and wrong
// passwords both fail with ErrInvalidCredentials.
func (a *Authenticator) LoginPassword(email, password string) (*AuthResult, error) {
	a.init()
	identity, err := a.Identities.GetIdentityByEmail(NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		a.Hasher.Verify(password, a.dummyCredential())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !a.Hasher.Verify(password, identity.Credential()) {
		return nil, ErrInvalidCredentials
	}
	return a.login(identity)
}

// dummyCredential is verified against for unknown emails so that both login
// failures cost one key derivation.
func (a *Authenticator) dummyCredential() Credential {
	a.dummyOnce.Do(func() {
		cred, err := a.Hasher.Hash("")
		if err != nil {
			a.logger().Warn("failed to derive dummy credential", "error", err)
			return
		}
		a.dummy = cred
	})
	return a.dummy
}

// RequestOTP issues a login code for a registered email and returns it.
func (a *Authenticator) RequestOTP(email string) (string, error) {
	a.init()
	email = NormalizeEmail(email)
	if _, err := a.Identities.GetIdentityByEmail(email); err != nil {
		return "", err
	}
	code, err := a.registry.Issue(KindOTP, email, a.OTPTTL)
	if err != nil {
		return "", err
	}
	if a.Sender != nil {
		if err := a.Sender.SendOTP(email, code); err != nil {
			a.logger().Warn("failed to deliver login code", "email", email, "error", err)
		}
	}
	return code, nil
}

// LoginOTP redeems a login code.
func (a *Authenticator) LoginOTP(email, code string) (*AuthResult, error) {
	a.init()
	identity, err := a.registry.Redeem(KindOTP, NormalizeEmail(email), strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	return a.login(identity)
}

// MagicLink returns the login URL for token.
func (a *Authenticator) MagicLink(token string) string {
	return strings.TrimRight(a.BaseURL, "/") + "/api/auth/magic-login?token=" + token
}

// RequestMagicLink issues a magic-link token for a registered email and
// returns the full link.
func (a *Authenticator) RequestMagicLink(email string) (string, error) {
	a.init()
	email = NormalizeEmail(email)
	if _, err := a.Identities.GetIdentityByEmail(email); err != nil {
		return "", err
	}
	token, err := a.registry.Issue(KindMagic, email, a.MagicLinkTTL)
	if err != nil {
		return "", err
	}
	link := a.MagicLink(token)
	if a.Sender != nil {
		if err := a.Sender.SendMagicLink(email, link); err != nil {
			a.logger().Warn("failed to deliver magic link", "email", email, "error", err)
		}
	}
	return link, nil
}

// CompleteMagicLogin redeems a magic-link token.
func (a *Authenticator) CompleteMagicLogin(token string) (*AuthResult, error) {
	a.init()
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidInput
	}
	identity, err := a.registry.Redeem(KindMagic, "", token)
	if err != nil {
		return nil, err
	}
	return a.login(identity)
}

// Logout revokes the session carrying token. It is a no-op for unknown tokens.
func (a *Authenticator) Logout(token string) error {
	a.init()
	return a.session.Revoke(token)
}

// Authenticate resolves the session token carried by r. It returns nil, nil
// when the request carries no valid session.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	a.init()
	return a.session.Resolve(TokenFromRequest(r, a.CookieName))
}

// RequestReset issues a password reset token for a registered email and returns it.
func (a *Authenticator) RequestReset(email string) (string, error) {
	a.init()
	email = NormalizeEmail(email)
	token, err := a.reset.RequestReset(email)
	if err != nil {
		return "", err
	}
	if a.Sender != nil {
		if err := a.Sender.SendPasswordReset(email, token); err != nil {
			a.logger().Warn("failed to deliver reset token", "email", email, "error", err)
		}
	}
	return token, nil
}

// CompleteReset sets a new password using a reset token.
func (a *Authenticator) CompleteReset(token, newPassword string) error {
	a.init()
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return ErrInvalidInput
	}
	identity, err := a.reset.CompleteReset(token, newPassword)
	if err != nil {
		return err
	}
	a.logger().Info("password reset", "user_id", identity.ID)
	return nil
}
