// Package authcore provides identity and session management for the Reweave
// storefront: password login, single-use one-time codes (email OTP and magic
// links), opaque session tokens and password reset.
//
// # Architecture
//
// Identity: a registered account keyed by a normalized (trimmed, lowercased)
// email. It carries a PBKDF2 credential and, while a reset is pending, a reset
// token with its expiry.
//
// Session: an opaque 64 character hex token bound to an identity. Sessions
// have no expiry and are removed only by logout.
//
// One-time credential: a 6 digit OTP (5 minutes) or a url-safe magic-link
// token (15 minutes). At most one is live per kind and email, and redeeming it
// removes every entry for that kind and email.
//
// # Basic Usage
//
//	store, _ := fs.NewStore("/var/lib/reweave")
//	auth := authcore.NewAuthenticator(store, store, store)
//	auth.BaseURL = "https://reweave.example"
//
//	r := mux.NewRouter()
//	authcore.NewHandler(auth).Register(r.PathPrefix("/api").Subrouter())
//
// Downstream handlers read the caller with IdentityFromContext after wrapping
// them in Middleware.EnsureIdentity or Middleware.ExtractIdentity.
//
// # Store Implementations
//
// stores/fs keeps users.json, sessions.json and otps.json on disk.
// stores/gorm targets SQLite and PostgreSQL. stores/gae targets Cloud Datastore.
//
// # Security
//
// Passwords are hashed with PBKDF2-HMAC-SHA256 (100,000 iterations, 16 byte
// salt) and compared in constant time. Login failures are not distinguished
// between unknown email and wrong password. All secrets come from crypto/rand.
package authcore
