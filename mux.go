package authcore

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// DefaultPrefix is where the API routes are mounted by ServeHTTP.
const DefaultPrefix = "/api"

// Handler serves the auth API over HTTP.
type Handler struct {
	Auth *Authenticator

	// HideSecrets omits dev_otp, link and dev_token from request responses.
	HideSecrets bool

	// Prefix defaults to DefaultPrefix. Only used by ServeHTTP.
	Prefix string

	Logger *slog.Logger

	once   sync.Once
	router *mux.Router
}

func NewHandler(auth *Authenticator) *Handler {
	return &Handler{Auth: auth}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Register adds the routes to r relative to its current path. Use a
// subrouter to mount them under a prefix:
//
//	h.Register(r.PathPrefix("/api").Subrouter())
func (h *Handler) Register(r *mux.Router) {
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", h.handleSignup).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/request-otp", h.handleRequestOTP).Methods(http.MethodPost)
	auth.HandleFunc("/login-otp", h.handleLoginOTP).Methods(http.MethodPost)
	auth.HandleFunc("/request-magic-link", h.handleRequestMagicLink).Methods(http.MethodPost)
	// A GET with a side effect: the link is opened from an email client.
	auth.HandleFunc("/magic-login", h.handleMagicLogin).Methods(http.MethodGet)
	auth.HandleFunc("/request-reset", h.handleRequestReset).Methods(http.MethodPost)
	auth.HandleFunc("/reset", h.handleReset).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
	auth.HandleFunc("/session", h.handleSession).Methods(http.MethodGet)

	m := &Middleware{Auth: h.Auth}
	r.Handle("/me", m.EnsureIdentity(http.HandlerFunc(h.handleMe))).Methods(http.MethodGet)
}

// Router returns a new router with the API mounted under prefix.
func (h *Handler) Router(prefix string) *mux.Router {
	r := mux.NewRouter()
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		h.Register(r)
	} else {
		h.Register(r.PathPrefix(prefix).Subrouter())
	}
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		prefix := h.Prefix
		if prefix == "" {
			prefix = DefaultPrefix
		}
		h.router = h.Router(prefix)
	})
	h.router.ServeHTTP(w, r)
}
