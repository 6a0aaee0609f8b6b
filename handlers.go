package authcore

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("writing response failed", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, err *AuthError) {
	writeJSON(w, err.Status, map[string]any{"ok": false, "error": err.Code})
}

// readBody decodes a JSON object body into v. Malformed or missing bodies
// leave v untouched so every field reads as absent; malformed ones are logged.
func (h *Handler) readBody(r *http.Request, v any) {
	if r.Body == nil {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.logger().Warn("ignoring malformed request body", "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op Operation, err error) {
	authErr := ErrorFor(op, err)
	if authErr.Status >= http.StatusInternalServerError {
		h.logger().Error("auth request failed", "op", op, "path", r.URL.Path, "error", err)
	}
	writeError(w, authErr)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeLogin sets the session cookie and also returns the token in the body.
func (h *Handler) writeLogin(w http.ResponseWriter, res *AuthResult) {
	h.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": res.Token, "user": res.User})
}

type emailBody struct {
	Email string `json:"email"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	h.readBody(r, &req)
	res, err := h.Auth.Signup(req)
	if err != nil {
		h.fail(w, r, OpSignup, err)
		return
	}
	h.writeLogin(w, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	h.readBody(r, &body)
	res, err := h.Auth.LoginPassword(body.Email, body.Password)
	if err != nil {
		h.fail(w, r, OpLogin, err)
		return
	}
	h.writeLogin(w, res)
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	h.readBody(r, &body)
	code, err := h.Auth.RequestOTP(body.Email)
	if err != nil {
		h.fail(w, r, OpRequestOTP, err)
		return
	}
	resp := map[string]any{"ok": true, "sent": true}
	if !h.HideSecrets {
		resp["dev_otp"] = code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLoginOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	h.readBody(r, &body)
	res, err := h.Auth.LoginOTP(body.Email, body.Code)
	if err != nil {
		h.fail(w, r, OpLoginOTP, err)
		return
	}
	h.writeLogin(w, res)
}

func (h *Handler) handleRequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	h.readBody(r, &body)
	link, err := h.Auth.RequestMagicLink(body.Email)
	if err != nil {
		h.fail(w, r, OpRequestMagicLink, err)
		return
	}
	resp := map[string]any{"ok": true}
	if h.HideSecrets {
		resp["sent"] = true
	} else {
		resp["link"] = link
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMagicLogin(w http.ResponseWriter, r *http.Request) {
	res, err := h.Auth.CompleteMagicLogin(r.URL.Query().Get("token"))
	if err != nil {
		h.fail(w, r, OpMagicLogin, err)
		return
	}
	h.writeLogin(w, res)
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	h.readBody(r, &body)
	token, err := h.Auth.RequestReset(body.Email)
	if err != nil {
		h.fail(w, r, OpRequestReset, err)
		return
	}
	resp := map[string]any{"ok": true, "sent": true}
	if !h.HideSecrets {
		resp["dev_token"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	h.readBody(r, &body)
	if err := h.Auth.CompleteReset(body.Token, body.Password); err != nil {
		h.fail(w, r, OpReset, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleLogout always succeeds. Storage failures are logged.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(TokenFromRequest(r, h.Auth.CookieName)); err != nil {
		h.logger().Error("failed to revoke session", "error", err)
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Auth.Authenticate(r)
	if err != nil {
		h.logger().Error("failed to resolve session", "error", err)
	}
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "authenticated": true, "user": identity.Public()})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": identity.Me()})
}
