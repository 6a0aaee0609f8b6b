package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	ac "github.com/reweave/authcore"
)

// APIError is a non-2xx response from the server. Code is the error code from
// the response body, e.g. "invalid_credentials".
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("authcore: status %d", e.StatusCode)
	}
	return fmt.Sprintf("authcore: %s (status %d)", e.Code, e.StatusCode)
}

// ErrorCode returns the API error code carried by err, or "" if err is not an
// *APIError.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// RequestResult is the response to the request-otp, request-magic-link and
// request-reset calls. The secret fields are only filled in when the server
// exposes development secrets.
type RequestResult struct {
	Sent     bool   `json:"sent"`
	DevOTP   string `json:"dev_otp,omitempty"`
	Link     string `json:"link,omitempty"`
	DevToken string `json:"dev_token,omitempty"`
}

type loginResponse struct {
	Token string           `json:"token"`
	User  ac.PublicProfile `json:"user"`
}

// Client calls the auth API of a single server and remembers the session it
// logs in with.
type Client struct {
	serverURL     string
	prefix        string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithPrefix sets the path the API is mounted under. Default: /api
func WithPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client == nil {
			return
		}
		if client.Transport != nil {
			c.baseTransport = client.Transport
		}
		c.httpClient.Timeout = client.Timeout
		c.httpClient.CheckRedirect = client.CheckRedirect
		c.httpClient.Jar = client.Jar
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.baseTransport = transport
	}
}

// NewClient creates a client for serverURL. A nil store keeps credentials in
// memory.
func NewClient(serverURL string, store CredentialStore, opts ...ClientOption) *Client {
	if key, err := NormalizeServerURL(serverURL); err == nil {
		serverURL = key
	}
	if store == nil {
		store = NewMemoryCredentialStore()
	}

	c := &Client{
		serverURL:     serverURL,
		prefix:        ac.DefaultPrefix,
		store:         store,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &AuthTransport{Base: c.baseTransport, Token: c.Token}
	return c
}

// HTTPClient returns an HTTP client that sends the current session token.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) ServerURL() string {
	return c.serverURL
}

// Token returns the stored session token, or "" when logged out.
func (c *Client) Token() string {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil {
		return ""
	}
	return cred.Token
}

func (c *Client) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

func (c *Client) IsLoggedIn() bool {
	return c.Token() != ""
}

// Signup creates an account and logs in as it.
func (c *Client) Signup(req ac.SignupRequest) (*ServerCredential, error) {
	return c.login(http.MethodPost, "/auth/signup", req)
}

// Login logs in with email and password.
func (c *Client) Login(email, password string) (*ServerCredential, error) {
	return c.login(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password})
}

// RequestOTP asks the server to send a one-time code to email.
func (c *Client) RequestOTP(email string) (*RequestResult, error) {
	return c.request("/auth/request-otp", email)
}

// LoginOTP logs in with a code from RequestOTP.
func (c *Client) LoginOTP(email, code string) (*ServerCredential, error) {
	return c.login(http.MethodPost, "/auth/login-otp", map[string]string{"email": email, "code": code})
}

// RequestMagicLink asks the server to send a sign-in link to email.
func (c *Client) RequestMagicLink(email string) (*RequestResult, error) {
	return c.request("/auth/request-magic-link", email)
}

// MagicLogin redeems the token of a magic link.
func (c *Client) MagicLogin(token string) (*ServerCredential, error) {
	return c.login(http.MethodGet, "/auth/magic-login?token="+url.QueryEscape(token), nil)
}

// RequestReset asks the server to send a password reset token to email.
func (c *Client) RequestReset(email string) (*RequestResult, error) {
	return c.request("/auth/request-reset", email)
}

// Reset sets a new password with a token from RequestReset. It does not log in.
func (c *Client) Reset(token, password string) error {
	return c.do(http.MethodPost, "/auth/reset", map[string]string{"token": token, "password": password}, nil)
}

// Logout revokes the session on the server and forgets it locally. The
// local credential is removed even if the server call fails.
func (c *Client) Logout() error {
	err := c.do(http.MethodPost, "/auth/logout", nil, nil)
	if rmErr := c.store.RemoveCredential(c.serverURL); rmErr != nil {
		return rmErr
	}
	if saveErr := c.store.Save(); saveErr != nil {
		return saveErr
	}
	return err
}

// Session returns the profile of the current session, or nil if the server
// does not recognize it.
func (c *Client) Session() (*ac.PublicProfile, error) {
	var resp struct {
		Authenticated bool             `json:"authenticated"`
		User          ac.PublicProfile `json:"user"`
	}
	err := c.do(http.MethodGet, "/auth/session", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !resp.Authenticated {
		return nil, nil
	}
	return &resp.User, nil
}

// Me returns the full profile of the logged in identity.
func (c *Client) Me() (*ac.MeView, error) {
	var resp struct {
		User ac.MeView `json:"user"`
	}
	if err := c.do(http.MethodGet, "/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) request(path, email string) (*RequestResult, error) {
	var result RequestResult
	if err := c.do(http.MethodPost, path, map[string]string{"email": email}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) login(method, path string, body any) (*ServerCredential, error) {
	var resp loginResponse
	if err := c.do(method, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login response has no token")
	}

	cred := &ServerCredential{
		Token:     resp.Token,
		UserID:    resp.User.ID,
		UserEmail: resp.User.Email,
		CreatedAt: time.Now(),
	}
	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return cred, nil
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.serverURL+c.prefix+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &errResp)
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
