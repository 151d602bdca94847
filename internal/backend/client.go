// Package backend calls the finance backend's authentication endpoints.
//
// It translates HTTP outcomes into a small set of sentinel kinds; the root package maps
// those kinds onto its public error taxonomy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrTransport means the request never produced an HTTP response.
	ErrTransport = errors.New("backend transport failure")
	// ErrRejected means the backend refused the credentials (4xx, or any non-2xx on refresh).
	ErrRejected = errors.New("backend rejected request")
	// ErrConflict means registration collided with an existing account (409).
	ErrConflict = errors.New("backend conflict")
	// ErrUnexpectedStatus covers non-2xx responses that are not a rejection.
	ErrUnexpectedStatus = errors.New("backend unexpected status")
	// ErrBadResponse means a 2xx body was not a usable token payload.
	ErrBadResponse = errors.New("backend bad response")
)

const maxErrorBody = 4 << 10

// Endpoints are paths relative to the base URL.
type Endpoints struct {
	Login    string
	Register string
	Refresh  string
}

// DefaultEndpoints matches the finance backend routes.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/auth/login",
		Register: "/users",
		Refresh:  "/auth/refresh",
	}
}

// Tokens is the token payload returned by login, registration and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RegisterRequest is the registration body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// StatusError carries the status code and server message of a failed call.
type StatusError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// Client is safe for concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	endpoints Endpoints
}

// New returns a Client. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, baseURL string, endpoints Endpoints) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
	}
}

// Login exchanges email and password for tokens. The refresh token may be empty.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	return c.exchange(ctx, c.endpoints.Login, loginRequest{Email: email, Password: password}, false)
}

// Register creates an account and returns its first tokens.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (Tokens, error) {
	return c.exchange(ctx, c.endpoints.Register, req, false)
}

// Refresh rotates the token pair. Every non-2xx status is a rejection.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return c.exchange(ctx, c.endpoints.Refresh, refreshRequest{RefreshToken: refreshToken}, true)
}

func (c *Client) exchange(ctx context.Context, path string, body any, refresh bool) (Tokens, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Tokens{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Tokens{}, &StatusError{
			Kind:       classify(resp.StatusCode, refresh),
			StatusCode: resp.StatusCode,
			Message:    readMessage(resp.Body),
		}
	}

	var out Tokens
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.AccessToken == "" {
		return Tokens{}, fmt.Errorf("%w: missing access_token", ErrBadResponse)
	}
	if refresh && out.RefreshToken == "" {
		return Tokens{}, fmt.Errorf("%w: missing refresh_token", ErrBadResponse)
	}
	return out, nil
}

func classify(status int, refresh bool) error {
	switch {
	case refresh:
		return ErrRejected
	case status == http.StatusConflict:
		return ErrConflict
	case status >= 400 && status < 500:
		return ErrRejected
	default:
		return ErrUnexpectedStatus
	}
}

// readMessage extracts "message" or "detail" from a JSON error body.
func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return ""
}
