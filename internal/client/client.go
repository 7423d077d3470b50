// Package client is a typed HTTP client for the event booking API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d - %s", e.Status, e.Detail)
}

// NetworkError is a failure to reach the server or read its reply.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Client calls the API at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client with a ten second timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        model.User `json:"user"`
}

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// CreateEventRequest is the body of POST /events.  Datetime is sent as
// RFC 3339.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Datetime    time.Time `json:"datetime"`
	Location    string    `json:"location"`
	Capacity    int64     `json:"capacity"`
}

// Ack is a plain message reply.
type Ack struct {
	Message string `json:"message"`
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/signup", "", req, &u)
	return u, err
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", "", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	err := c.do(ctx, http.MethodGet, "/events", "", nil, &out)
	return out, err
}

func (c *Client) CreateEvent(ctx context.Context, token string, req CreateEventRequest) (model.Event, error) {
	var out model.Event
	err := c.do(ctx, http.MethodPost, "/events", token, req, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, token string, eventID uint64) (Ack, error) {
	var out Ack
	err := c.do(ctx, http.MethodPost, "/register", token, map[string]uint64{"event_id": eventID}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		bs, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Detail: detailOf(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// detailOf pulls "detail" out of an error body, falling back to the raw
// text.
func detailOf(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			return s
		}
		return string(body.Detail)
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return "Unknown error"
}

// IsNetwork reports whether err came from the transport rather than the server.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
