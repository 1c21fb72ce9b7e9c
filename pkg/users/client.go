// Package users is the HTTP client for the user directory the form consults
// for its default email and for email availability.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public directory the form was designed against.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// ErrNotFound is returned when the directory has no record for an id.
var ErrNotFound = errors.New("users: not found")

// User is the subset of the directory record the form reads.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Client talks to the user directory.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the directory base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient injects the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger routes request diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		timeout:    10 * time.Second,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	return c
}

// GetUser fetches the record for id.
func (c *Client) GetUser(ctx context.Context, id int) (User, error) {
	var user User
	status, err := c.getJSON(ctx, "/users/"+strconv.Itoa(id), nil, &user)
	if status == http.StatusNotFound {
		return User{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return User{}, fmt.Errorf("users: get %d: %w", id, err)
	}
	return user, nil
}

// FindByEmail lists the records registered with email.
func (c *Client) FindByEmail(ctx context.Context, email string) ([]User, error) {
	var found []User
	query := url.Values{}
	query.Set("email", email)
	if _, err := c.getJSON(ctx, "/users", query, &found); err != nil {
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return found, nil
}

// EmailAvailable reports whether no record uses email.
func (c *Client) EmailAvailable(ctx context.Context, email string) (bool, error) {
	found, err := c.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return len(found) == 0, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (int, error) {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("users request", "url", reqURL.String(), "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	return resp.StatusCode, nil
}
