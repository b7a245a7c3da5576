package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"taskboard-api/domain"
)

const (
	defaultTimeout      = 10 * time.Second
	responseBodyMaxSize = 4 << 20
)

// APIError is a non-2xx response from the server. Message carries the
// server's text verbatim; Fields is populated for validation failures.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// Client is an HTTP client for the taskboard API. It attaches the bearer
// token to every request and invokes the unauthorized hook at most once per
// request that comes back 401.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu             sync.Mutex
	token          string
	onUnauthorized func()
}

// New creates a client for the API at baseURL. Every call uses a fixed
// timeout; on timeout the caller sees a plain transport error.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken replaces the bearer token attached to outgoing requests. An empty
// token means requests go out unauthenticated.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently attached bearer token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetUnauthorizedHook installs a callback fired when a request is rejected
// with 401. The hook must not issue further API calls that could 401.
func (c *Client) SetUnauthorizedHook(hook func()) {
	c.mu.Lock()
	c.onUnauthorized = hook
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyMaxSize))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if sonic.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
			apiErr.Fields = payload.Errors
		}
		if apiErr.Message == "" && len(data) > 0 {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.Lock()
			hook := c.onUnauthorized
			c.mu.Unlock()
			if hook != nil {
				hook()
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return sonic.Unmarshal(data, out)
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Address              string `json:"address"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// AuthResult is the successful outcome of login or registration.
type AuthResult struct {
	Message   string      `json:"message"`
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
}

// TaskInput is the payload for task creation. Empty priority and status get
// server-side defaults.
type TaskInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	Status      domain.Status   `json:"status,omitempty"`
}

// TaskPatchInput is a partial update; nil fields stay untouched.
type TaskPatchInput struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Priority    *domain.Priority `json:"priority,omitempty"`
	Status      *domain.Status   `json:"status,omitempty"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type taskPayload struct {
	Message string      `json:"message"`
	Data    domain.Task `json:"data"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	in := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	var out messagePayload
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, &out)
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

// Refresh exchanges the current token for a fresh one.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// ListTasks fetches the caller's tasks. Empty or "all" filter values pass
// everything.
func (c *Client) ListTasks(ctx context.Context, status, priority string) ([]domain.Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if priority != "" {
		query.Set("priority", priority)
	}
	var out []domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (domain.Task, error) {
	var out taskPayload
	err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &out)
	return out.Data, err
}

func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var out domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatchInput) (domain.Task, error) {
	var out taskPayload
	err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, patch, &out)
	return out.Data, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	var out messagePayload
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, &out)
}
