package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"taskboard-api/domain"
)

// State describes whether the session currently holds a usable identity.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// TokenStorage persists the bearer token across process restarts.
type TokenStorage interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStorage keeps the token in a single file, created 0600.
type FileTokenStorage struct {
	Path string
}

func (f FileTokenStorage) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f FileTokenStorage) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token), 0o600)
}

func (f FileTokenStorage) Clear() error {
	err := os.Remove(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Session tracks the caller's identity against the API. It starts from
// whatever token the storage holds; a 401 from any request drops the session
// back to Anonymous, clears the stored token and fires onExpired.
type Session struct {
	api     *Client
	storage TokenStorage

	mu        sync.Mutex
	token     string
	user      *domain.User
	onExpired func()
}

// NewSession wires a session to the client. storage may be nil for a purely
// in-memory session; onExpired may be nil.
func NewSession(api *Client, storage TokenStorage, onExpired func()) *Session {
	s := &Session{api: api, storage: storage, onExpired: onExpired}
	if storage != nil {
		if token, err := storage.Load(); err == nil && token != "" {
			s.token = token
			api.SetToken(token)
		}
	}
	api.SetUnauthorizedHook(s.expire)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return Authenticated
	}
	return Anonymous
}

func (s *Session) Authenticated() bool { return s.State() == Authenticated }

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the cached profile, or nil before the first successful
// login, register or Me call.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.adopt(res.Token, &res.User)
}

func (s *Session) Register(ctx context.Context, in RegisterInput) error {
	res, err := s.api.Register(ctx, in)
	if err != nil {
		return err
	}
	return s.adopt(res.Token, &res.User)
}

// Logout tells the server to retire the token and drops the session locally.
// A failing server call does not keep the session alive.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.mu.Lock()
	s.token = ""
	s.user = nil
	storage := s.storage
	s.mu.Unlock()
	s.api.SetToken("")
	if storage != nil {
		if clearErr := storage.Clear(); clearErr != nil && err == nil {
			err = clearErr
		}
	}
	if IsUnauthorized(err) {
		// Token was already dead; the logout still did its job.
		return nil
	}
	return err
}

// Me fetches the profile for the current token and caches it.
func (s *Session) Me(ctx context.Context) (domain.User, error) {
	user, err := s.api.Me(ctx)
	if err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return user, nil
}

// Refresh swaps the current token for a fresh one, keeping the cached user.
func (s *Session) Refresh(ctx context.Context) error {
	token, err := s.api.Refresh(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	storage := s.storage
	s.mu.Unlock()
	s.api.SetToken(token)
	if storage != nil {
		return storage.Save(token)
	}
	return nil
}

func (s *Session) adopt(token string, user *domain.User) error {
	s.mu.Lock()
	s.token = token
	s.user = user
	storage := s.storage
	s.mu.Unlock()
	s.api.SetToken(token)
	if storage != nil {
		return storage.Save(token)
	}
	return nil
}

// expire drops local state without calling the server. It runs from the
// client's unauthorized hook, so it must not issue requests of its own.
func (s *Session) expire() {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = ""
	s.user = nil
	storage := s.storage
	cb := s.onExpired
	s.mu.Unlock()

	s.api.SetToken("")
	if storage != nil {
		_ = storage.Clear()
	}
	if wasAuthenticated && cb != nil {
		cb()
	}
}
