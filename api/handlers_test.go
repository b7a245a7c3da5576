package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

type testServer struct {
	e     *echo.Echo
	store *storage.Memory
	auth  *Auth
}

func newTestServer(t *testing.T, revoker Revoker) *testServer {
	t.Helper()
	store := storage.NewMemory()
	auth := NewAuth(testSecret, "taskboard-api", time.Hour, revoker)
	e := echo.New()
	logger := log.New()
	Register(e, store, auth, logger)
	return &testServer{e: e, store: store, auth: auth}
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{"name":"Mohammed","email":"mohammed@example.com","phone":"+212612345678","address":"Casablanca","password":"password123","password_confirmation":"password123"}`

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := sonic.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func TestRegisterAndMe(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/auth/register", "", registerBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	decodeJSON(t, rec, &resp)
	if resp.Token == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected auth response: %#v", resp)
	}
	if resp.User == nil || resp.User.Email != "mohammed@example.com" || resp.User.ID == "" {
		t.Fatalf("unexpected user: %#v", resp.User)
	}

	me := s.do(t, http.MethodGet, "/auth/me", resp.Token, "")
	if me.Code != http.StatusOK {
		t.Fatalf("me: expected 200 got %d: %s", me.Code, me.Body.String())
	}
	var user domain.User
	decodeJSON(t, me, &user)
	if user.ID != resp.User.ID {
		t.Fatalf("me returned a different user: %#v", user)
	}
	if strings.Contains(me.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", me.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	cases := map[string]struct {
		body   string
		fields []string
	}{
		"all_missing":    {`{}`, []string{"name", "email", "phone", "address", "password"}},
		"bad_email":      {`{"name":"n","email":"not-an-email","phone":"1","address":"a","password":"secret1","password_confirmation":"secret1"}`, []string{"email"}},
		"short_password": {`{"name":"n","email":"a@b.co","phone":"1","address":"a","password":"abc","password_confirmation":"abc"}`, []string{"password"}},
		"mismatch":       {`{"name":"n","email":"a@b.co","phone":"1","address":"a","password":"secret1","password_confirmation":"secret2"}`, []string{"password"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/auth/register", "", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422 got %d: %s", rec.Code, rec.Body.String())
			}
			var resp validationResponse
			decodeJSON(t, rec, &resp)
			for _, f := range tc.fields {
				if len(resp.Errors[f]) == 0 {
					t.Fatalf("expected error for field %q, got %#v", f, resp.Errors)
				}
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(t, http.MethodPost, "/auth/register", "", registerBody); rec.Code != http.StatusCreated {
		t.Fatalf("first register: got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/auth/register", "", registerBody)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", rec.Code, rec.Body.String())
	}
	var resp validationResponse
	decodeJSON(t, rec, &resp)
	if len(resp.Errors["email"]) == 0 {
		t.Fatalf("expected email uniqueness error, got %#v", resp.Errors)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodPost, "/auth/register", "", registerBody); rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/auth/login", "", `{"email":"mohammed@example.com","password":"password123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeJSON(t, rec, &resp)
	if resp.Token == "" || resp.User == nil {
		t.Fatalf("unexpected login response: %#v", resp)
	}
	if me := s.do(t, http.MethodGet, "/auth/me", resp.Token, ""); me.Code != http.StatusOK {
		t.Fatalf("token from login must authenticate, got %d", me.Code)
	}

	// Wrong password and unknown email share the same response.
	for _, body := range []string{
		`{"email":"mohammed@example.com","password":"wrong-pass"}`,
		`{"email":"stranger@example.com","password":"password123"}`,
	} {
		rec := s.do(t, http.MethodPost, "/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
		var msg messageResponse
		decodeJSON(t, rec, &msg)
		if msg.Message != "Invalid credentials" {
			t.Fatalf("unexpected message %q", msg.Message)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	revoker, _ := newTestRevoker(t)
	s := newTestServer(t, revoker)

	rec := s.do(t, http.MethodPost, "/auth/register", "", registerBody)
	var resp authResponse
	decodeJSON(t, rec, &resp)

	out := s.do(t, http.MethodPost, "/auth/logout", resp.Token, "")
	if out.Code != http.StatusOK {
		t.Fatalf("logout: expected 200 got %d", out.Code)
	}
	if me := s.do(t, http.MethodGet, "/auth/me", resp.Token, ""); me.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to fail me, got %d", me.Code)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodPost, "/auth/logout", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("logout without token: expected 200 got %d", rec.Code)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	revoker, _ := newTestRevoker(t)
	s := newTestServer(t, revoker)

	rec := s.do(t, http.MethodPost, "/auth/register", "", registerBody)
	var registered authResponse
	decodeJSON(t, rec, &registered)

	ref := s.do(t, http.MethodPost, "/auth/refresh", registered.Token, "")
	if ref.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200 got %d: %s", ref.Code, ref.Body.String())
	}
	var refreshed authResponse
	decodeJSON(t, ref, &refreshed)
	if refreshed.Token == "" || refreshed.Token == registered.Token {
		t.Fatalf("expected a replacement token, got %#v", refreshed)
	}

	if me := s.do(t, http.MethodGet, "/auth/me", refreshed.Token, ""); me.Code != http.StatusOK {
		t.Fatalf("new token must authenticate, got %d", me.Code)
	}
	if me := s.do(t, http.MethodGet, "/auth/me", registered.Token, ""); me.Code != http.StatusUnauthorized {
		t.Fatalf("old token must be retired, got %d", me.Code)
	}
}

func TestMeWithoutToken(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodGet, "/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
