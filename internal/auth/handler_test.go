package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type mockAuthService struct {
	registerFn       func(ctx context.Context, in RegisterInput) (*User, error)
	authenticateFn   func(ctx context.Context, email, password string) (*User, error)
	createSessionFn  func(ctx context.Context, userID string) (string, time.Time, error)
	getSessionUserFn func(ctx context.Context, token string) (*User, error)
	revoked          []string
}

func (m *mockAuthService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if m.registerFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.registerFn(ctx, in)
}

func (m *mockAuthService) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	if m.authenticateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.authenticateFn(ctx, email, password)
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID string) (string, time.Time, error) {
	if m.createSessionFn == nil {
		return "token-1", time.Now().Add(time.Hour), nil
	}
	return m.createSessionFn(ctx, userID)
}

func (m *mockAuthService) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if m.getSessionUserFn == nil {
		return nil, ErrUnauthorized
	}
	return m.getSessionUserFn(ctx, token)
}

func (m *mockAuthService) RevokeSession(ctx context.Context, token string) error {
	m.revoked = append(m.revoked, token)
	return nil
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	h := NewHandler(&mockAuthService{
		registerFn: func(ctx context.Context, in RegisterInput) (*User, error) {
			if in.DisplayName != "Normal User" {
				t.Fatalf("unexpected display name: %q", in.DisplayName)
			}
			return &User{ID: "u1", Email: in.Email}, nil
		},
	})
	body := `{"email":"user@quizmaster.com","password":"secret1","displayName":"Normal User"}`
	w := httptest.NewRecorder()

	h.Register(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	c := sessionCookie(w)
	if c == nil || c.Value != "token-1" || !c.HttpOnly {
		t.Fatalf("unexpected session cookie: %+v", c)
	}
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"taken", ErrEmailTaken, http.StatusConflict},
		{"other", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mockAuthService{
				registerFn: func(ctx context.Context, in RegisterInput) (*User, error) { return nil, tt.err },
			})
			w := httptest.NewRecorder()

			h.Register(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{}`)))

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := NewHandler(&mockAuthService{
		authenticateFn: func(ctx context.Context, email, password string) (*User, error) {
			return nil, ErrInvalidCredentials
		},
	})
	w := httptest.NewRecorder()

	h.Login(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if sessionCookie(w) != nil {
		t.Fatal("no cookie expected on failed login")
	}
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	svc := &mockAuthService{}
	h := NewHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "token-9"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(svc.revoked) != 1 || svc.revoked[0] != "token-9" {
		t.Fatalf("unexpected revocations: %v", svc.revoked)
	}
	if c := sessionCookie(w); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", c)
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	h := NewHandler(&mockAuthService{
		getSessionUserFn: func(ctx context.Context, token string) (*User, error) {
			switch token {
			case "user-token":
				return &User{ID: "u1"}, nil
			case "admin-token":
				return &User{ID: "a1", IsAdmin: true}, nil
			}
			return nil, ErrUnauthorized
		},
	})
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r.Context())
		if !ok {
			t.Fatal("user missing from context")
		}
		w.Header().Set("X-User", u.ID)
		w.WriteHeader(http.StatusNoContent)
	})
	chain := h.RequireAuth(h.RequireAdmin(final))

	tests := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"user-token", http.StatusForbidden},
		{"admin-token", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/questions", nil)
		if tt.token != "" {
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.token})
		}
		w := httptest.NewRecorder()
		chain.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("token %q: expected %d, got %d", tt.token, tt.want, w.Code)
		}
	}
}

func TestMeRequiresUser(t *testing.T) {
	h := NewHandler(&mockAuthService{})
	w := httptest.NewRecorder()

	h.Me(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
