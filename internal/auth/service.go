package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	minPasswordLen    = 6
	minDisplayNameLen = 2
)

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Store persists users and login sessions. Session tokens are only ever
// stored as hashes.
type Store interface {
	CreateUser(ctx context.Context, u User, passwordHash string) error
	FindUserByEmail(ctx context.Context, email string) (*User, string, error)
	UpdateUser(ctx context.Context, u User, passwordHash string) error

	CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	SessionUser(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	RevokeSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	store      Store
	sessionTTL time.Duration
	bcryptCost int
	adminEmail string
	now        func() time.Time
}

type ServiceConfig struct {
	SessionTTL time.Duration
	BcryptCost int
	// AdminEmail registers as an administrator.
	AdminEmail string
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      store,
		sessionTTL: cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		adminEmail: normalizeEmail(cfg.AdminEmail),
		now:        time.Now,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	name := strings.TrimSpace(in.DisplayName)
	if len(name) < minDisplayNameLen {
		return nil, fmt.Errorf("%w: display name must be at least %d characters", ErrInvalidInput, minDisplayNameLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: name,
		IsAdmin:     s.adminEmail != "" && email == s.adminEmail,
	}
	if err := s.store.CreateUser(ctx, u, string(hash)); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *Service) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, hash, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin creates the administrator account, or promotes an existing
// account and resets its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, displayName string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: admin email and password are required", ErrInvalidInput)
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = "Administrator"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	existing, _, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		existing.IsAdmin = true
		if err := s.store.UpdateUser(ctx, *existing, string(hash)); err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		return existing, nil
	case errors.Is(err, ErrUserNotFound):
		u := User{ID: uuid.NewString(), Email: email, DisplayName: strings.TrimSpace(displayName), IsAdmin: true}
		if err := s.store.CreateUser(ctx, u, string(hash)); err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		return &u, nil
	default:
		return nil, fmt.Errorf("query admin: %w", err)
	}
}

func (s *Service) CreateSession(ctx context.Context, userID string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.store.CreateSession(ctx, hashToken(token), userID, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	u, err := s.store.SessionUser(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	return u, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.store.RevokeSession(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
