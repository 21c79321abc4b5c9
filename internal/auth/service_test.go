package auth_test

import (
	"context"
	"testing"
	"time"

	"quizmaster/internal/auth"
	"quizmaster/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(ttl time.Duration) *auth.Service {
	return auth.NewService(memory.New(), auth.ServiceConfig{
		SessionTTL: ttl,
		BcryptCost: bcrypt.MinCost,
		AdminEmail: "admin@quizmaster.com",
	})
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(time.Hour)
	ctx := context.Background()

	tests := []struct {
		name string
		in   auth.RegisterInput
	}{
		{"bad email", auth.RegisterInput{Email: "not-an-email", Password: "secret1", DisplayName: "User"}},
		{"short password", auth.RegisterInput{Email: "user@quizmaster.com", Password: "12345", DisplayName: "User"}},
		{"short name", auth.RegisterInput{Email: "user@quizmaster.com", Password: "secret1", DisplayName: " x "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, auth.ErrInvalidInput)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, auth.RegisterInput{Email: " User@QuizMaster.com ", Password: "secret1", DisplayName: "Normal User"})
	require.NoError(t, err)
	assert.Equal(t, "user@quizmaster.com", u.Email)
	assert.False(t, u.IsAdmin)
	assert.NotEmpty(t, u.ID)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "user@quizmaster.com", Password: "secret2", DisplayName: "Again"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	got, err := svc.AuthenticatePassword(ctx, "USER@quizmaster.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.AuthenticatePassword(ctx, "user@quizmaster.com", "wrong-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.AuthenticatePassword(ctx, "ghost@quizmaster.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.AuthenticatePassword(ctx, "", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterConfiguredAdminEmail(t *testing.T) {
	svc := newService(time.Hour)

	u, err := svc.Register(context.Background(), auth.RegisterInput{Email: "admin@quizmaster.com", Password: "secret1", DisplayName: "Admin"})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestSessions(t *testing.T) {
	svc := newService(time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, auth.RegisterInput{Email: "user@quizmaster.com", Password: "secret1", DisplayName: "User"})
	require.NoError(t, err)

	token, expiresAt, err := svc.CreateSession(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := svc.GetSessionUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.GetSessionUser(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	_, err = svc.GetSessionUser(ctx, "forged")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	require.NoError(t, svc.RevokeSession(ctx, token))
	_, err = svc.GetSessionUser(ctx, token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.NoError(t, svc.RevokeSession(ctx, ""))
}

func TestSessionExpires(t *testing.T) {
	svc := newService(time.Millisecond)
	ctx := context.Background()

	u, err := svc.Register(ctx, auth.RegisterInput{Email: "user@quizmaster.com", Password: "secret1", DisplayName: "User"})
	require.NoError(t, err)
	token, _, err := svc.CreateSession(ctx, u.ID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.GetSessionUser(ctx, token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestEnsureAdmin(t *testing.T) {
	svc := newService(time.Hour)
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, "", "secret1", "")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	created, err := svc.EnsureAdmin(ctx, "boss@quizmaster.com", "secret1", "")
	require.NoError(t, err)
	assert.True(t, created.IsAdmin)
	assert.Equal(t, "Administrator", created.DisplayName)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "later@quizmaster.com", Password: "secret1", DisplayName: "Later"})
	require.NoError(t, err)
	promoted, err := svc.EnsureAdmin(ctx, "later@quizmaster.com", "newpass1", "ignored")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	_, err = svc.AuthenticatePassword(ctx, "later@quizmaster.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	u, err := svc.AuthenticatePassword(ctx, "later@quizmaster.com", "newpass1")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}
