package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizmaster/internal/auth"

	"github.com/jackc/pgx/v5/pgconn"
)

func (s *Store) CreateUser(ctx context.Context, u auth.User, passwordHash string) error {
	if _, _, err := s.FindUserByEmail(ctx, u.Email); err == nil {
		return auth.ErrEmailTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return err
	}

	_, err := s.exec(ctx, s.db, `
		INSERT INTO users (id, email, display_name, is_admin, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, strings.ToLower(u.Email), u.DisplayName, u.IsAdmin, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, string, error) {
	var u auth.User
	var hash string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, display_name, is_admin, password_hash
		FROM users
		WHERE email = ?
	`), strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsAdmin, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", auth.ErrUserNotFound
		}
		return nil, "", fmt.Errorf("query user: %w", err)
	}
	return &u, hash, nil
}

func (s *Store) UpdateUser(ctx context.Context, u auth.User, passwordHash string) error {
	res, err := s.exec(ctx, s.db, `
		UPDATE users SET display_name = ?, is_admin = ?, password_hash = ? WHERE id = ?
	`, u.DisplayName, u.IsAdmin, passwordHash, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO auth_sessions (token_hash, user_id, expires_at) VALUES (?, ?, ?)
	`, tokenHash, userID, expiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) SessionUser(ctx context.Context, tokenHash string, now time.Time) (*auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT u.id, u.email, u.display_name, u.is_admin
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
		  AND s.revoked_at IS NULL
		  AND s.expires_at > ?
	`), tokenHash, now.UnixMilli()).Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	return &u, nil
}

func (s *Store) RevokeSession(ctx context.Context, tokenHash string) error {
	_, err := s.exec(ctx, s.db, `
		UPDATE auth_sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL
	`, time.Now().UnixMilli(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
