package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizmaster/internal/ledger"
)

func (s *Store) UpsertAnswer(ctx context.Context, userID string, e ledger.Entry) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO user_answers (user_id, question_id, is_correct, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM user_answers))
		ON CONFLICT (user_id, question_id) DO UPDATE SET is_correct = EXCLUDED.is_correct
	`, userID, e.QuestionID, e.IsCorrect)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, userID string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT question_id, is_correct
		FROM user_answers
		WHERE user_id = ?
		ORDER BY seq ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.Entry, 0)
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.QuestionID, &e.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) HasBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT 1 FROM bookmarks WHERE user_id = ? AND question_id = ?
	`), userID, questionID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query bookmark: %w", err)
	}
	return true, nil
}

func (s *Store) SetBookmark(ctx context.Context, userID, questionID string, on bool) error {
	var err error
	if on {
		_, err = s.exec(ctx, s.db, `
			INSERT INTO bookmarks (user_id, question_id, seq)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM bookmarks))
			ON CONFLICT (user_id, question_id) DO NOTHING
		`, userID, questionID)
	} else {
		_, err = s.exec(ctx, s.db, `DELETE FROM bookmarks WHERE user_id = ? AND question_id = ?`, userID, questionID)
	}
	if err != nil {
		return fmt.Errorf("set bookmark: %w", err)
	}
	return nil
}

func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT question_id FROM bookmarks WHERE user_id = ? ORDER BY seq ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
