package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizmaster/internal/attempt"
	"quizmaster/internal/question"
)

// InsertAttempt writes the attempt and its question snapshot atomically.
func (s *Store) InsertAttempt(ctx context.Context, a attempt.Attempt) error {
	subjectIDs, err := encodeStrings(a.SubjectIDs)
	if err != nil {
		return fmt.Errorf("encode subject ids: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `
			INSERT INTO attempts (id, user_id, ts, score, subject_ids)
			VALUES (?, ?, ?, ?, ?)
		`, a.ID, a.UserID, a.Timestamp, a.Score, subjectIDs); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		for i, q := range a.Questions {
			options, err := encodeStrings(q.Options)
			if err != nil {
				return fmt.Errorf("encode options: %w", err)
			}
			if _, err := s.exec(ctx, tx, `
				INSERT INTO attempt_questions (
					attempt_id, position, question_id, subject_id, question_text,
					options, correct_answer, explanation, user_answer
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, a.ID, i, q.ID, q.SubjectID, q.QuestionText, options, q.CorrectAnswer, q.Explanation, q.UserAnswer); err != nil {
				return fmt.Errorf("insert attempt question: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ListAttempts(ctx context.Context, userID string) ([]attempt.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, ts, score, subject_ids
		FROM attempts
		WHERE user_id = ?
		ORDER BY ts DESC, id DESC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}

	out := make([]attempt.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Questions are loaded after the cursor closes; sqlite runs on one connection.
	for i := range out {
		qs, err := s.attemptQuestions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Questions = qs
	}
	return out, nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (*attempt.Attempt, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, ts, score, subject_ids FROM attempts WHERE id = ?
	`), id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, attempt.ErrAttemptNotFound
		}
		return nil, err
	}
	qs, err := s.attemptQuestions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Questions = qs
	return &a, nil
}

func scanAttempt(row rowScanner) (attempt.Attempt, error) {
	var a attempt.Attempt
	var subjectIDs string
	if err := row.Scan(&a.ID, &a.UserID, &a.Timestamp, &a.Score, &subjectIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attempt.Attempt{}, err
		}
		return attempt.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	ids, err := decodeStrings(subjectIDs)
	if err != nil {
		return attempt.Attempt{}, fmt.Errorf("decode subject ids: %w", err)
	}
	a.SubjectIDs = ids
	return a, nil
}

func (s *Store) attemptQuestions(ctx context.Context, attemptID string) ([]attempt.AttemptQuestion, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT question_id, subject_id, question_text, options, correct_answer, explanation, user_answer
		FROM attempt_questions
		WHERE attempt_id = ?
		ORDER BY position ASC
	`), attemptID)
	if err != nil {
		return nil, fmt.Errorf("query attempt questions: %w", err)
	}
	defer rows.Close()

	out := make([]attempt.AttemptQuestion, 0)
	for rows.Next() {
		var q question.Question
		var options, given string
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.QuestionText, &options, &q.CorrectAnswer, &q.Explanation, &given); err != nil {
			return nil, fmt.Errorf("scan attempt question: %w", err)
		}
		if q.Options, err = decodeStrings(options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		out = append(out, attempt.AttemptQuestion{Question: q, UserAnswer: given})
	}
	return out, rows.Err()
}
