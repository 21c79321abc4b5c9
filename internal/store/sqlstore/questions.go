package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizmaster/internal/question"
)

func (s *Store) ListSubjects(ctx context.Context) ([]question.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM subjects ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	out := make([]question.Subject, 0)
	for rows.Next() {
		var sub question.Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) GetSubject(ctx context.Context, id string) (*question.Subject, error) {
	var sub question.Subject
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name FROM subjects WHERE id = ?`), id).Scan(&sub.ID, &sub.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, question.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("query subject: %w", err)
	}
	return &sub, nil
}

func (s *Store) PutSubject(ctx context.Context, sub question.Subject) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO subjects (id, name, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM subjects))
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, sub.ID, sub.Name)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

func (s *Store) DeleteSubject(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM questions WHERE subject_id = ?`, id); err != nil {
			return fmt.Errorf("delete subject questions: %w", err)
		}
		res, err := s.exec(ctx, tx, `DELETE FROM subjects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted = n > 0
		return nil
	})
	return deleted, err
}

const questionColumns = `id, subject_id, question_text, options, correct_answer, explanation`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (question.Question, error) {
	var q question.Question
	var options string
	if err := row.Scan(&q.ID, &q.SubjectID, &q.QuestionText, &options, &q.CorrectAnswer, &q.Explanation); err != nil {
		return question.Question{}, err
	}
	opts, err := decodeStrings(options)
	if err != nil {
		return question.Question{}, fmt.Errorf("decode options of %s: %w", q.ID, err)
	}
	q.Options = opts
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]question.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]question.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*question.Question, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+questionColumns+` FROM questions WHERE id = ?`), id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, question.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("query question: %w", err)
	}
	return &q, nil
}

func (s *Store) PutQuestion(ctx context.Context, q question.Question) error {
	return s.putQuestion(ctx, s.db, q)
}

// PutQuestions writes the batch in one transaction.
func (s *Store) PutQuestions(ctx context.Context, qs []question.Question) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range qs {
			if err := s.putQuestion(ctx, tx, q); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) putQuestion(ctx context.Context, e execer, q question.Question) error {
	options, err := encodeStrings(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = s.exec(ctx, e, `
		INSERT INTO questions (id, subject_id, question_text, options, correct_answer, explanation, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM questions))
		ON CONFLICT (id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			question_text = EXCLUDED.question_text,
			options = EXCLUDED.options,
			correct_answer = EXCLUDED.correct_answer,
			explanation = EXCLUDED.explanation
	`, q.ID, q.SubjectID, q.QuestionText, options, q.CorrectAnswer, q.Explanation)
	if err != nil {
		return fmt.Errorf("upsert question %s: %w", q.ID, err)
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, s.db, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) DeleteQuestionsBySubject(ctx context.Context, subjectID string) (int, error) {
	res, err := s.exec(ctx, s.db, `DELETE FROM questions WHERE subject_id = ?`, subjectID)
	if err != nil {
		return 0, fmt.Errorf("delete subject questions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
