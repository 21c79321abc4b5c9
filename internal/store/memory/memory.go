package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"quizmaster/internal/attempt"
	"quizmaster/internal/auth"
	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
)

type userRecord struct {
	user auth.User
	hash string
}

type sessionRecord struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

// Store keeps every repository in process memory. Slices preserve insertion
// order; all values are copied on the way in and out.
type Store struct {
	mu sync.RWMutex

	subjects  []question.Subject
	questions []question.Question

	answers   map[string][]ledger.Entry
	bookmarks map[string][]string

	attempts []attempt.Attempt

	users    map[string]userRecord
	sessions map[string]sessionRecord
}

func New() *Store {
	return &Store{
		answers:   make(map[string][]ledger.Entry),
		bookmarks: make(map[string][]string),
		users:     make(map[string]userRecord),
		sessions:  make(map[string]sessionRecord),
	}
}

// Subjects

func (s *Store) ListSubjects(ctx context.Context) ([]question.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.subjects), nil
}

func (s *Store) GetSubject(ctx context.Context, id string) (*question.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subjects {
		if sub.ID == id {
			out := sub
			return &out, nil
		}
	}
	return nil, question.ErrSubjectNotFound
}

func (s *Store) PutSubject(ctx context.Context, sub question.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subjects {
		if s.subjects[i].ID == sub.ID {
			s.subjects[i] = sub
			return nil
		}
	}
	s.subjects = append(s.subjects, sub)
	return nil
}

func (s *Store) DeleteSubject(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.subjects)
	s.subjects = slices.DeleteFunc(s.subjects, func(sub question.Subject) bool { return sub.ID == id })
	return len(s.subjects) < before, nil
}

// Questions

func (s *Store) ListQuestions(ctx context.Context) ([]question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]question.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			out := q.Clone()
			return &out, nil
		}
	}
	return nil, question.ErrQuestionNotFound
}

func (s *Store) PutQuestion(ctx context.Context, q question.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putQuestionLocked(q)
	return nil
}

func (s *Store) PutQuestions(ctx context.Context, qs []question.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		s.putQuestionLocked(q)
	}
	return nil
}

func (s *Store) putQuestionLocked(q question.Question) {
	q = q.Clone()
	for i := range s.questions {
		if s.questions[i].ID == q.ID {
			s.questions[i] = q
			return
		}
	}
	s.questions = append(s.questions, q)
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.questions)
	s.questions = slices.DeleteFunc(s.questions, func(q question.Question) bool { return q.ID == id })
	return len(s.questions) < before, nil
}

func (s *Store) DeleteQuestionsBySubject(ctx context.Context, subjectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.questions)
	s.questions = slices.DeleteFunc(s.questions, func(q question.Question) bool { return q.SubjectID == subjectID })
	return before - len(s.questions), nil
}

// Ledger

func (s *Store) UpsertAnswer(ctx context.Context, userID string, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.answers[userID]
	for i := range entries {
		if entries[i].QuestionID == e.QuestionID {
			entries[i].IsCorrect = e.IsCorrect
			return nil
		}
	}
	s.answers[userID] = append(entries, e)
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, userID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.answers[userID])
	if out == nil {
		out = []ledger.Entry{}
	}
	return out, nil
}

func (s *Store) HasBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.bookmarks[userID], questionID), nil
}

func (s *Store) SetBookmark(ctx context.Context, userID, questionID string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	marks := s.bookmarks[userID]
	has := slices.Contains(marks, questionID)
	switch {
	case on && !has:
		s.bookmarks[userID] = append(marks, questionID)
	case !on && has:
		s.bookmarks[userID] = slices.DeleteFunc(marks, func(id string) bool { return id == questionID })
	}
	return nil
}

func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.bookmarks[userID])
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Attempts

func (s *Store) InsertAttempt(ctx context.Context, a attempt.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = slices.Insert(s.attempts, 0, a.Clone())
	return nil
}

func (s *Store) ListAttempts(ctx context.Context, userID string) ([]attempt.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]attempt.Attempt, 0)
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (*attempt.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.ID == id {
			out := a.Clone()
			return &out, nil
		}
	}
	return nil, attempt.ErrAttemptNotFound
}

// Users and sessions

func (s *Store) CreateUser(ctx context.Context, u auth.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, u.Email) {
			return auth.ErrEmailTaken
		}
	}
	s.users[u.ID] = userRecord{user: u, hash: passwordHash}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, email) {
			u := rec.user
			return &u, rec.hash, nil
		}
	}
	return nil, "", auth.ErrUserNotFound
}

func (s *Store) UpdateUser(ctx context.Context, u auth.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return auth.ErrUserNotFound
	}
	s.users[u.ID] = userRecord{user: u, hash: passwordHash}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tokenHash] = sessionRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) SessionUser(ctx context.Context, tokenHash string, now time.Time) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenHash]
	if !ok || sess.revoked || !now.Before(sess.expiresAt) {
		return nil, auth.ErrUnauthorized
	}
	rec, ok := s.users[sess.userID]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	u := rec.user
	return &u, nil
}

func (s *Store) RevokeSession(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[tokenHash]; ok {
		sess.revoked = true
		s.sessions[tokenHash] = sess
	}
	return nil
}

var (
	_ question.Store = (*Store)(nil)
	_ ledger.Store   = (*Store)(nil)
	_ attempt.Store  = (*Store)(nil)
	_ auth.Store     = (*Store)(nil)
)
