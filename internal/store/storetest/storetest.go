// Package storetest checks that a repository backend behaves like the others.
// The memory and SQL stores both run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmaster/internal/attempt"
	"quizmaster/internal/auth"
	"quizmaster/internal/ledger"
	"quizmaster/internal/question"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Repository interface {
	question.Store
	ledger.Store
	attempt.Store
	auth.Store
}

// Run executes every contract test against a fresh repository from open.
func Run(t *testing.T, open func(t *testing.T) Repository) {
	t.Run("subjects", func(t *testing.T) { testSubjects(t, open(t)) })
	t.Run("questions", func(t *testing.T) { testQuestions(t, open(t)) })
	t.Run("ledger", func(t *testing.T) { testLedger(t, open(t)) })
	t.Run("bookmarks", func(t *testing.T) { testBookmarks(t, open(t)) })
	t.Run("attempts", func(t *testing.T) { testAttempts(t, open(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, open(t)) })
}

func sampleQuestion(id, subjectID string) question.Question {
	return question.Question{
		ID:            id,
		SubjectID:     subjectID,
		QuestionText:  "What does " + id + " print?",
		Options:       []string{"one", "two", "three"},
		CorrectAnswer: "two",
		Explanation:   "Because it prints two.",
	}
}

func testSubjects(t *testing.T, s Repository) {
	ctx := context.Background()

	subs, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	require.NoError(t, s.PutSubject(ctx, question.Subject{ID: "js", Name: "JavaScript"}))
	require.NoError(t, s.PutSubject(ctx, question.Subject{ID: "css", Name: "CSS"}))
	require.NoError(t, s.PutSubject(ctx, question.Subject{ID: "js", Name: "JS"}))

	subs, err = s.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []question.Subject{{ID: "js", Name: "JS"}, {ID: "css", Name: "CSS"}}, subs)

	got, err := s.GetSubject(ctx, "css")
	require.NoError(t, err)
	assert.Equal(t, "CSS", got.Name)

	_, err = s.GetSubject(ctx, "go")
	assert.ErrorIs(t, err, question.ErrSubjectNotFound)

	deleted, err := s.DeleteSubject(ctx, "css")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteSubject(ctx, "css")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testQuestions(t *testing.T, s Repository) {
	ctx := context.Background()
	require.NoError(t, s.PutSubject(ctx, question.Subject{ID: "js", Name: "JavaScript"}))
	require.NoError(t, s.PutSubject(ctx, question.Subject{ID: "css", Name: "CSS"}))

	require.NoError(t, s.PutQuestions(ctx, []question.Question{
		sampleQuestion("q1", "js"),
		sampleQuestion("q2", "css"),
		sampleQuestion("q3", "js"),
	}))

	updated := sampleQuestion("q1", "js")
	updated.QuestionText = "Rewritten?"
	require.NoError(t, s.PutQuestion(ctx, updated))

	qs, err := s.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, []string{"q1", "q2", "q3"}, []string{qs[0].ID, qs[1].ID, qs[2].ID})
	assert.Equal(t, "Rewritten?", qs[0].QuestionText)
	assert.Equal(t, []string{"one", "two", "three"}, qs[0].Options)

	got, err := s.GetQuestion(ctx, "q2")
	require.NoError(t, err)
	assert.Equal(t, sampleQuestion("q2", "css"), *got)

	_, err = s.GetQuestion(ctx, "missing")
	assert.ErrorIs(t, err, question.ErrQuestionNotFound)

	n, err := s.DeleteQuestionsBySubject(ctx, "js")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, err := s.DeleteQuestion(ctx, "q2")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteQuestion(ctx, "q2")
	require.NoError(t, err)
	assert.False(t, deleted)

	qs, err = s.ListQuestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func testLedger(t *testing.T, s Repository) {
	ctx := context.Background()

	entries, err := s.ListAnswers(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	require.NoError(t, s.UpsertAnswer(ctx, "u1", ledger.Entry{QuestionID: "q1", IsCorrect: false}))
	require.NoError(t, s.UpsertAnswer(ctx, "u1", ledger.Entry{QuestionID: "q2", IsCorrect: true}))
	require.NoError(t, s.UpsertAnswer(ctx, "u2", ledger.Entry{QuestionID: "q1", IsCorrect: true}))
	require.NoError(t, s.UpsertAnswer(ctx, "u1", ledger.Entry{QuestionID: "q1", IsCorrect: true}))

	entries, err = s.ListAnswers(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.Entry{{QuestionID: "q1", IsCorrect: true}, {QuestionID: "q2", IsCorrect: true}}, entries)

	entries, err = s.ListAnswers(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func testBookmarks(t *testing.T, s Repository) {
	ctx := context.Background()

	on, err := s.HasBookmark(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, s.SetBookmark(ctx, "u1", "q2", true))
	require.NoError(t, s.SetBookmark(ctx, "u1", "q1", true))
	require.NoError(t, s.SetBookmark(ctx, "u1", "q1", true))

	marks, err := s.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q1"}, marks)

	on, err = s.HasBookmark(ctx, "u1", "q1")
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, s.SetBookmark(ctx, "u1", "q2", false))
	require.NoError(t, s.SetBookmark(ctx, "u1", "q9", false))
	marks, err = s.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, marks)

	marks, err = s.ListBookmarks(ctx, "u2")
	require.NoError(t, err)
	assert.NotNil(t, marks)
	assert.Empty(t, marks)
}

func testAttempts(t *testing.T, s Repository) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	first := attempt.Attempt{
		ID:         "a1",
		UserID:     "u1",
		Timestamp:  base,
		Score:      50,
		SubjectIDs: []string{"js", "css"},
		Questions: []attempt.AttemptQuestion{
			{Question: sampleQuestion("q1", "js"), UserAnswer: "two"},
			{Question: sampleQuestion("q2", "css"), UserAnswer: ""},
		},
	}
	second := attempt.Attempt{
		ID:         "a2",
		UserID:     "u1",
		Timestamp:  base + 1000,
		Score:      100,
		SubjectIDs: []string{"js"},
		Questions:  []attempt.AttemptQuestion{{Question: sampleQuestion("q3", "js"), UserAnswer: "two"}},
	}
	other := attempt.Attempt{ID: "a3", UserID: "u2", Timestamp: base + 2000, SubjectIDs: []string{}, Questions: []attempt.AttemptQuestion{}}

	require.NoError(t, s.InsertAttempt(ctx, first))
	require.NoError(t, s.InsertAttempt(ctx, second))
	require.NoError(t, s.InsertAttempt(ctx, other))

	list, err := s.ListAttempts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID)
	assert.Equal(t, "a1", list[1].ID)

	got, err := s.GetAttempt(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, first, *got)

	_, err = s.GetAttempt(ctx, "missing")
	assert.ErrorIs(t, err, attempt.ErrAttemptNotFound)

	list, err = s.ListAttempts(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func testUsers(t *testing.T, s Repository) {
	ctx := context.Background()
	u := auth.User{ID: "u1", Email: "user@quizmaster.com", DisplayName: "User"}

	require.NoError(t, s.CreateUser(ctx, u, "hash-1"))
	err := s.CreateUser(ctx, auth.User{ID: "u2", Email: "USER@quizmaster.com"}, "hash-2")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	got, hash, err := s.FindUserByEmail(ctx, "User@QuizMaster.com")
	require.NoError(t, err)
	assert.Equal(t, u, *got)
	assert.Equal(t, "hash-1", hash)

	_, _, err = s.FindUserByEmail(ctx, "nobody@quizmaster.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	u.IsAdmin = true
	u.DisplayName = "Admin"
	require.NoError(t, s.UpdateUser(ctx, u, "hash-3"))
	got, hash, err = s.FindUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "Admin", got.DisplayName)
	assert.Equal(t, "hash-3", hash)

	err = s.UpdateUser(ctx, auth.User{ID: "ghost"}, "x")
	assert.True(t, errors.Is(err, auth.ErrUserNotFound))
}

func testSessions(t *testing.T, s Repository) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := auth.User{ID: "u1", Email: "user@quizmaster.com", DisplayName: "User"}
	require.NoError(t, s.CreateUser(ctx, u, "hash"))

	require.NoError(t, s.CreateSession(ctx, "token-a", "u1", now.Add(time.Hour)))
	require.NoError(t, s.CreateSession(ctx, "token-b", "u1", now.Add(time.Hour)))

	got, err := s.SessionUser(ctx, "token-a", now)
	require.NoError(t, err)
	assert.Equal(t, u, *got)

	_, err = s.SessionUser(ctx, "token-a", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = s.SessionUser(ctx, "unknown", now)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	require.NoError(t, s.RevokeSession(ctx, "token-a"))
	_, err = s.SessionUser(ctx, "token-a", now)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = s.SessionUser(ctx, "token-b", now)
	assert.NoError(t, err)
}
