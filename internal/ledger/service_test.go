package ledger_test

import (
	"context"
	"testing"

	"quizmaster/internal/ledger"
	"quizmaster/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAnswerKeepsLatestOutcome(t *testing.T) {
	svc := ledger.NewService(memory.New())
	ctx := context.Background()

	require.NoError(t, svc.RecordAnswer(ctx, "u1", "js1", false))
	require.NoError(t, svc.RecordAnswer(ctx, "u1", "react1", true))
	require.NoError(t, svc.RecordAnswer(ctx, "u1", "js1", true))

	got, err := svc.GetAnswers(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.Entry{
		{QuestionID: "js1", IsCorrect: true},
		{QuestionID: "react1", IsCorrect: true},
	}, got)

	other, err := svc.GetAnswers(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecordAnswerRequiresIDs(t *testing.T) {
	svc := ledger.NewService(memory.New())

	assert.ErrorIs(t, svc.RecordAnswer(context.Background(), " ", "js1", true), ledger.ErrInvalidInput)
	assert.ErrorIs(t, svc.RecordAnswer(context.Background(), "u1", "", true), ledger.ErrInvalidInput)
}

func TestGetAnswersWithoutUserIsEmpty(t *testing.T) {
	svc := ledger.NewService(memory.New())

	got, err := svc.GetAnswers(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestToggleBookmark(t *testing.T) {
	svc := ledger.NewService(memory.New())
	ctx := context.Background()

	on, err := svc.IsBookmarked(ctx, "u1", "js1")
	require.NoError(t, err)
	assert.False(t, on)

	on, err = svc.ToggleBookmark(ctx, "u1", "js1")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = svc.ToggleBookmark(ctx, "u1", "css1")
	require.NoError(t, err)

	marks, err := svc.Bookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"js1", "css1"}, marks)

	on, err = svc.ToggleBookmark(ctx, "u1", "js1")
	require.NoError(t, err)
	assert.False(t, on)

	marks, err = svc.Bookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"css1"}, marks)

	// Bookmarks do not touch the answer ledger.
	answers, err := svc.GetAnswers(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, answers)
}
