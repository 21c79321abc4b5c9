package memory

import (
	"context"
	"testing"

	"quizmaster/internal/question"
	"quizmaster/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repository { return New() })
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()

	q := question.Question{ID: "q1", SubjectID: "js", Options: []string{"a", "b"}, CorrectAnswer: "a"}
	require.NoError(t, s.PutQuestion(ctx, q))
	q.Options[0] = "changed"

	got, err := s.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Options[0])

	got.Options[1] = "changed"
	again, err := s.GetQuestion(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "b", again.Options[1])
}
