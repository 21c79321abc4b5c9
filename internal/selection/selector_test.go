package selection_test

import (
	"context"
	"errors"
	"testing"

	"quizmaster/internal/ledger"
	"quizmaster/internal/question"
	"quizmaster/internal/selection"
	"quizmaster/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	bank     *question.Service
	answers  *ledger.Service
	selector *selection.Selector
}

func newFixture(t *testing.T, opts ...selection.Option) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.PutSubject(ctx, question.Subject{ID: "js", Name: "JavaScript"}))
	require.NoError(t, store.PutSubject(ctx, question.Subject{ID: "css", Name: "CSS"}))
	for _, q := range []question.Question{
		{ID: "js1", SubjectID: "js", Options: []string{"A", "B"}, CorrectAnswer: "A"},
		{ID: "js2", SubjectID: "js", Options: []string{"A", "B"}, CorrectAnswer: "B"},
		{ID: "js3", SubjectID: "js", Options: []string{"A", "B"}, CorrectAnswer: "A"},
		{ID: "css1", SubjectID: "css", Options: []string{"A", "B"}, CorrectAnswer: "A"},
	} {
		require.NoError(t, store.PutQuestion(ctx, q))
	}

	bank := question.NewService(store)
	answers := ledger.NewService(store)
	return fixture{
		store:    store,
		bank:     bank,
		answers:  answers,
		selector: selection.NewSelector(bank, answers, opts...),
	}
}

func ids(qs []question.Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestParseAnswerFilter(t *testing.T) {
	f, err := selection.ParseAnswerFilter("")
	require.NoError(t, err)
	assert.Equal(t, selection.FilterAll, f)

	f, err = selection.ParseAnswerFilter(" Bookmarked ")
	require.NoError(t, err)
	assert.Equal(t, selection.FilterBookmarked, f)

	_, err = selection.ParseAnswerFilter("skipped")
	assert.ErrorIs(t, err, selection.ErrInvalidFilter)
}

type failingBank struct{}

func (failingBank) ListQuestionsBySubjects(ctx context.Context, subjectIDs []string) ([]question.Question, error) {
	return nil, errors.New("must not be called")
}

func TestCountsWithoutSubjectsIsAllZero(t *testing.T) {
	s := selection.NewSelector(failingBank{}, ledger.NewService(memory.New()))

	counts, err := s.Counts(context.Background(), nil, "u1")
	require.NoError(t, err)
	require.Len(t, counts, len(selection.Filters))
	for _, f := range selection.Filters {
		assert.Zero(t, counts[f], "filter %s", f)
	}
}

func TestCountsPartitionsBySubjectAndLedger(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.answers.RecordAnswer(ctx, "u1", "js1", true))
	require.NoError(t, fx.answers.RecordAnswer(ctx, "u1", "js2", false))
	require.NoError(t, fx.answers.RecordAnswer(ctx, "u1", "css1", true))
	_, err := fx.answers.ToggleBookmark(ctx, "u1", "js3")
	require.NoError(t, err)

	counts, err := fx.selector.Counts(ctx, []string{"js"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, selection.Counts{
		selection.FilterAll:        3,
		selection.FilterAnswered:   2,
		selection.FilterUnanswered: 1,
		selection.FilterCorrect:    1,
		selection.FilterIncorrect:  1,
		selection.FilterBookmarked: 1,
	}, counts)

	// answered + unanswered == all and correct + incorrect == answered.
	assert.Equal(t, counts[selection.FilterAll], counts[selection.FilterAnswered]+counts[selection.FilterUnanswered])
	assert.Equal(t, counts[selection.FilterAnswered], counts[selection.FilterCorrect]+counts[selection.FilterIncorrect])
}

func TestCountsWithoutUserAreUnfiltered(t *testing.T) {
	fx := newFixture(t)

	counts, err := fx.selector.Counts(context.Background(), []string{"js", "css"}, "")
	require.NoError(t, err)
	for _, f := range selection.Filters {
		assert.Equal(t, 4, counts[f], "filter %s", f)
	}
}

func TestFilter(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.answers.RecordAnswer(ctx, "u1", "js2", false))
	require.NoError(t, fx.answers.RecordAnswer(ctx, "u1", "js2", true))

	got, err := fx.selector.Filter(ctx, []string{"js"}, selection.FilterCorrect, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"js2"}, ids(got))

	got, err = fx.selector.Filter(ctx, []string{"js"}, selection.FilterIncorrect, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = fx.selector.Filter(ctx, []string{"js"}, selection.FilterUnanswered, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"js1", "js3"}, ids(got))

	got, err = fx.selector.Filter(ctx, []string{"js"}, selection.FilterCorrect, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"js1", "js2", "js3"}, ids(got))
}

func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func TestQuizQuestionsShufflesAndTruncates(t *testing.T) {
	fx := newFixture(t, selection.WithShuffle(reverse))
	ctx := context.Background()

	got, err := fx.selector.QuizQuestions(ctx, []string{"js"}, selection.FilterAll, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"js3", "js2"}, ids(got))

	got, err = fx.selector.QuizQuestions(ctx, []string{"js"}, selection.FilterAll, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = fx.selector.QuizQuestions(ctx, []string{"js"}, selection.FilterAll, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestQuizQuestionsReturnsCopies(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	got, err := fx.selector.QuizQuestions(ctx, []string{"css"}, selection.FilterAll, "u1", 0)
	require.NoError(t, err)
	got[0].Options[0] = "changed"

	stored, err := fx.bank.GetQuestion(ctx, "css1")
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Options[0])
}

func TestQuizQuestionsEmptyPool(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.selector.QuizQuestions(context.Background(), []string{"js"}, selection.FilterBookmarked, "u1", 0)
	assert.ErrorIs(t, err, selection.ErrNoQuestionsAvailable)

	_, err = fx.selector.QuizQuestions(context.Background(), []string{"nope"}, selection.FilterAll, "u1", 0)
	assert.ErrorIs(t, err, selection.ErrNoQuestionsAvailable)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"js", "css"}, selection.SplitIDs(" js, ,css,js"))
	assert.Empty(t, selection.SplitIDs(""))
}
