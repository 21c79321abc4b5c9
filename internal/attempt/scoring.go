package attempt

import (
	"math"

	"quizmaster/internal/question"
)

type Tally struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Total     int `json:"total"`
}

// Score counts answers[i] equal to questions[i].CorrectAnswer. Nil or missing
// answers count as incorrect, so Correct+Incorrect always equals Total.
func Score(questions []question.Question, answers []*string) Tally {
	t := Tally{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && answers[i] != nil && IsCorrect(q, *answers[i]) {
			t.Correct++
		}
	}
	t.Incorrect = t.Total - t.Correct
	return t
}

// Tally recomputes the counts from the stored snapshot.
func (a Attempt) Tally() Tally {
	t := Tally{Total: len(a.Questions)}
	for _, q := range a.Questions {
		if IsCorrect(q.Question, q.UserAnswer) {
			t.Correct++
		}
	}
	t.Incorrect = t.Total - t.Correct
	return t
}

func IsCorrect(q question.Question, answer string) bool {
	return answer != "" && answer == q.CorrectAnswer
}

// Percent is round(100*correct/total), 0 for an empty quiz.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

func Feedback(score int) string {
	switch {
	case score >= 100:
		return "Perfect Score! You're a true QuizMaster!"
	case score >= 80:
		return "Excellent work! You really know your stuff."
	case score >= 60:
		return "Good job! A little more practice and you'll be an expert."
	case score >= 40:
		return "Not bad, but there's room for improvement. Keep trying!"
	default:
		return "Don't give up! Review your answers and try again."
	}
}
