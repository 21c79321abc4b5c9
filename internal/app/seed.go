package app

import (
	"context"
	"fmt"
	"log/slog"

	"quizmaster/internal/question"
)

var demoSubjects = []question.Subject{
	{ID: "js", Name: "JavaScript"},
	{ID: "react", Name: "React"},
	{ID: "nextjs", Name: "Next.js"},
	{ID: "css", Name: "CSS"},
}

var demoQuestions = []question.Question{
	{
		ID:            "js1",
		SubjectID:     "js",
		QuestionText:  "What is the output of `typeof null` in JavaScript?",
		Options:       []string{"'object'", "'null'", "'undefined'", "'string'"},
		CorrectAnswer: "'object'",
		Explanation:   "The `typeof` operator returns 'object' for `null`. It is a long-standing quirk kept for compatibility; `null` itself is a primitive.",
	},
	{
		ID:            "js2",
		SubjectID:     "js",
		QuestionText:  "Which of the following is NOT a JavaScript data type?",
		Options:       []string{"Symbol", "BigInt", "Tuple", "Undefined"},
		CorrectAnswer: "Tuple",
		Explanation:   "The primitive types are String, Number, BigInt, Boolean, Undefined, Symbol and Null. Tuple exists in other languages but not as a JavaScript primitive.",
	},
	{
		ID:            "react1",
		SubjectID:     "react",
		QuestionText:  "What is JSX?",
		Options:       []string{"A JavaScript library", "A syntax extension for JavaScript", "A CSS preprocessor", "A database query language"},
		CorrectAnswer: "A syntax extension for JavaScript",
		Explanation:   "JSX lets you write HTML-like markup in JavaScript files. Babel compiles it into `React.createElement()` calls.",
	},
	{
		ID:            "react2",
		SubjectID:     "react",
		QuestionText:  "How do you pass data from a parent component to a child component in React?",
		Options:       []string{"Using state", "Using props", "Using context", "Using Redux"},
		CorrectAnswer: "Using props",
		Explanation:   "Props are the primary way to pass data down the tree. Data flows one way in React, from parent to child.",
	},
	{
		ID:            "nextjs1",
		SubjectID:     "nextjs",
		QuestionText:  "What is the primary benefit of Server-Side Rendering (SSR) in Next.js?",
		Options:       []string{"Faster client-side navigation", "Improved SEO and initial page load", "Smaller bundle sizes", "Easier state management"},
		CorrectAnswer: "Improved SEO and initial page load",
		Explanation:   "SSR sends fully rendered HTML to the browser, so crawlers can index the content and the first paint arrives sooner.",
	},
	{
		ID:            "css1",
		SubjectID:     "css",
		QuestionText:  "What does the `box-sizing: border-box;` property do?",
		Options:       []string{"It includes padding and border in the element's total width and height.", "It makes the element a flex container.", "It adds a shadow to the box.", "It changes the element's display to block."},
		CorrectAnswer: "It includes padding and border in the element's total width and height.",
		Explanation:   "With `border-box` the declared width and height already account for padding and border instead of the content box alone.",
	},
}

// SeedDemo loads the demo bank when no subject exists yet. It reports
// whether anything was written.
func SeedDemo(ctx context.Context, store question.Store, logger *slog.Logger) (bool, error) {
	existing, err := store.ListSubjects(ctx)
	if err != nil {
		return false, fmt.Errorf("list subjects: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	for _, sub := range demoSubjects {
		if err := store.PutSubject(ctx, sub); err != nil {
			return false, fmt.Errorf("seed subject %s: %w", sub.ID, err)
		}
	}
	qs := make([]question.Question, len(demoQuestions))
	for i, q := range demoQuestions {
		qs[i] = q.Clone()
	}
	if err := store.PutQuestions(ctx, qs); err != nil {
		return false, fmt.Errorf("seed questions: %w", err)
	}

	logger.Info("demo question bank seeded", "subjects", len(demoSubjects), "questions", len(qs))
	return true, nil
}
