package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("user id and question id are required")

// Entry is the latest correctness outcome of one user on one question.
type Entry struct {
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Store persists answers and bookmarks per user. UpsertAnswer keeps at most
// one entry per (user, question).
type Store interface {
	UpsertAnswer(ctx context.Context, userID string, e Entry) error
	ListAnswers(ctx context.Context, userID string) ([]Entry, error)

	HasBookmark(ctx context.Context, userID, questionID string) (bool, error)
	SetBookmark(ctx context.Context, userID, questionID string, on bool) error
	ListBookmarks(ctx context.Context, userID string) ([]string, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// RecordAnswer overwrites any earlier outcome for the pair.
func (s *Service) RecordAnswer(ctx context.Context, userID, questionID string, isCorrect bool) error {
	userID, questionID, err := ids(userID, questionID)
	if err != nil {
		return err
	}
	if err := s.store.UpsertAnswer(ctx, userID, Entry{QuestionID: questionID, IsCorrect: isCorrect}); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *Service) GetAnswers(ctx context.Context, userID string) ([]Entry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []Entry{}, nil
	}
	items, err := s.store.ListAnswers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return items, nil
}

func (s *Service) IsBookmarked(ctx context.Context, userID, questionID string) (bool, error) {
	userID, questionID, err := ids(userID, questionID)
	if err != nil {
		return false, err
	}
	on, err := s.store.HasBookmark(ctx, userID, questionID)
	if err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}
	return on, nil
}

// ToggleBookmark flips the bookmark and returns the new state.
func (s *Service) ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	on, err := s.IsBookmarked(ctx, userID, questionID)
	if err != nil {
		return false, err
	}
	if err := s.store.SetBookmark(ctx, strings.TrimSpace(userID), strings.TrimSpace(questionID), !on); err != nil {
		return false, fmt.Errorf("toggle bookmark: %w", err)
	}
	return !on, nil
}

func (s *Service) Bookmarks(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []string{}, nil
	}
	items, err := s.store.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return items, nil
}

func ids(userID, questionID string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	questionID = strings.TrimSpace(questionID)
	if userID == "" || questionID == "" {
		return "", "", ErrInvalidInput
	}
	return userID, questionID, nil
}
