package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/optifit/backend/internal/model"
	"github.com/optifit/backend/internal/template"
)

const (
	maxChatMessageLength = 4000
	chatContextWindow    = 7 * 24 * time.Hour
	chatContextLimit     = 10
)

type chatRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListFoodLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.FoodLog, error)
	ListExerciseLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.ExerciseLog, error)
	ListSleepLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.SleepLog, error)
}

// TextGenerator produces a completion for a fully rendered prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type ChatService struct {
	repo      chatRepository
	generator TextGenerator
	now       func() time.Time
}

// NewChatService builds the assistant. generator may be nil when no model is
// configured; Chat then reports ErrExternalDisabled.
func NewChatService(repo chatRepository, generator TextGenerator) *ChatService {
	return &ChatService{
		repo:      repo,
		generator: generator,
		now:       time.Now,
	}
}

func (s *ChatService) Chat(ctx context.Context, userID string, req model.ChatRequest) (*model.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if len(message) > maxChatMessageLength {
		return nil, fmt.Errorf("%w: message is too long", ErrInvalidInput)
	}
	if s.generator == nil {
		return nil, ErrExternalDisabled
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	logs, err := s.recentLogs(ctx, userID)
	if err != nil {
		return nil, err
	}

	prompt := template.Render(template.WellnessPrompt, template.UserDataFromModel(user), logs, message)
	answer, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	answer = firstNonEmpty(answer)
	if answer == "" {
		return nil, fmt.Errorf("model returned empty answer")
	}

	return &model.ChatResponse{Message: message, Response: answer}, nil
}

func (s *ChatService) recentLogs(ctx context.Context, userID string) (template.LogData, error) {
	end := s.now().UTC()
	start := end.Add(-chatContextWindow)
	r := model.TimeRange{Start: &start, End: &end}

	food, err := s.repo.ListFoodLogs(ctx, userID, r, chatContextLimit)
	if err != nil {
		return template.LogData{}, err
	}
	exercise, err := s.repo.ListExerciseLogs(ctx, userID, r, chatContextLimit)
	if err != nil {
		return template.LogData{}, err
	}
	sleep, err := s.repo.ListSleepLogs(ctx, userID, r, chatContextLimit)
	if err != nil {
		return template.LogData{}, err
	}
	return template.LogData{Food: food, Exercise: exercise, Sleep: sleep}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
