package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/model"
)

const defaultListLimit = 100

type logRepository interface {
	CreateFoodLog(ctx context.Context, log model.FoodLog) (*model.FoodLog, error)
	ListFoodLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.FoodLog, error)
	GetFoodLog(ctx context.Context, userID, id string) (*model.FoodLog, error)
	UpdateFoodLog(ctx context.Context, userID, id string, req model.FoodLogRequest) (*model.FoodLog, error)
	DeleteFoodLog(ctx context.Context, userID, id string) error

	GetFoodCache(ctx context.Context, foodName string) (json.RawMessage, error)
	PutFoodCache(ctx context.Context, foodName string, data json.RawMessage) error

	ListExerciseTypes(ctx context.Context) ([]model.ExerciseType, error)
	GetExerciseType(ctx context.Context, id int64) (*model.ExerciseType, error)
	CreateExerciseLog(ctx context.Context, log model.ExerciseLog) (*model.ExerciseLog, error)
	ListExerciseLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.ExerciseLog, error)
	GetExerciseLog(ctx context.Context, userID, id string) (*model.ExerciseLog, error)
	UpdateExerciseLog(ctx context.Context, userID, id string, req model.ExerciseLogRequest) (*model.ExerciseLog, error)
	DeleteExerciseLog(ctx context.Context, userID, id string) error

	CreateSleepLog(ctx context.Context, log model.SleepLog) (*model.SleepLog, error)
	ListSleepLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.SleepLog, error)
	GetSleepLog(ctx context.Context, userID, id string) (*model.SleepLog, error)
	UpdateSleepLog(ctx context.Context, userID, id string, log model.SleepLog) (*model.SleepLog, error)
	DeleteSleepLog(ctx context.Context, userID, id string) error
}

// NutritionClient looks up nutrition facts for a free-text food query.
type NutritionClient interface {
	SearchFood(ctx context.Context, query string) (json.RawMessage, error)
}

type LoggingService struct {
	repo      logRepository
	nutrition NutritionClient
	now       func() time.Time
}

// NewLoggingService builds the log service. nutrition may be nil, in which
// case food search only answers from the cache.
func NewLoggingService(repo logRepository, nutrition NutritionClient) *LoggingService {
	return &LoggingService{repo: repo, nutrition: nutrition, now: time.Now}
}

// --- food ---

func (s *LoggingService) CreateFood(ctx context.Context, userID string, req model.FoodLogRequest) (*model.FoodLog, error) {
	name := strings.TrimSpace(req.FoodName)
	if name == "" || req.Amount == nil || req.Protein == nil || req.Carbs == nil || req.Fat == nil {
		return nil, fmt.Errorf("%w: foodName, amount, protein, carbs and fat are required", ErrInvalidInput)
	}
	if err := validateFood(req); err != nil {
		return nil, err
	}

	log := model.FoodLog{
		UserID:      userID,
		FoodName:    name,
		Amount:      *req.Amount,
		Protein:     *req.Protein,
		Carbs:       *req.Carbs,
		Fat:         *req.Fat,
		Time:        s.timeOrNow(req.Time),
		Geolocation: req.Geolocation,
	}
	if req.ImageURL != nil {
		log.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	return s.repo.CreateFoodLog(ctx, log)
}

func (s *LoggingService) ListFood(ctx context.Context, userID string, r model.TimeRange) ([]model.FoodLog, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	return s.repo.ListFoodLogs(ctx, userID, r, defaultListLimit)
}

func (s *LoggingService) GetFood(ctx context.Context, userID, id string) (*model.FoodLog, error) {
	log, err := s.repo.GetFoodLog(ctx, userID, id)
	return log, storeErr(err)
}

func (s *LoggingService) UpdateFood(ctx context.Context, userID, id string, req model.FoodLogRequest) (*model.FoodLog, error) {
	req.FoodName = strings.TrimSpace(req.FoodName)
	if err := validateFood(req); err != nil {
		return nil, err
	}
	log, err := s.repo.UpdateFoodLog(ctx, userID, id, req)
	return log, storeErr(err)
}

func (s *LoggingService) DeleteFood(ctx context.Context, userID, id string) error {
	return storeErr(s.repo.DeleteFoodLog(ctx, userID, id))
}

// SearchFood answers from the cache when the normalized query has been seen
// before, otherwise asks the nutrition API and caches the raw response.
func (s *LoggingService) SearchFood(ctx context.Context, query string) (*model.FoodSearchResult, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return nil, ErrInvalidInput
	}

	cached, err := s.repo.GetFoodCache(ctx, key)
	if err == nil {
		return &model.FoodSearchResult{Query: key, Cached: true, Data: cached}, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	if s.nutrition == nil {
		return nil, ErrExternalDisabled
	}
	data, err := s.nutrition.SearchFood(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("nutrition lookup: %w", err)
	}
	if err := s.repo.PutFoodCache(ctx, key, data); err != nil {
		return nil, err
	}
	return &model.FoodSearchResult{Query: key, Cached: false, Data: data}, nil
}

// --- exercise ---

func (s *LoggingService) ExerciseTypes(ctx context.Context) ([]model.ExerciseType, error) {
	return s.repo.ListExerciseTypes(ctx)
}

func (s *LoggingService) CreateExercise(ctx context.Context, userID string, req model.ExerciseLogRequest) (*model.ExerciseLog, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.ExerciseTypeID == nil || req.Duration == nil {
		return nil, fmt.Errorf("%w: name, exerciseTypeId and duration are required", ErrInvalidInput)
	}
	if err := validateExercise(req); err != nil {
		return nil, err
	}

	exerciseType, err := s.repo.GetExerciseType(ctx, *req.ExerciseTypeID)
	if err != nil {
		return nil, storeErr(err)
	}

	calories := exerciseType.CaloriesPerMinute * float64(*req.Duration)
	if req.Calories != nil {
		calories = *req.Calories
	}

	return s.repo.CreateExerciseLog(ctx, model.ExerciseLog{
		UserID:         userID,
		Name:           name,
		ExerciseTypeID: exerciseType.ID,
		Time:           s.timeOrNow(req.Time),
		Duration:       *req.Duration,
		Calories:       calories,
		Geolocation:    req.Geolocation,
	})
}

func (s *LoggingService) ListExercise(ctx context.Context, userID string, r model.TimeRange) ([]model.ExerciseLog, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	return s.repo.ListExerciseLogs(ctx, userID, r, defaultListLimit)
}

func (s *LoggingService) GetExercise(ctx context.Context, userID, id string) (*model.ExerciseLog, error) {
	log, err := s.repo.GetExerciseLog(ctx, userID, id)
	return log, storeErr(err)
}

func (s *LoggingService) UpdateExercise(ctx context.Context, userID, id string, req model.ExerciseLogRequest) (*model.ExerciseLog, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateExercise(req); err != nil {
		return nil, err
	}
	if req.ExerciseTypeID != nil {
		if _, err := s.repo.GetExerciseType(ctx, *req.ExerciseTypeID); err != nil {
			return nil, storeErr(err)
		}
	}
	log, err := s.repo.UpdateExerciseLog(ctx, userID, id, req)
	return log, storeErr(err)
}

func (s *LoggingService) DeleteExercise(ctx context.Context, userID, id string) error {
	return storeErr(s.repo.DeleteExerciseLog(ctx, userID, id))
}

// --- sleep ---

func (s *LoggingService) CreateSleep(ctx context.Context, userID string, req model.SleepLogRequest) (*model.SleepLog, error) {
	if req.StartTime == nil || req.EndTime == nil {
		return nil, fmt.Errorf("%w: startTime and endTime are required", ErrInvalidInput)
	}
	log := model.SleepLog{
		UserID:      userID,
		StartTime:   *req.StartTime,
		EndTime:     *req.EndTime,
		QualityData: req.QualityData,
	}
	if err := validateSleep(log); err != nil {
		return nil, err
	}
	return s.repo.CreateSleepLog(ctx, log)
}

func (s *LoggingService) ListSleep(ctx context.Context, userID string, r model.TimeRange) ([]model.SleepLog, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	return s.repo.ListSleepLogs(ctx, userID, r, defaultListLimit)
}

func (s *LoggingService) GetSleep(ctx context.Context, userID, id string) (*model.SleepLog, error) {
	log, err := s.repo.GetSleepLog(ctx, userID, id)
	return log, storeErr(err)
}

// UpdateSleep applies the provided fields over the stored entry and checks
// the resulting interval as a whole.
func (s *LoggingService) UpdateSleep(ctx context.Context, userID, id string, req model.SleepLogRequest) (*model.SleepLog, error) {
	current, err := s.repo.GetSleepLog(ctx, userID, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if req.StartTime != nil {
		current.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		current.EndTime = *req.EndTime
	}
	if req.QualityData != nil {
		current.QualityData = req.QualityData
	}
	if err := validateSleep(*current); err != nil {
		return nil, err
	}
	log, err := s.repo.UpdateSleepLog(ctx, userID, id, *current)
	return log, storeErr(err)
}

func (s *LoggingService) DeleteSleep(ctx context.Context, userID, id string) error {
	return storeErr(s.repo.DeleteSleepLog(ctx, userID, id))
}

func (s *LoggingService) timeOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.now().UTC()
	}
	return *t
}

func validateRange(r model.TimeRange) error {
	if r.Active() && r.End.Before(*r.Start) {
		return fmt.Errorf("%w: endDate must not precede startDate", ErrInvalidInput)
	}
	return nil
}

func validateGeolocation(g *model.Geolocation) error {
	if g != nil && !g.Valid() {
		return fmt.Errorf("%w: geolocation out of range", ErrInvalidInput)
	}
	return nil
}

func validateFood(req model.FoodLogRequest) error {
	for _, v := range []*float64{req.Amount, req.Protein, req.Carbs, req.Fat} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: nutrition values must not be negative", ErrInvalidInput)
		}
	}
	return validateGeolocation(req.Geolocation)
}

func validateExercise(req model.ExerciseLogRequest) error {
	if req.Duration != nil && *req.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if req.Calories != nil && *req.Calories < 0 {
		return fmt.Errorf("%w: calories must not be negative", ErrInvalidInput)
	}
	return validateGeolocation(req.Geolocation)
}

func validateSleep(log model.SleepLog) error {
	if !log.EndTime.After(log.StartTime) {
		return fmt.Errorf("%w: endTime must be after startTime", ErrInvalidInput)
	}
	return nil
}
