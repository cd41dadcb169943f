package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/model"
)

// memStore is an in-memory stand-in for *db.Postgres.
type memStore struct {
	mu         sync.Mutex
	users      map[string]*model.User
	activity   []model.ActivityLog
	food       map[string]model.FoodLog
	exercise   map[string]model.ExerciseLog
	sleep      map[string]model.SleepLog
	cache      map[string]json.RawMessage
	types      map[int64]model.ExerciseType
	createHook func() error
	// activityErr fails every activity insert, including the one made
	// with a new user.
	activityErr error
	linkErr     error
	nextID      int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*model.User{},
		food:     map[string]model.FoodLog{},
		exercise: map[string]model.ExerciseLog{},
		sleep:    map[string]model.SleepLog{},
		cache:    map[string]json.RawMessage{},
		types: map[int64]model.ExerciseType{
			1: {ID: 1, Name: "Running", Icon: "run", Category: "cardio", CaloriesPerMinute: 10},
		},
	}
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) activityFor(userID string) []model.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActivityLog
	for _, a := range m.activity {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, db.ErrNotFound
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			return cloneUser(u), nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	return m.create(in, "", nil)
}

func (m *memStore) CreateUserWithActivity(ctx context.Context, in model.NewUser, eventType string, data map[string]any) (*model.User, error) {
	return m.create(in, eventType, data)
}

func (m *memStore) create(in model.NewUser, eventType string, data map[string]any) (*model.User, error) {
	if m.createHook != nil {
		if err := m.createHook(); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if eventType != "" && m.activityErr != nil {
		return nil, m.activityErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, fmt.Errorf("%w: users_email_lower_idx", db.ErrConflict)
		}
		if in.ExternalID != nil && u.ExternalID != nil && *u.ExternalID == *in.ExternalID {
			return nil, fmt.Errorf("%w: users_external_id_key", db.ErrConflict)
		}
	}
	now := time.Now()
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Location:     in.Location,
		Preferences:  map[string]any{},
		ExternalID:   in.ExternalID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	if eventType != "" {
		m.appendActivity(u.ID, eventType, data)
	}
	return cloneUser(u), nil
}

func (m *memStore) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Location != nil {
		u.Location = *upd.Location
	}
	return cloneUser(u), nil
}

func (m *memStore) LinkExternalID(ctx context.Context, id, externalID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	u.ExternalID = &externalID
	return cloneUser(u), nil
}

func (m *memStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memStore) SetUserActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (m *memStore) UpdatePreferences(ctx context.Context, id string, prefs map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	for k, v := range prefs {
		u.Preferences[k] = v
	}
	out := make(map[string]any, len(u.Preferences))
	for k, v := range u.Preferences {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) InsertActivityLog(ctx context.Context, userID, eventType string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activityErr != nil {
		return m.activityErr
	}
	m.appendActivity(userID, eventType, data)
	return nil
}

// appendActivity requires m.mu.
func (m *memStore) appendActivity(userID, eventType string, data map[string]any) {
	m.nextID++
	m.activity = append(m.activity, model.ActivityLog{
		ID:        m.nextID,
		UserID:    userID,
		EventType: eventType,
		EventData: data,
		CreatedAt: time.Now(),
	})
}

func (m *memStore) ListActivityLogs(ctx context.Context, userID string, limit int32) ([]model.ActivityLog, error) {
	logs := m.activityFor(userID)
	if limit > 0 && int(limit) < len(logs) {
		logs = logs[:limit]
	}
	return logs, nil
}

func inRange(t time.Time, r model.TimeRange) bool {
	if !r.Active() {
		return true
	}
	return !t.Before(*r.Start) && !t.After(*r.End)
}

func (m *memStore) CreateFoodLog(ctx context.Context, log model.FoodLog) (*model.FoodLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.NewString()
	log.CreatedAt = time.Now()
	m.food[log.ID] = log
	return &log, nil
}

func (m *memStore) ListFoodLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.FoodLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.FoodLog, 0)
	for _, l := range m.food {
		if l.UserID == userID && inRange(l.Time, r) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}

func (m *memStore) GetFoodLog(ctx context.Context, userID, id string) (*model.FoodLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.food[id]
	if !ok || l.UserID != userID {
		return nil, db.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) UpdateFoodLog(ctx context.Context, userID, id string, req model.FoodLogRequest) (*model.FoodLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.food[id]
	if !ok || l.UserID != userID {
		return nil, db.ErrNotFound
	}
	if req.FoodName != "" {
		l.FoodName = req.FoodName
	}
	if req.Amount != nil {
		l.Amount = *req.Amount
	}
	if req.Time != nil {
		l.Time = *req.Time
	}
	if req.Geolocation != nil {
		l.Geolocation = req.Geolocation
	}
	m.food[id] = l
	return &l, nil
}

func (m *memStore) DeleteFoodLog(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.food[id]
	if !ok || l.UserID != userID {
		return db.ErrNotFound
	}
	delete(m.food, id)
	return nil
}

func (m *memStore) GetFoodCache(ctx context.Context, foodName string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.cache[foodName]
	if !ok {
		return nil, db.ErrNotFound
	}
	return data, nil
}

func (m *memStore) PutFoodCache(ctx context.Context, foodName string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cache[foodName]; !ok {
		m.cache[foodName] = data
	}
	return nil
}

func (m *memStore) ListExerciseTypes(ctx context.Context) ([]model.ExerciseType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExerciseType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) GetExerciseType(ctx context.Context, id int64) (*model.ExerciseType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) CreateExerciseLog(ctx context.Context, log model.ExerciseLog) (*model.ExerciseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.NewString()
	log.ExerciseTypeName = m.types[log.ExerciseTypeID].Name
	log.CreatedAt = time.Now()
	m.exercise[log.ID] = log
	return &log, nil
}

func (m *memStore) ListExerciseLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.ExerciseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExerciseLog, 0)
	for _, l := range m.exercise {
		if l.UserID == userID && inRange(l.Time, r) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out, nil
}

func (m *memStore) GetExerciseLog(ctx context.Context, userID, id string) (*model.ExerciseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.exercise[id]
	if !ok || l.UserID != userID {
		return nil, db.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) UpdateExerciseLog(ctx context.Context, userID, id string, req model.ExerciseLogRequest) (*model.ExerciseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.exercise[id]
	if !ok || l.UserID != userID {
		return nil, db.ErrNotFound
	}
	if req.Name != "" {
		l.Name = req.Name
	}
	if req.Duration != nil {
		l.Duration = *req.Duration
	}
	if req.Calories != nil {
		l.Calories = *req.Calories
	}
	m.exercise[id] = l
	return &l, nil
}

func (m *memStore) DeleteExerciseLog(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.exercise[id]
	if !ok || l.UserID != userID {
		return db.ErrNotFound
	}
	delete(m.exercise, id)
	return nil
}

func (m *memStore) CreateSleepLog(ctx context.Context, log model.SleepLog) (*model.SleepLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.NewString()
	log.CreatedAt = time.Now()
	m.sleep[log.ID] = log
	return &log, nil
}

func (m *memStore) ListSleepLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.SleepLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SleepLog, 0)
	for _, l := range m.sleep {
		if l.UserID == userID && inRange(l.StartTime, r) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (m *memStore) GetSleepLog(ctx context.Context, userID, id string) (*model.SleepLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sleep[id]
	if !ok || l.UserID != userID {
		return nil, db.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) UpdateSleepLog(ctx context.Context, userID, id string, log model.SleepLog) (*model.SleepLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sleep[id]
	if !ok || l.UserID != userID {
		return nil, db.ErrNotFound
	}
	l.StartTime = log.StartTime
	l.EndTime = log.EndTime
	l.QualityData = log.QualityData
	m.sleep[id] = l
	return &l, nil
}

func (m *memStore) DeleteSleepLog(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sleep[id]
	if !ok || l.UserID != userID {
		return db.ErrNotFound
	}
	delete(m.sleep, id)
	return nil
}
