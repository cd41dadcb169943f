package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/model"
)

// userStore is an in-memory user and activity repository.
type userStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	activity []model.ActivityLog
}

func newUserStore() *userStore {
	return &userStore{users: map[string]*model.User{}}
}

func (s *userStore) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *userStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id })
}

func (s *userStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *userStore) GetUserByExternalID(_ context.Context, externalID string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ExternalID != nil && *u.ExternalID == externalID })
}

func (s *userStore) CreateUser(_ context.Context, in model.NewUser) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, db.ErrConflict
		}
	}
	now := time.Now()
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		ExternalID:   in.ExternalID,
		Preferences:  map[string]any{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	c := *u
	return &c, nil
}

func (s *userStore) CreateUserWithActivity(ctx context.Context, in model.NewUser, eventType string, data map[string]any) (*model.User, error) {
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return user, s.InsertActivityLog(ctx, user.ID, eventType, data)
}

func (s *userStore) update(id string, apply func(*model.User)) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	apply(u)
	c := *u
	return &c, nil
}

func (s *userStore) LinkExternalID(_ context.Context, id, externalID string) (*model.User, error) {
	return s.update(id, func(u *model.User) { u.ExternalID = &externalID })
}

func (s *userStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	_, err := s.update(id, func(u *model.User) { u.PasswordHash = hash })
	return err
}

func (s *userStore) SetUserActive(_ context.Context, id string, active bool) error {
	_, err := s.update(id, func(u *model.User) { u.IsActive = active })
	return err
}

func (s *userStore) UpdateUser(_ context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	return s.update(id, func(u *model.User) {
		if upd.FirstName != nil {
			u.FirstName = *upd.FirstName
		}
		if upd.LastName != nil {
			u.LastName = *upd.LastName
		}
	})
}

func (s *userStore) UpdatePreferences(_ context.Context, id string, prefs map[string]any) (map[string]any, error) {
	u, err := s.update(id, func(u *model.User) {
		for k, v := range prefs {
			u.Preferences[k] = v
		}
	})
	if err != nil {
		return nil, err
	}
	return u.Preferences, nil
}

func (s *userStore) InsertActivityLog(_ context.Context, userID, eventType string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, model.ActivityLog{
		ID:        int64(len(s.activity) + 1),
		UserID:    userID,
		EventType: eventType,
		EventData: data,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *userStore) ListActivityLogs(_ context.Context, userID string, limit int32) ([]model.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ActivityLog
	for i := len(s.activity) - 1; i >= 0 && int32(len(out)) < limit; i-- {
		if s.activity[i].UserID == userID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}
