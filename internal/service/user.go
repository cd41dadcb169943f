package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/optifit/backend/internal/db"
	"github.com/optifit/backend/internal/model"
)

const maxActivityLimit = 200

type userRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs map[string]any) (map[string]any, error)
	SetUserActive(ctx context.Context, id string, active bool) error
	ListActivityLogs(ctx context.Context, userID string, limit int32) ([]model.ActivityLog, error)
	InsertActivityLog(ctx context.Context, userID, eventType string, data map[string]any) error
}

type UserService struct {
	repo userRepository
	now  func() time.Time
}

func NewUserService(repo userRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	public := user.Public()
	return &public, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd model.UserUpdate) (*model.PublicUser, error) {
	if upd.Empty() {
		return nil, ErrInvalidInput
	}
	for _, field := range []*string{upd.FirstName, upd.LastName, upd.Phone, upd.Location} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}

	user, err := s.repo.UpdateUser(ctx, userID, upd)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := s.repo.InsertActivityLog(ctx, user.ID, model.ActivityProfileUpdate, map[string]any{
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (s *UserService) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if user.Preferences == nil {
		return map[string]any{}, nil
	}
	return user.Preferences, nil
}

// UpdatePreferences merges top-level keys into the stored preferences.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, prefs map[string]any) (map[string]any, error) {
	if len(prefs) == 0 {
		return nil, ErrInvalidInput
	}
	merged, err := s.repo.UpdatePreferences(ctx, userID, prefs)
	if err != nil {
		return nil, storeErr(err)
	}
	return merged, nil
}

// Validate reports whether the identity exists and is active.
func (s *UserService) Validate(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsActive, nil
}

func (s *UserService) Activity(ctx context.Context, userID string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 || limit > maxActivityLimit {
		limit = 50
	}
	return s.repo.ListActivityLogs(ctx, userID, int32(limit))
}

// Deactivate soft-deletes the identity. Outstanding access tokens stay valid
// until they expire; refresh and login are refused from now on.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	if err := s.repo.SetUserActive(ctx, userID, false); err != nil {
		return storeErr(err)
	}
	return s.repo.InsertActivityLog(ctx, userID, model.ActivityDeactivate, map[string]any{
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// storeErr lifts the store's not-found sentinel into the service taxonomy.
func storeErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
