package service

import (
	"context"
	"errors"
	"testing"

	"github.com/optifit/backend/internal/model"
)

func seedUser(t *testing.T, store *memStore, email string) *model.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), model.NewUser{Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func strPtr(s string) *string { return &s }

func TestUserProfile(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store)
	user := seedUser(t, store, "a@x.com")

	profile, err := svc.UpdateProfile(context.Background(), user.ID, model.UserUpdate{FirstName: strPtr("  Ada "), Location: strPtr("London")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if profile.FirstName != "Ada" || profile.Location != "London" {
		t.Fatalf("profile = %+v", profile)
	}

	got, err := svc.GetProfile(context.Background(), user.ID)
	if err != nil || got.FirstName != "Ada" {
		t.Fatalf("GetProfile() = %+v, %v", got, err)
	}

	if _, err := svc.UpdateProfile(context.Background(), user.ID, model.UserUpdate{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entries := store.activityFor(user.ID)
	if len(entries) != 1 || entries[0].EventType != model.ActivityProfileUpdate {
		t.Fatalf("activity = %+v", entries)
	}
}

func TestUserPreferencesMerge(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store)
	user := seedUser(t, store, "a@x.com")

	if _, err := svc.UpdatePreferences(context.Background(), user.ID, map[string]any{"units": "metric"}); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	merged, err := svc.UpdatePreferences(context.Background(), user.ID, map[string]any{"goal": "sleep"})
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if merged["units"] != "metric" || merged["goal"] != "sleep" {
		t.Fatalf("merged = %+v", merged)
	}

	prefs, err := svc.GetPreferences(context.Background(), user.ID)
	if err != nil || len(prefs) != 2 {
		t.Fatalf("GetPreferences() = %+v, %v", prefs, err)
	}
}

func TestUserValidateAndDeactivate(t *testing.T) {
	store := newMemStore()
	svc := NewUserService(store)
	user := seedUser(t, store, "a@x.com")

	valid, err := svc.Validate(context.Background(), user.ID)
	if err != nil || !valid {
		t.Fatalf("Validate() = %v, %v", valid, err)
	}

	if err := svc.Deactivate(context.Background(), user.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	valid, err = svc.Validate(context.Background(), user.ID)
	if err != nil || valid {
		t.Fatalf("Validate() after deactivate = %v, %v", valid, err)
	}

	valid, err = svc.Validate(context.Background(), "missing")
	if err != nil || valid {
		t.Fatalf("Validate() unknown = %v, %v", valid, err)
	}

	if err := svc.Deactivate(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	logs, err := svc.Activity(context.Background(), user.ID, 0)
	if err != nil || len(logs) != 1 || logs[0].EventType != model.ActivityDeactivate {
		t.Fatalf("Activity() = %+v, %v", logs, err)
	}
}
