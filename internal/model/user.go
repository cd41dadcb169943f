package model

import "time"

// User is the stored identity row. It carries the password hash and must not
// be written to a response; use Public for that.
type User struct {
	ID           string
	Email        string
	PasswordHash string `json:"-"`
	FirstName    string
	LastName     string
	Phone        string
	Location     string
	Preferences  map[string]any
	ExternalID   *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the only outward projection of a User.
type PublicUser struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Phone       string         `json:"phone,omitempty"`
	Location    string         `json:"location,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	IsActive    bool           `json:"isActive"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Location:    u.Location,
		Preferences: u.Preferences,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewUser is the input to the credential store's create operation.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Location     string
	ExternalID   *string
}

// UserUpdate holds the mutable profile fields; nil means unchanged.
type UserUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Location  *string `json:"location"`
}

func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Location == nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ValidateUserResponse struct {
	Valid bool `json:"valid"`
}
