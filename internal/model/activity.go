package model

import "time"

const (
	ActivityLogin          = "login"
	ActivityRegister       = "register"
	ActivityPasswordChange = "password_change"
	ActivityProfileUpdate  = "profile_update"
	ActivityDeactivate     = "deactivate"
)

type ActivityLog struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	EventType string         `json:"eventType"`
	EventData map[string]any `json:"eventData,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
