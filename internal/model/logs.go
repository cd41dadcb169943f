package model

import (
	"encoding/json"
	"time"
)

type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies within geographic bounds.
func (g Geolocation) Valid() bool {
	return g.Latitude >= -90 && g.Latitude <= 90 && g.Longitude >= -180 && g.Longitude <= 180
}

// TimeRange filters list queries; it applies only when both ends are set.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

func (r TimeRange) Active() bool {
	return r.Start != nil && r.End != nil
}

type FoodLog struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	FoodName    string       `json:"foodName"`
	Amount      float64      `json:"amount"`
	Protein     float64      `json:"protein"`
	Carbs       float64      `json:"carbs"`
	Fat         float64      `json:"fat"`
	Time        time.Time    `json:"time"`
	Geolocation *Geolocation `json:"geolocation,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type FoodLogRequest struct {
	FoodName    string       `json:"foodName"`
	Amount      *float64     `json:"amount"`
	Protein     *float64     `json:"protein"`
	Carbs       *float64     `json:"carbs"`
	Fat         *float64     `json:"fat"`
	Time        *time.Time   `json:"time"`
	Geolocation *Geolocation `json:"geolocation"`
	ImageURL    *string      `json:"imageUrl"`
}

type ExerciseType struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Icon              string  `json:"icon"`
	Category          string  `json:"category"`
	CaloriesPerMinute float64 `json:"caloriesPerMinute"`
}

type ExerciseLog struct {
	ID               string       `json:"id"`
	UserID           string       `json:"userId"`
	Name             string       `json:"name"`
	ExerciseTypeID   int64        `json:"exerciseTypeId"`
	ExerciseTypeName string       `json:"exerciseTypeName"`
	Time             time.Time    `json:"time"`
	Duration         int          `json:"duration"`
	Calories         float64      `json:"calories"`
	Geolocation      *Geolocation `json:"geolocation,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

type ExerciseLogRequest struct {
	Name           string       `json:"name"`
	ExerciseTypeID *int64       `json:"exerciseTypeId"`
	Time           *time.Time   `json:"time"`
	Duration       *int         `json:"duration"`
	Calories       *float64     `json:"calories"`
	Geolocation    *Geolocation `json:"geolocation"`
}

type SleepLog struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     time.Time      `json:"endTime"`
	QualityData map[string]any `json:"qualityData,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Duration is the time asleep.
func (s SleepLog) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

type SleepLogRequest struct {
	StartTime   *time.Time     `json:"startTime"`
	EndTime     *time.Time     `json:"endTime"`
	QualityData map[string]any `json:"qualityData"`
}

// FoodSearchResult is the nutrition API payload, cached verbatim.
type FoodSearchResult struct {
	Query  string          `json:"query"`
	Cached bool            `json:"cached"`
	Data   json.RawMessage `json:"data"`
}
