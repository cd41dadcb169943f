// Package template renders the wellness assistant prompt.
//
// Supported placeholders:
//
//	{{user.id}}, {{user.name}}, {{user.location}}, {{user.activity_level}},
//	{{user.goals}}, {{user.dietary_restrictions}}
//
//	{{logs.food}}, {{logs.exercise}}, {{logs.sleep}}
//
//	{{query}}
package template

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/optifit/backend/internal/model"
)

const WellnessPrompt = `You are OptiFit's AI wellness assistant, specializing in circadian rhythm optimization, nutrition, and exercise advice.
Your goal is to provide personalized, science-based guidance to help users improve their health.

USER CONTEXT:
- User ID: {{user.id}}
- Name: {{user.name}}
- Location: {{user.location}}
- Activity Level: {{user.activity_level}}
- Goals: {{user.goals}}
- Dietary Restrictions: {{user.dietary_restrictions}}

Recent Food Logs:
{{logs.food}}
Recent Exercise Logs:
{{logs.exercise}}
Recent Sleep Logs:
{{logs.sleep}}

Based on this information, provide helpful, personalized advice. Focus on circadian rhythm optimization, nutrition timing, and exercise recommendations.
Be conversational but concise. Avoid giving medical advice or making definitive health claims.

USER QUERY: {{query}}
`

// UserData is the profile slice exposed to the prompt.
type UserData struct {
	ID                  string
	Name                string
	Location            string
	ActivityLevel       string
	Goals               []string
	DietaryRestrictions []string
}

// UserDataFromModel reads the profile and the well-known preference keys.
func UserDataFromModel(user *model.User) UserData {
	if user == nil {
		return UserData{}
	}
	return UserData{
		ID:                  user.ID,
		Name:                strings.TrimSpace(user.FirstName + " " + user.LastName),
		Location:            user.Location,
		ActivityLevel:       stringPref(user.Preferences, "activityLevel"),
		Goals:               listPref(user.Preferences, "goals"),
		DietaryRestrictions: listPref(user.Preferences, "dietaryRestrictions"),
	}
}

// LogData holds the recent entries rendered into the prompt.
type LogData struct {
	Food     []model.FoodLog
	Exercise []model.ExerciseLog
	Sleep    []model.SleepLog
}

// Render replaces every placeholder in body. Missing values render as
// "Unknown", or "None" for dietary restrictions.
func Render(body string, user UserData, logs LogData, query string) string {
	pairs := []string{
		"{{user.id}}", orDefault(user.ID, "Unknown"),
		"{{user.name}}", orDefault(user.Name, "Unknown"),
		"{{user.location}}", orDefault(user.Location, "Unknown"),
		"{{user.activity_level}}", orDefault(user.ActivityLevel, "Unknown"),
		"{{user.goals}}", orDefault(strings.Join(user.Goals, ", "), "Unknown"),
		"{{user.dietary_restrictions}}", orDefault(strings.Join(user.DietaryRestrictions, ", "), "None"),
		"{{logs.food}}", formatFood(logs.Food),
		"{{logs.exercise}}", formatExercise(logs.Exercise),
		"{{logs.sleep}}", formatSleep(logs.Sleep),
		"{{query}}", query,
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func formatFood(logs []model.FoodLog) string {
	if len(logs) == 0 {
		return "No recent food logs available."
	}
	lines := make([]string, 0, len(logs))
	for _, log := range logs {
		lines = append(lines, fmt.Sprintf("- %s: %s (Protein: %gg, Carbs: %gg, Fat: %gg)",
			log.Time.UTC().Format(time.RFC3339), log.FoodName, log.Protein, log.Carbs, log.Fat))
	}
	return strings.Join(lines, "\n")
}

func formatExercise(logs []model.ExerciseLog) string {
	if len(logs) == 0 {
		return "No recent exercise logs available."
	}
	lines := make([]string, 0, len(logs))
	for _, log := range logs {
		lines = append(lines, fmt.Sprintf("- %s: %s (Duration: %d minutes, Calories: %g)",
			log.Time.UTC().Format(time.RFC3339), log.Name, log.Duration, log.Calories))
	}
	return strings.Join(lines, "\n")
}

func formatSleep(logs []model.SleepLog) string {
	if len(logs) == 0 {
		return "No recent sleep logs available."
	}
	lines := make([]string, 0, len(logs))
	for _, log := range logs {
		hours := math.Round(log.Duration().Hours()*10) / 10
		lines = append(lines, fmt.Sprintf("- %s: Sleep from %s to %s (%g hours)",
			log.StartTime.UTC().Format("2006-01-02"),
			log.StartTime.UTC().Format("15:04"),
			log.EndTime.UTC().Format("15:04"),
			hours))
	}
	return strings.Join(lines, "\n")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func stringPref(prefs map[string]any, key string) string {
	if v, ok := prefs[key].(string); ok {
		return v
	}
	return ""
}

func listPref(prefs map[string]any, key string) []string {
	switch v := prefs[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}
