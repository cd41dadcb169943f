package db

import (
	"context"
	"fmt"

	"github.com/optifit/backend/internal/model"
)

func (db *Postgres) EnsureActivitySchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS user_activity_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			event_type VARCHAR(100) NOT NULL,
			event_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS user_activity_logs_user_idx ON user_activity_logs(user_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure activity schema: %w", err)
		}
	}
	return nil
}

func (db *Postgres) InsertActivityLog(ctx context.Context, userID, eventType string, data map[string]any) error {
	return insertActivity(ctx, db.Pool, userID, eventType, data)
}

func insertActivity(ctx context.Context, q querier, userID, eventType string, data map[string]any) error {
	_, err := q.Exec(ctx, `
		INSERT INTO user_activity_logs (user_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, NOW())
	`, userID, eventType, data)
	return translate(err)
}

func (db *Postgres) ListActivityLogs(ctx context.Context, userID string, limit int32) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, event_type, event_data, created_at
		FROM user_activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	logs := make([]model.ActivityLog, 0)
	for rows.Next() {
		var entry model.ActivityLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.EventType,
			&entry.EventData,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
