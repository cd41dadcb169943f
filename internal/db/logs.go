package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/optifit/backend/internal/model"
)

var defaultExerciseTypes = []model.ExerciseType{
	{Name: "Running", Icon: "run", Category: "cardio", CaloriesPerMinute: 11.4},
	{Name: "Cycling", Icon: "bike", Category: "cardio", CaloriesPerMinute: 8.5},
	{Name: "Swimming", Icon: "swim", Category: "cardio", CaloriesPerMinute: 9.8},
	{Name: "Walking", Icon: "walk", Category: "cardio", CaloriesPerMinute: 4.3},
	{Name: "Weight Training", Icon: "dumbbell", Category: "strength", CaloriesPerMinute: 6.0},
	{Name: "Yoga", Icon: "yoga", Category: "flexibility", CaloriesPerMinute: 3.0},
}

func (db *Postgres) EnsureLogSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS food_logs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			food_name TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			protein DOUBLE PRECISION NOT NULL,
			carbs DOUBLE PRECISION NOT NULL,
			fat DOUBLE PRECISION NOT NULL,
			time TIMESTAMPTZ NOT NULL,
			geolocation JSONB,
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS food_logs_user_time_idx ON food_logs(user_id, time DESC)`,
		`
		CREATE TABLE IF NOT EXISTS exercise_types (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			icon TEXT NOT NULL,
			category TEXT NOT NULL,
			calories_per_minute DOUBLE PRECISION NOT NULL
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS exercise_logs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			exercise_type_id BIGINT NOT NULL REFERENCES exercise_types(id),
			time TIMESTAMPTZ NOT NULL,
			duration INTEGER NOT NULL,
			calories DOUBLE PRECISION NOT NULL,
			geolocation JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS exercise_logs_user_time_idx ON exercise_logs(user_id, time DESC)`,
		`
		CREATE TABLE IF NOT EXISTS sleep_logs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			quality_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS sleep_logs_user_start_idx ON sleep_logs(user_id, start_time DESC)`,
		`
		CREATE TABLE IF NOT EXISTS food_cache (
			id UUID PRIMARY KEY,
			food_name TEXT NOT NULL UNIQUE,
			nutrition_data JSONB NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure log schema: %w", err)
		}
	}

	for _, t := range defaultExerciseTypes {
		if _, err := db.Pool.Exec(ctx, `
			INSERT INTO exercise_types (name, icon, category, calories_per_minute)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, t.Name, t.Icon, t.Category, t.CaloriesPerMinute); err != nil {
			return fmt.Errorf("failed to seed exercise types: %w", err)
		}
	}
	return nil
}

// --- food ---

const foodColumns = `id, user_id, food_name, amount, protein, carbs, fat, time, geolocation, image_url, created_at`

func (db *Postgres) CreateFoodLog(ctx context.Context, log model.FoodLog) (*model.FoodLog, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO food_logs (id, user_id, food_name, amount, protein, carbs, fat, time, geolocation, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING `+foodColumns,
		uuid.NewString(), log.UserID, log.FoodName, log.Amount, log.Protein, log.Carbs, log.Fat,
		log.Time, log.Geolocation, log.ImageURL,
	)
	return scanFoodLog(row)
}

func (db *Postgres) ListFoodLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.FoodLog, error) {
	query, args := rangedQuery(`SELECT `+foodColumns+` FROM food_logs WHERE user_id = $1`, "time", userID, r, limit)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	logs := make([]model.FoodLog, 0)
	for rows.Next() {
		log, err := scanFoodLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

func (db *Postgres) GetFoodLog(ctx context.Context, userID, id string) (*model.FoodLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return scanFoodLog(db.Pool.QueryRow(ctx,
		`SELECT `+foodColumns+` FROM food_logs WHERE id = $1 AND user_id = $2`, id, userID))
}

func (db *Postgres) UpdateFoodLog(ctx context.Context, userID, id string, req model.FoodLogRequest) (*model.FoodLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var foodName *string
	if req.FoodName != "" {
		foodName = &req.FoodName
	}
	row := db.Pool.QueryRow(ctx, `
		UPDATE food_logs
		SET food_name = COALESCE($3, food_name),
			amount = COALESCE($4, amount),
			protein = COALESCE($5, protein),
			carbs = COALESCE($6, carbs),
			fat = COALESCE($7, fat),
			time = COALESCE($8, time),
			geolocation = COALESCE($9::jsonb, geolocation),
			image_url = COALESCE($10, image_url)
		WHERE id = $1 AND user_id = $2
		RETURNING `+foodColumns,
		id, userID, foodName, req.Amount, req.Protein, req.Carbs, req.Fat, req.Time, req.Geolocation, req.ImageURL,
	)
	return scanFoodLog(row)
}

func (db *Postgres) DeleteFoodLog(ctx context.Context, userID, id string) error {
	return db.deleteOwned(ctx, "food_logs", userID, id)
}

func scanFoodLog(row pgx.Row) (*model.FoodLog, error) {
	var log model.FoodLog
	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.FoodName,
		&log.Amount,
		&log.Protein,
		&log.Carbs,
		&log.Fat,
		&log.Time,
		&log.Geolocation,
		&log.ImageURL,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

// --- food cache ---

func (db *Postgres) GetFoodCache(ctx context.Context, foodName string) (json.RawMessage, error) {
	var data []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT nutrition_data FROM food_cache WHERE food_name = $1
	`, foodName).Scan(&data)
	if err != nil {
		return nil, translate(err)
	}
	return json.RawMessage(data), nil
}

// PutFoodCache stores the first result for a query; later writes are ignored.
func (db *Postgres) PutFoodCache(ctx context.Context, foodName string, data json.RawMessage) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO food_cache (id, food_name, nutrition_data, cached_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (food_name) DO NOTHING
	`, uuid.NewString(), foodName, string(data))
	return translate(err)
}

// --- exercise ---

const exerciseColumns = `l.id, l.user_id, l.name, l.exercise_type_id, t.name, l.time, l.duration, l.calories, l.geolocation, l.created_at`

const exerciseFrom = ` FROM exercise_logs l JOIN exercise_types t ON t.id = l.exercise_type_id`

func (db *Postgres) ListExerciseTypes(ctx context.Context) ([]model.ExerciseType, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, icon, category, calories_per_minute
		FROM exercise_types
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	types := make([]model.ExerciseType, 0)
	for rows.Next() {
		var t model.ExerciseType
		if err := rows.Scan(&t.ID, &t.Name, &t.Icon, &t.Category, &t.CaloriesPerMinute); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (db *Postgres) GetExerciseType(ctx context.Context, id int64) (*model.ExerciseType, error) {
	var t model.ExerciseType
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, icon, category, calories_per_minute
		FROM exercise_types
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Icon, &t.Category, &t.CaloriesPerMinute)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (db *Postgres) CreateExerciseLog(ctx context.Context, log model.ExerciseLog) (*model.ExerciseLog, error) {
	id := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO exercise_logs (id, user_id, name, exercise_type_id, time, duration, calories, geolocation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, id, log.UserID, log.Name, log.ExerciseTypeID, log.Time, log.Duration, log.Calories, log.Geolocation)
	if err != nil {
		return nil, translate(err)
	}
	return db.GetExerciseLog(ctx, log.UserID, id)
}

func (db *Postgres) ListExerciseLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.ExerciseLog, error) {
	query, args := rangedQuery(`SELECT `+exerciseColumns+exerciseFrom+` WHERE l.user_id = $1`, "l.time", userID, r, limit)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	logs := make([]model.ExerciseLog, 0)
	for rows.Next() {
		log, err := scanExerciseLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

func (db *Postgres) GetExerciseLog(ctx context.Context, userID, id string) (*model.ExerciseLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return scanExerciseLog(db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+exerciseFrom+` WHERE l.id = $1 AND l.user_id = $2`, id, userID))
}

func (db *Postgres) UpdateExerciseLog(ctx context.Context, userID, id string, req model.ExerciseLogRequest) (*model.ExerciseLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var name *string
	if req.Name != "" {
		name = &req.Name
	}
	result, err := db.Pool.Exec(ctx, `
		UPDATE exercise_logs
		SET name = COALESCE($3, name),
			exercise_type_id = COALESCE($4, exercise_type_id),
			time = COALESCE($5, time),
			duration = COALESCE($6, duration),
			calories = COALESCE($7, calories),
			geolocation = COALESCE($8::jsonb, geolocation)
		WHERE id = $1 AND user_id = $2
	`, id, userID, name, req.ExerciseTypeID, req.Time, req.Duration, req.Calories, req.Geolocation)
	if err != nil {
		return nil, translate(err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetExerciseLog(ctx, userID, id)
}

func (db *Postgres) DeleteExerciseLog(ctx context.Context, userID, id string) error {
	return db.deleteOwned(ctx, "exercise_logs", userID, id)
}

func scanExerciseLog(row pgx.Row) (*model.ExerciseLog, error) {
	var log model.ExerciseLog
	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.Name,
		&log.ExerciseTypeID,
		&log.ExerciseTypeName,
		&log.Time,
		&log.Duration,
		&log.Calories,
		&log.Geolocation,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

// --- sleep ---

const sleepColumns = `id, user_id, start_time, end_time, quality_data, created_at`

func (db *Postgres) CreateSleepLog(ctx context.Context, log model.SleepLog) (*model.SleepLog, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO sleep_logs (id, user_id, start_time, end_time, quality_data, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING `+sleepColumns,
		uuid.NewString(), log.UserID, log.StartTime, log.EndTime, log.QualityData,
	)
	return scanSleepLog(row)
}

func (db *Postgres) ListSleepLogs(ctx context.Context, userID string, r model.TimeRange, limit int32) ([]model.SleepLog, error) {
	query, args := rangedQuery(`SELECT `+sleepColumns+` FROM sleep_logs WHERE user_id = $1`, "start_time", userID, r, limit)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	logs := make([]model.SleepLog, 0)
	for rows.Next() {
		log, err := scanSleepLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

func (db *Postgres) GetSleepLog(ctx context.Context, userID, id string) (*model.SleepLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return scanSleepLog(db.Pool.QueryRow(ctx,
		`SELECT `+sleepColumns+` FROM sleep_logs WHERE id = $1 AND user_id = $2`, id, userID))
}

func (db *Postgres) UpdateSleepLog(ctx context.Context, userID, id string, log model.SleepLog) (*model.SleepLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := db.Pool.QueryRow(ctx, `
		UPDATE sleep_logs
		SET start_time = $3, end_time = $4, quality_data = $5
		WHERE id = $1 AND user_id = $2
		RETURNING `+sleepColumns,
		id, userID, log.StartTime, log.EndTime, log.QualityData,
	)
	return scanSleepLog(row)
}

func (db *Postgres) DeleteSleepLog(ctx context.Context, userID, id string) error {
	return db.deleteOwned(ctx, "sleep_logs", userID, id)
}

func scanSleepLog(row pgx.Row) (*model.SleepLog, error) {
	var log model.SleepLog
	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.StartTime,
		&log.EndTime,
		&log.QualityData,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

// --- helpers ---

// rangedQuery appends the optional time range and ordering to a per-user
// select whose first placeholder is the user id.
func rangedQuery(base, timeColumn, userID string, r model.TimeRange, limit int32) (string, []any) {
	if limit <= 0 {
		limit = 100
	}
	args := []any{userID}
	query := base
	if r.Active() {
		query += fmt.Sprintf(" AND %s BETWEEN $2 AND $3", timeColumn)
		args = append(args, *r.Start, *r.End)
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY %s DESC LIMIT $%d", timeColumn, len(args))
	return query, args
}

// deleteOwned removes a row by id scoped to its owner. table is always a
// package constant.
func (db *Postgres) deleteOwned(ctx context.Context, table, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	result, err := db.Pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
