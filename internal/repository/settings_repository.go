package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kantikoala/planner-api/internal/models"
)

// SettingsRepository provides database access for scheduling preferences.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByUser returns the user's settings with priority tiers attached, ordered
// by level.
func (r *SettingsRepository) GetByUser(ctx context.Context, userID string) (*models.Settings, error) {
	const query = `SELECT id, user_id, learn_on_saturday, learn_on_sunday, preferred_learning_time,
		study_block_color, timezone, created_at, updated_at
		FROM settings WHERE user_id = $1 LIMIT 1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	const prioQuery = `SELECT id, settings_id, priority_level, color, days_to_learn, max_hours_per_day, total_hours_to_learn
		FROM priority_settings WHERE settings_id = $1 ORDER BY priority_level ASC`
	if err := r.db.SelectContext(ctx, &settings.Priorities, prioQuery, settings.ID); err != nil {
		return nil, fmt.Errorf("get priority settings: %w", err)
	}
	return &settings, nil
}

// Create inserts a settings row together with its priority tiers.
func (r *SettingsRepository) Create(ctx context.Context, settings *models.Settings) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO settings (id, user_id, learn_on_saturday, learn_on_sunday, preferred_learning_time,
		study_block_color, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, query,
		settings.ID, settings.UserID, settings.LearnOnSaturday, settings.LearnOnSunday,
		settings.PreferredLearningTime, settings.StudyBlockColor, settings.Timezone,
		settings.CreatedAt, settings.UpdatedAt); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}

	for i := range settings.Priorities {
		if err := insertPriority(ctx, tx, &settings.Priorities[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Update rewrites the preference fields of a settings row.
func (r *SettingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	const query = `UPDATE settings SET learn_on_saturday = $2, learn_on_sunday = $3, preferred_learning_time = $4,
		study_block_color = $5, timezone = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		settings.ID, settings.LearnOnSaturday, settings.LearnOnSunday, settings.PreferredLearningTime,
		settings.StudyBlockColor, settings.Timezone, settings.UpdatedAt); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// AddPriority appends a new priority tier.
func (r *SettingsRepository) AddPriority(ctx context.Context, prio *models.PrioritySetting) error {
	return insertPriority(ctx, r.db, prio)
}

// RemovePriority deletes a tier and closes the gap by decrementing every
// higher tier, using the given executor so event priorities can be shifted in
// the same transaction.
func (r *SettingsRepository) RemovePriority(ctx context.Context, exec sqlx.ExtContext, settingsID string, level int) error {
	const deleteQuery = `DELETE FROM priority_settings WHERE settings_id = $1 AND priority_level = $2`
	result, err := exec.ExecContext(ctx, deleteQuery, settingsID, level)
	if err != nil {
		return fmt.Errorf("remove priority: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}

	const shiftQuery = `UPDATE priority_settings SET priority_level = priority_level - 1
		WHERE settings_id = $1 AND priority_level > $2`
	if _, err := exec.ExecContext(ctx, shiftQuery, settingsID, level); err != nil {
		return fmt.Errorf("shift priorities: %w", err)
	}
	return nil
}

func insertPriority(ctx context.Context, exec sqlx.ExtContext, prio *models.PrioritySetting) error {
	const query = `INSERT INTO priority_settings (id, settings_id, priority_level, color, days_to_learn, max_hours_per_day, total_hours_to_learn)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := exec.ExecContext(ctx, query,
		prio.ID, prio.SettingsID, prio.PriorityLevel, prio.Color,
		prio.DaysToLearn, prio.MaxHoursPerDay, prio.TotalHoursToLearn); err != nil {
		return fmt.Errorf("create priority setting: %w", err)
	}
	return nil
}
