package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/kantikoala/planner-api/internal/models"
)

const eventColumns = `id, user_id, title, start_at, end_at, color, priority, recurrence, recurrence_id, all_day, locked, exam_id, created_at, updated_at`

// EventRepository provides database access for calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListByUser returns the user's events, optionally narrowed by the filter.
// Results are ordered by start instant.
func (r *EventRepository) ListByUser(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`
	args := []interface{}{filter.UserID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND start_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND start_at <= $%d", len(args))
	}
	if filter.RecurrenceID != "" {
		args = append(args, filter.RecurrenceID)
		query += fmt.Sprintf(" AND recurrence_id = $%d", len(args))
	}
	query += " ORDER BY start_at ASC"

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID returns a single event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// Create inserts a single event row.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	const query = `INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(ctx, query, eventArgs(event)...); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// CreateBatch inserts events using the given executor, allowing callers to
// batch inserts inside a transaction.
func (r *EventRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, events []models.Event) error {
	const query = `INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	for i := range events {
		if _, err := exec.ExecContext(ctx, query, eventArgs(&events[i])...); err != nil {
			return fmt.Errorf("create event %s: %w", events[i].ID, err)
		}
	}
	return nil
}

// Update rewrites a stored event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	const query = `UPDATE events SET title = $2, start_at = $3, end_at = $4, color = $5, priority = $6,
		recurrence = $7, recurrence_id = $8, all_day = $9, locked = $10, exam_id = $11, updated_at = $12
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Start, event.End, event.Color, event.Priority,
		event.Recurrence, event.RecurrenceID, event.AllDay, event.Locked, event.ExamID, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a single event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByRecurrence removes every occurrence in a recurrence series.
func (r *EventRepository) DeleteByRecurrence(ctx context.Context, userID, recurrenceID string) (int64, error) {
	const query = `DELETE FROM events WHERE user_id = $1 AND recurrence_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, recurrenceID)
	if err != nil {
		return 0, fmt.Errorf("delete recurrence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete recurrence: %w", err)
	}
	return rows, nil
}

// DeleteBatch removes events by id using the given executor.
func (r *EventRepository) DeleteBatch(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `DELETE FROM events WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

// ShiftPrioritiesAbove decrements the priority of every event strictly above
// the given level. Used when a priority tier is removed so higher tiers close
// the gap.
func (r *EventRepository) ShiftPrioritiesAbove(ctx context.Context, exec sqlx.ExtContext, userID string, level int) error {
	const query = `UPDATE events SET priority = priority - 1 WHERE user_id = $1 AND priority > $2`
	if _, err := exec.ExecContext(ctx, query, userID, level); err != nil {
		return fmt.Errorf("shift event priorities: %w", err)
	}
	return nil
}

func eventArgs(e *models.Event) []interface{} {
	return []interface{}{
		e.ID, e.UserID, e.Title, e.Start, e.End, e.Color, e.Priority,
		e.Recurrence, e.RecurrenceID, e.AllDay, e.Locked, e.ExamID, e.CreatedAt, e.UpdatedAt,
	}
}
