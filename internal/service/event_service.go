package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	"github.com/kantikoala/planner-api/internal/planner"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

// Recurrence modes accepted on event creation. Series are materialised as
// individual rows sharing a recurrence id, which keeps the scheduler a plain
// scan over stored events.
const (
	RecurrenceDaily   = "Daily"
	RecurrenceWeekly  = "Weekly"
	RecurrenceMonthly = "Monthly"
)

var recurrenceCounts = map[string]struct {
	freq  rrule.Frequency
	count int
}{
	RecurrenceDaily:   {rrule.DAILY, 365},
	RecurrenceWeekly:  {rrule.WEEKLY, 52},
	RecurrenceMonthly: {rrule.MONTHLY, 12},
}

type eventRepository interface {
	ListByUser(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, events []models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	DeleteByRecurrence(ctx context.Context, userID, recurrenceID string) (int64, error)
}

type eventSettingsRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Settings, error)
}

// EventService provides calendar event use cases.
type EventService struct {
	events    eventRepository
	settings  eventSettingsRepository
	db        sqlx.ExtContext
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an EventService instance.
func NewEventService(events eventRepository, settings eventSettingsRepository, db sqlx.ExtContext, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{events: events, settings: settings, db: db, validator: validate, logger: logger}
}

// List returns the user's events, optionally narrowed to a time range.
func (s *EventService) List(ctx context.Context, userID string, req dto.EventListRequest) ([]models.Event, error) {
	filter := models.EventFilter{UserID: userID}
	if req.From != "" {
		from, err := planner.ParseInstant(req.From)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid from instant")
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := planner.ParseInstant(req.To)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid to instant")
		}
		filter.To = &to
	}

	events, err := s.events.ListByUser(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Create stores a new event. Events marked with a configured exam priority
// inherit the tier color; recurring events are expanded into a series of rows
// sharing one recurrence id.
func (s *EventService) Create(ctx context.Context, userID string, req dto.EventRequest) ([]models.Event, error) {
	base, err := s.buildEvent(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	if req.Recurrence == "" || req.Recurrence == models.RecurrenceNone {
		if err := s.events.Create(ctx, base); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
		}
		return []models.Event{*base}, nil
	}

	series, err := expandSeries(base, req.Recurrence)
	if err != nil {
		return nil, err
	}
	if err := s.events.CreateBatch(ctx, s.db, series); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event series")
	}

	s.logger.Info("event series created",
		zap.String("user_id", userID),
		zap.String("recurrence", req.Recurrence),
		zap.Int("occurrences", len(series)),
	)
	return series, nil
}

// Update rewrites an existing event after ownership and instant checks.
func (s *EventService) Update(ctx context.Context, userID, id string, req dto.EventRequest) (*models.Event, error) {
	existing, err := s.ownedEvent(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildEvent(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.Recurrence = existing.Recurrence
	updated.RecurrenceID = existing.RecurrenceID
	updated.ExamID = existing.ExamID
	updated.CreatedAt = existing.CreatedAt

	if err := s.events.Update(ctx, updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return updated, nil
}

// Delete removes an event. When series is true the whole recurrence series is
// removed instead of the single occurrence.
func (s *EventService) Delete(ctx context.Context, userID, id string, series bool) error {
	existing, err := s.ownedEvent(ctx, userID, id)
	if err != nil {
		return err
	}

	if series && existing.Recurrence != models.RecurrenceNone {
		deleted, err := s.events.DeleteByRecurrence(ctx, userID, existing.RecurrenceID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete series")
		}
		s.logger.Info("event series deleted", zap.String("user_id", userID), zap.Int64("occurrences", deleted))
		return nil
	}

	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

func (s *EventService) ownedEvent(ctx context.Context, userID, id string) (*models.Event, error) {
	existing, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch event")
	}
	if existing.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return existing, nil
}

func (s *EventService) buildEvent(ctx context.Context, userID string, req dto.EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	start, err := planner.ParseInstant(req.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start instant")
	}

	var end *time.Time
	if req.End != "" {
		parsed, err := planner.ParseInstant(req.End)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end instant")
		}
		if !parsed.After(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
		}
		end = &parsed
	}

	color := req.Color
	if req.Priority > 0 {
		settings, err := s.settings.GetByUser(ctx, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
		}
		if settings != nil {
			if prio, ok := settings.PriorityMap()[req.Priority]; ok {
				color = prio.Color
			}
		}
	}
	if color == "" {
		color = models.DefaultStudyBlockColor
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}

	now := time.Now().UTC()
	return &models.Event{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        req.Title,
		Start:        start,
		End:          end,
		Color:        color,
		Priority:     req.Priority,
		Recurrence:   recurrence,
		RecurrenceID: "0",
		AllDay:       req.AllDay,
		Locked:       req.Locked,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// expandSeries materialises a recurring event into dated occurrences.
func expandSeries(base *models.Event, recurrence string) ([]models.Event, error) {
	cadence, ok := recurrenceCounts[recurrence]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported recurrence %q", recurrence))
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    cadence.freq,
		Count:   cadence.count,
		Dtstart: base.Start,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build recurrence rule")
	}

	var duration time.Duration
	if base.End != nil {
		duration = base.End.Sub(base.Start)
	}

	seriesID := uuid.NewString()
	occurrences := rule.All()
	series := make([]models.Event, 0, len(occurrences))
	for _, start := range occurrences {
		occ := *base
		occ.ID = uuid.NewString()
		occ.Start = start.UTC()
		if base.End != nil {
			end := start.Add(duration).UTC()
			occ.End = &end
		}
		occ.Recurrence = recurrence
		occ.RecurrenceID = seriesID
		series = append(series, occ)
	}
	return series, nil
}
