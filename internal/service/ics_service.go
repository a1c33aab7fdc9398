package service

import (
	"bytes"
	"context"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

// Imported calendar entries are plain busy events: locked so the scheduler
// never recycles them, and prioritised above every exam tier so they block
// time without becoming scheduling targets.
const (
	importColor    = "#fcba03"
	importPriority = 4
)

type icsEventRepository interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, events []models.Event) error
}

// ICSService imports iCalendar payloads into the user's calendar.
type ICSService struct {
	events icsEventRepository
	db     sqlx.ExtContext
	logger *zap.Logger
}

// NewICSService constructs an ICSService instance.
func NewICSService(events icsEventRepository, db sqlx.ExtContext, logger *zap.Logger) *ICSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ICSService{events: events, db: db, logger: logger}
}

// Import parses an ICS payload and stores every well-formed VEVENT as a
// locked busy event. Malformed components are skipped, not fatal.
func (s *ICSService) Import(ctx context.Context, userID string, payload []byte) (*dto.ImportResult, error) {
	if len(payload) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty calendar payload")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid iCalendar payload")
	}

	now := time.Now().UTC()
	imported := make([]models.Event, 0, len(cal.Events()))
	skipped := 0

	for _, ve := range cal.Events() {
		event, ok := s.parseVEvent(userID, ve, now)
		if !ok {
			skipped++
			continue
		}
		imported = append(imported, event)
	}

	if len(imported) > 0 {
		if err := s.events.CreateBatch(ctx, s.db, imported); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store imported events")
		}
	}

	s.logger.Info("ics import completed",
		zap.String("user_id", userID),
		zap.Int("imported", len(imported)),
		zap.Int("skipped", skipped),
	)
	return &dto.ImportResult{Imported: len(imported), Skipped: skipped}, nil
}

func (s *ICSService) parseVEvent(userID string, ve *ical.VEvent, now time.Time) (models.Event, bool) {
	allDay := false
	start, err := ve.GetStartAt()
	if err != nil {
		// Date-only DTSTART values fail datetime parsing.
		start, err = ve.GetAllDayStartAt()
		if err != nil {
			s.logger.Debug("skipping vevent without start", zap.Error(err))
			return models.Event{}, false
		}
		allDay = true
	}

	title := "Imported event"
	if prop := ve.GetProperty(ical.ComponentPropertySummary); prop != nil && prop.Value != "" {
		title = prop.Value
	}

	event := models.Event{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        title,
		Start:        start.UTC(),
		Color:        importColor,
		Priority:     importPriority,
		Recurrence:   models.RecurrenceNone,
		RecurrenceID: "0",
		AllDay:       allDay,
		Locked:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if allDay {
		if end, err := ve.GetAllDayEndAt(); err == nil && end.After(start) {
			endUTC := end.UTC()
			event.End = &endUTC
		}
		return event, true
	}

	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		endUTC := end.UTC()
		event.End = &endUTC
	}
	return event, true
}
