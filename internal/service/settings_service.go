package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	"github.com/kantikoala/planner-api/internal/planner"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

type settingsRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Settings, error)
	Create(ctx context.Context, settings *models.Settings) error
	Update(ctx context.Context, settings *models.Settings) error
	AddPriority(ctx context.Context, prio *models.PrioritySetting) error
	RemovePriority(ctx context.Context, exec sqlx.ExtContext, settingsID string, level int) error
}

type settingsEventRepository interface {
	ShiftPrioritiesAbove(ctx context.Context, exec sqlx.ExtContext, userID string, level int) error
}

// SettingsService manages scheduling preferences and priority tiers.
type SettingsService struct {
	settings  settingsRepository
	events    settingsEventRepository
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService instance.
func NewSettingsService(settings settingsRepository, events settingsEventRepository, tx txProvider, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SettingsService{settings: settings, events: events, tx: tx, validator: validate, logger: logger}
}

// Get returns the user's settings, creating the stock defaults on first
// access.
func (s *SettingsService) Get(ctx context.Context, userID string) (*models.Settings, error) {
	settings, err := s.settings.GetByUser(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	now := time.Now().UTC()
	settings = &models.Settings{
		ID:                    uuid.NewString(),
		UserID:                userID,
		PreferredLearningTime: models.DefaultPreferredLearningTime,
		StudyBlockColor:       models.DefaultStudyBlockColor,
		Timezone:              models.DefaultTimezone,
		CreatedAt:             now,
		UpdatedAt:             now,
		Priorities:            models.DefaultPriorities(),
	}
	for i := range settings.Priorities {
		settings.Priorities[i].ID = uuid.NewString()
		settings.Priorities[i].SettingsID = settings.ID
	}
	if err := s.settings.Create(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create default settings")
	}
	s.logger.Info("default settings created", zap.String("user_id", userID))
	return settings, nil
}

// Update applies partial preference changes, validating clock and timezone
// values before anything is stored.
func (s *SettingsService) Update(ctx context.Context, userID string, req dto.SettingsRequest) (*models.Settings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.LearnOnSaturday != nil {
		settings.LearnOnSaturday = *req.LearnOnSaturday
	}
	if req.LearnOnSunday != nil {
		settings.LearnOnSunday = *req.LearnOnSunday
	}
	if req.PreferredLearningTime != "" {
		if err := planner.ValidateClockTime(req.PreferredLearningTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferred learning time")
		}
		settings.PreferredLearningTime = req.PreferredLearningTime
	}
	if req.StudyBlockColor != "" {
		settings.StudyBlockColor = req.StudyBlockColor
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown timezone")
		}
		settings.Timezone = req.Timezone
	}
	settings.UpdatedAt = time.Now().UTC()

	if err := s.settings.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	return settings, nil
}

// AddPriority appends a new tier below the existing ones.
func (s *SettingsService) AddPriority(ctx context.Context, userID string, req dto.PriorityRequest) (*models.PrioritySetting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid priority payload")
	}

	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	prio := &models.PrioritySetting{
		ID:                uuid.NewString(),
		SettingsID:        settings.ID,
		PriorityLevel:     settings.MaxPriorityLevel() + 1,
		Color:             req.Color,
		DaysToLearn:       req.DaysToLearn,
		MaxHoursPerDay:    req.MaxHoursPerDay,
		TotalHoursToLearn: req.TotalHoursToLearn,
	}
	if err := s.settings.AddPriority(ctx, prio); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add priority")
	}
	return prio, nil
}

// RemovePriority deletes a tier. Higher tiers and the events tagged with
// them shift down one level in the same transaction so exam priorities stay
// contiguous.
func (s *SettingsService) RemovePriority(ctx context.Context, userID string, level int) (err error) {
	settings, err := s.settings.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "settings not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	if len(settings.Priorities) <= 1 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one priority tier must remain")
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.settings.RemovePriority(ctx, tx, settings.ID, level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "priority level not found")
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove priority")
		return err
	}
	if err = s.events.ShiftPrioritiesAbove(ctx, tx, userID, level); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to shift event priorities")
		return err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit priority removal")
		return err
	}
	s.logger.Info("priority tier removed", zap.String("user_id", userID), zap.Int("level", level))
	return nil
}
