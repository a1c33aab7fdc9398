package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/dto"
	"github.com/kantikoala/planner-api/internal/models"
	"github.com/kantikoala/planner-api/internal/planner"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

type plannerEventRepository interface {
	ListByUser(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, events []models.Event) error
	DeleteBatch(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type plannerSettingsRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Settings, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ReportCache is the subset of the Redis client used for plan reports.
type ReportCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// PlannerService orchestrates scheduling runs: it loads the user's event
// snapshot and preferences, runs the allocator, and applies the resulting
// mutations in a single transaction.
type PlannerService struct {
	events    plannerEventRepository
	settings  plannerSettingsRepository
	tx        txProvider
	cache     ReportCache
	metrics   *MetricsService
	engine    *planner.Planner
	reportTTL time.Duration
	logger    *zap.Logger
}

// NewPlannerService constructs a PlannerService instance.
func NewPlannerService(
	events plannerEventRepository,
	settings plannerSettingsRepository,
	tx txProvider,
	cache ReportCache,
	metrics *MetricsService,
	engine *planner.Planner,
	reportTTL time.Duration,
	logger *zap.Logger,
) *PlannerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reportTTL <= 0 {
		reportTTL = time.Hour
	}
	return &PlannerService{
		events:    events,
		settings:  settings,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		engine:    engine,
		reportTTL: reportTTL,
		logger:    logger,
	}
}

// Run executes a scheduling run for the user and persists the outcome.
func (s *PlannerService) Run(ctx context.Context, userID string) (*dto.PlanReport, error) {
	started := time.Now()

	settings, err := s.settings.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObservePlannerRun("no_configuration", 0, 0, time.Since(started))
			return nil, appErrors.Clone(appErrors.ErrNoConfiguration, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	events, err := s.events.ListByUser(ctx, models.EventFilter{UserID: userID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	plan, err := s.engine.Schedule(events, settings, time.Now().UTC())
	if err != nil {
		s.metrics.ObservePlannerRun("error", 0, 0, time.Since(started))
		return nil, err
	}

	if err := s.apply(ctx, userID, plan.Mutations); err != nil {
		s.metrics.ObservePlannerRun("error", 0, 0, time.Since(started))
		return nil, err
	}

	report := &dto.PlanReport{
		RanAt:   time.Now().UTC(),
		Summary: plan.Summary,
		Results: plan.Results,
	}
	s.cacheReport(ctx, userID, report)

	outcome := "success"
	for _, result := range plan.Results {
		if !result.Success {
			outcome = "shortfall"
			break
		}
	}
	s.metrics.ObservePlannerRun(outcome, plan.Summary.BlocksAdded, plan.Summary.HoursAdded, time.Since(started))

	s.logger.Info("scheduling run applied",
		zap.String("user_id", userID),
		zap.String("outcome", outcome),
		zap.Int("blocks_added", plan.Summary.BlocksAdded),
		zap.Int("blocks_recycled", len(plan.Mutations.ToDelete)),
	)
	return report, nil
}

// LatestReport returns the cached outcome of the user's last run.
func (s *PlannerService) LatestReport(ctx context.Context, userID string) (*dto.PlanReport, error) {
	if s.cache == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no recent scheduling run")
	}

	raw, err := s.cache.Get(ctx, reportKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.metrics.ObserveReportCache(false)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no recent scheduling run")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report cache")
	}

	var report dto.PlanReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode cached report")
	}
	s.metrics.ObserveReportCache(true)
	return &report, nil
}

// apply commits the recycle deletions and new blocks as one atomic unit, so
// a failed run never leaves the calendar half rewritten.
func (s *PlannerService) apply(ctx context.Context, userID string, mutations planner.Mutations) (err error) {
	if len(mutations.ToDelete) == 0 && len(mutations.ToCreate) == 0 {
		return nil
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

	if err = s.events.DeleteBatch(ctx, tx, mutations.ToDelete); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recycle study blocks")
		return err
	}
	if err = s.events.CreateBatch(ctx, tx, mutations.ToCreate); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist study blocks")
		return err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit scheduling run")
		return err
	}
	return nil
}

func (s *PlannerService) cacheReport(ctx context.Context, userID string, report *dto.PlanReport) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("failed to encode plan report", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, reportKey(userID), payload, s.reportTTL).Err(); err != nil {
		s.logger.Warn("failed to cache plan report", zap.Error(err))
	}
}

func reportKey(userID string) string {
	return fmt.Sprintf("planner:report:%s", userID)
}
