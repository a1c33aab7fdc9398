package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/models"
	"github.com/kantikoala/planner-api/internal/planner"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type plannerEventsStub struct {
	events  []models.Event
	created []models.Event
	deleted []string
}

func (s *plannerEventsStub) ListByUser(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	return s.events, nil
}

func (s *plannerEventsStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, events []models.Event) error {
	for _, ev := range events {
		if _, err := exec.ExecContext(ctx, "INSERT INTO events (id) VALUES ($1)", ev.ID); err != nil {
			return err
		}
	}
	s.created = append(s.created, events...)
	return nil
}

func (s *plannerEventsStub) DeleteBatch(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	for _, id := range ids {
		if _, err := exec.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id); err != nil {
			return err
		}
	}
	s.deleted = append(s.deleted, ids...)
	return nil
}

type plannerSettingsStub struct {
	settings *models.Settings
	err      error
}

func (s *plannerSettingsStub) GetByUser(ctx context.Context, userID string) (*models.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.settings, nil
}

func plannerFixtureSettings() *models.Settings {
	return &models.Settings{
		ID:                    "s1",
		UserID:                "u1",
		PreferredLearningTime: "18:00",
		StudyBlockColor:       "#0000FF",
		Timezone:              "UTC",
		Priorities:            models.DefaultPriorities(),
	}
}

func newPlannerServiceFixture(t *testing.T, events *plannerEventsStub, settings *plannerSettingsStub, tx txProvider) *PlannerService {
	engine, err := planner.New(planner.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	return NewPlannerService(events, settings, tx, nil, nil, engine, time.Hour, zap.NewNop())
}

func TestPlannerServiceRunAppliesMutationsInOneTransaction(t *testing.T) {
	examEnd := time.Now().UTC().AddDate(0, 0, 10)
	events := &plannerEventsStub{events: []models.Event{{
		ID:       "x1",
		UserID:   "u1",
		Title:    "Maths",
		Start:    examEnd,
		Priority: 1,
	}}}
	txProvider, mock := newTxProviderMock(t)
	service := newPlannerServiceFixture(t, events, &plannerSettingsStub{settings: plannerFixtureSettings()}, txProvider)

	// The exact block count depends on which weekday the run lands on, so
	// expectations are unordered and deliberately generous.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	for i := 0; i < 32; i++ {
		mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	report, err := service.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Summary.ExamsProcessed)
	assert.Greater(t, report.Summary.BlocksAdded, 0)
	assert.Len(t, events.created, report.Summary.BlocksAdded)
	assert.Empty(t, events.deleted)
}

func TestPlannerServiceRunWithoutSettings(t *testing.T) {
	service := newPlannerServiceFixture(t,
		&plannerEventsStub{},
		&plannerSettingsStub{err: sql.ErrNoRows},
		nil,
	)

	_, err := service.Run(context.Background(), "u1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoConfiguration.Code, appErr.Code)
}

func TestPlannerServiceRunNoMutationsSkipsTransaction(t *testing.T) {
	// No exams at all: the engine produces an empty plan and nothing is
	// written, so a nil transaction provider must not be touched.
	service := newPlannerServiceFixture(t,
		&plannerEventsStub{},
		&plannerSettingsStub{settings: plannerFixtureSettings()},
		nil,
	)

	report, err := service.Run(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.ExamsProcessed)
	assert.Equal(t, 0, report.Summary.BlocksAdded)
}

func TestPlannerServiceRunRollsBackOnFailure(t *testing.T) {
	examEnd := time.Now().UTC().AddDate(0, 0, 10)
	events := &plannerEventsStub{events: []models.Event{{
		ID:       "x1",
		UserID:   "u1",
		Title:    "Maths",
		Start:    examEnd,
		Priority: 1,
	}}}
	txProvider, mock := newTxProviderMock(t)
	service := newPlannerServiceFixture(t, events, &plannerSettingsStub{settings: plannerFixtureSettings()}, txProvider)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := service.Run(context.Background(), "u1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerServiceLatestReportWithoutCache(t *testing.T) {
	service := newPlannerServiceFixture(t,
		&plannerEventsStub{},
		&plannerSettingsStub{settings: plannerFixtureSettings()},
		nil,
	)

	_, err := service.LatestReport(context.Background(), "u1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
