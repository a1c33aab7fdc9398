package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
	"github.com/kantikoala/planner-api/pkg/export"
)

type exportEventRepository interface {
	ListByUser(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

type exportSettingsRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Settings, error)
}

// ExportService renders the user's upcoming study plan as a document.
type ExportService struct {
	events   exportEventRepository
	settings exportSettingsRepository
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(events exportEventRepository, settings exportSettingsRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		events:   events,
		settings: settings,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		logger:   logger,
	}
}

// StudyPlanPDF renders the upcoming study blocks as a PDF.
func (s *ExportService) StudyPlanPDF(ctx context.Context, userID string) ([]byte, error) {
	dataset, err := s.studyPlanDataset(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(*dataset, "Study Plan")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

// StudyPlanCSV renders the upcoming study blocks as CSV.
func (s *ExportService) StudyPlanCSV(ctx context.Context, userID string) ([]byte, error) {
	dataset, err := s.studyPlanDataset(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

func (s *ExportService) studyPlanDataset(ctx context.Context, userID string) (*export.Dataset, error) {
	now := time.Now().UTC()
	events, err := s.events.ListByUser(ctx, models.EventFilter{UserID: userID, From: &now})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	loc := time.UTC
	if settings, err := s.settings.GetByUser(ctx, userID); err == nil && settings.Timezone != "" {
		if parsed, err := time.LoadLocation(settings.Timezone); err == nil {
			loc = parsed
		}
	}

	blocks := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if ev.IsStudyBlock() {
			blocks = append(blocks, ev)
		}
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Start.Before(blocks[j].Start)
	})

	dataset := &export.Dataset{
		Headers: []string{"Date", "From", "To", "Subject", "Hours"},
		Rows:    make([]map[string]string, 0, len(blocks)),
	}
	for _, block := range blocks {
		start := block.Start.In(loc)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    start.Format("Mon 02 Jan 2006"),
			"From":    start.Format("15:04"),
			"To":      block.EffectiveEnd().In(loc).Format("15:04"),
			"Subject": block.Title,
			"Hours":   fmt.Sprintf("%.1f", block.DurationHours()),
		})
	}
	return dataset, nil
}
