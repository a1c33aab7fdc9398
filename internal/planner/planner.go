// Package planner implements the learning-time scheduling algorithm: a
// greedy, priority-ordered, backward-looking slot allocator that turns a
// snapshot of calendar events plus user preferences into a replacement set of
// study blocks. The package is pure: it performs no I/O and never touches a
// store; persistence of the returned mutations is the caller's concern and
// must be applied atomically.
package planner

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

// Config tunes the allocator. Day bounds are wall-clock times in the user's
// timezone. Zero values fall back to the documented defaults.
type Config struct {
	DayStart        string  // default "08:00"
	DayEnd          string  // default "22:00"
	BufferMinutes   int     // margin around existing events, default 30
	MinSessionHours float64 // shortest block worth placing, default 0.5
	MaxLookbackDays int     // how far before an exam to search, default 21
}

// DefaultConfig returns the baseline tuning.
func DefaultConfig() Config {
	return Config{
		DayStart:        "08:00",
		DayEnd:          "22:00",
		BufferMinutes:   30,
		MinSessionHours: 0.5,
		MaxLookbackDays: 21,
	}
}

// Planner schedules study blocks for upcoming exams.
type Planner struct {
	cfg      Config
	dayStart clockTime
	dayEnd   clockTime
	logger   *zap.Logger
}

// New validates the configuration and builds a Planner.
func New(cfg Config, logger *zap.Logger) (*Planner, error) {
	defaults := DefaultConfig()
	if cfg.DayStart == "" {
		cfg.DayStart = defaults.DayStart
	}
	if cfg.DayEnd == "" {
		cfg.DayEnd = defaults.DayEnd
	}
	if cfg.BufferMinutes <= 0 {
		cfg.BufferMinutes = defaults.BufferMinutes
	}
	if cfg.MinSessionHours <= 0 {
		cfg.MinSessionHours = defaults.MinSessionHours
	}
	if cfg.MaxLookbackDays <= 0 {
		cfg.MaxLookbackDays = defaults.MaxLookbackDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dayStart, err := parseClockTime(cfg.DayStart)
	if err != nil {
		return nil, err
	}
	dayEnd, err := parseClockTime(cfg.DayEnd)
	if err != nil {
		return nil, err
	}
	if dayStart.hour*60+dayStart.minute >= dayEnd.hour*60+dayEnd.minute {
		return nil, fmt.Errorf("planner: day start %s must precede day end %s", cfg.DayStart, cfg.DayEnd)
	}

	return &Planner{cfg: cfg, dayStart: dayStart, dayEnd: dayEnd, logger: logger}, nil
}

// RunSummary aggregates one scheduling run.
type RunSummary struct {
	ExamsProcessed int     `json:"exams_processed"`
	BlocksAdded    int     `json:"blocks_added"`
	HoursAdded     float64 `json:"hours_added"`
}

// Outcome is the per-exam verdict of a run.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Mutations lists the changes a run wants applied to the store. The delete
// and create sets must be committed as one atomic unit.
type Mutations struct {
	ToDelete []string       `json:"to_delete"`
	ToCreate []models.Event `json:"to_create"`
}

// Plan is the full result of a scheduling run.
type Plan struct {
	Summary   RunSummary         `json:"summary"`
	Results   map[string]Outcome `json:"results"`
	Mutations Mutations          `json:"mutations"`
}

// Schedule runs the allocator over the user's event snapshot. It is
// deterministic and idempotent for a fixed now: re-running it on its own
// output reproduces the same schedule.
func (p *Planner) Schedule(events []models.Event, settings *models.Settings, now time.Time) (*Plan, error) {
	if settings == nil || len(settings.Priorities) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoConfiguration, "")
	}

	loc := time.UTC
	if settings.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(settings.Timezone)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("unknown timezone %q", settings.Timezone))
		}
	}

	preferredRaw := settings.PreferredLearningTime
	if preferredRaw == "" {
		preferredRaw = models.DefaultPreferredLearningTime
	}
	preferred, err := parseClockTime(preferredRaw)
	if err != nil {
		return nil, err
	}

	blockColor := settings.StudyBlockColor
	if blockColor == "" {
		blockColor = models.DefaultStudyBlockColor
	}

	priorities := settings.PriorityMap()

	working, removed := recycle(events, now)
	ws := &workingSet{events: working}

	plan := &Plan{
		Results:   make(map[string]Outcome),
		Mutations: Mutations{ToDelete: removed},
	}

	for _, exam := range selectExams(ws.events, priorities, now) {
		prio := priorities[exam.Priority]
		plan.Summary.ExamsProcessed++

		done := hoursDone(exam.ID, ws.events, now)
		lockedFuture := hoursLockedFuture(exam.ID, ws.events, now)
		required := math.Max(0, prio.TotalHoursToLearn-done)
		remaining := math.Max(0, required-lockedFuture)

		if remaining <= 0 {
			plan.Results[exam.Title] = Outcome{
				Success: true,
				Message: fmt.Sprintf("Successfully scheduled all %.1f hours.", required),
			}
			continue
		}

		scheduled, blocks := p.allocate(allocation{
			exam:       exam,
			prio:       prio,
			remaining:  remaining,
			settings:   settings,
			preferred:  preferred,
			blockColor: blockColor,
			loc:        loc,
			now:        now,
		}, ws)

		plan.Mutations.ToCreate = append(plan.Mutations.ToCreate, blocks...)
		plan.Summary.BlocksAdded += len(blocks)
		plan.Summary.HoursAdded += scheduled

		totalScheduled := scheduled + lockedFuture
		if totalScheduled >= required {
			plan.Results[exam.Title] = Outcome{
				Success: true,
				Message: fmt.Sprintf("Successfully scheduled all %.1f hours.", required),
			}
		} else {
			plan.Results[exam.Title] = Outcome{
				Success: false,
				Message: fmt.Sprintf("Could only schedule %.1f out of %.1f hours.", totalScheduled, required),
			}
		}

		p.logger.Debug("exam allocated",
			zap.String("exam", exam.Title),
			zap.Int("priority", exam.Priority),
			zap.Float64("required", required),
			zap.Float64("scheduled", totalScheduled),
			zap.Int("blocks", len(blocks)),
		)
	}

	p.logger.Info("scheduling run complete",
		zap.Int("exams_processed", plan.Summary.ExamsProcessed),
		zap.Int("blocks_added", plan.Summary.BlocksAdded),
		zap.Float64("hours_added", plan.Summary.HoursAdded),
		zap.Int("blocks_recycled", len(removed)),
	)
	return plan, nil
}

// workingSet is the mutable in-memory event list threaded through a run so
// every committed block is immediately visible to later days and later exams.
type workingSet struct {
	events []models.Event
}

func (w *workingSet) add(ev models.Event) {
	w.events = append(w.events, ev)
}
