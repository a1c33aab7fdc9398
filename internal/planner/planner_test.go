package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantikoala/planner-api/internal/models"
	appErrors "github.com/kantikoala/planner-api/pkg/errors"
)

func utcSettings(priorities ...models.PrioritySetting) *models.Settings {
	return &models.Settings{
		ID:                    "settings-1",
		UserID:                "user-1",
		LearnOnSaturday:       false,
		LearnOnSunday:         false,
		PreferredLearningTime: "18:00",
		StudyBlockColor:       "#0000FF",
		Timezone:              "UTC",
		Priorities:            priorities,
	}
}

func examEvent(t *testing.T, id, title, start string, priority int) models.Event {
	t.Helper()
	return models.Event{
		ID:       id,
		UserID:   "user-1",
		Title:    title,
		Start:    instant(t, start),
		Color:    "#770000",
		Priority: priority,
		Locked:   true,
	}
}

// Monday morning, with a priority-1 exam on the Thursday of the next week.
var (
	testNow      = "2026-03-02T06:00:00Z"
	testExamDate = "2026-03-12T09:00:00Z"
)

func TestScheduleFillsPreferredSlotsOnWeekdays(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 14.0, DaysToLearn: 14,
	})
	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", testExamDate, 1)}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Summary.ExamsProcessed)
	assert.Equal(t, 7, plan.Summary.BlocksAdded)
	assert.InDelta(t, 14.0, plan.Summary.HoursAdded, 1e-9)
	assert.Empty(t, plan.Mutations.ToDelete)
	require.Len(t, plan.Mutations.ToCreate, 7)

	seenDays := make(map[string]bool)
	for _, block := range plan.Mutations.ToCreate {
		assert.Equal(t, models.PriorityStudyBlock, block.Priority)
		assert.False(t, block.Locked)
		require.NotNil(t, block.ExamID)
		assert.Equal(t, "exam-1", *block.ExamID)
		assert.Equal(t, "Learning for Maths Exam", block.Title)
		assert.Equal(t, "#0000FF", block.Color)

		assert.Equal(t, 18, block.Start.Hour(), "preferred 18:00 placement")
		assert.InDelta(t, 2.0, block.DurationHours(), 1e-9)

		wd := block.Start.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)

		day := block.Start.Format("2006-01-02")
		assert.False(t, seenDays[day], "one block per day")
		seenDays[day] = true
	}

	outcome, ok := plan.Results["Maths Exam"]
	require.True(t, ok)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Successfully scheduled all 14.0 hours.", outcome.Message)
}

func TestScheduleFallsBackToLargestFreeSlot(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 14.0, DaysToLearn: 14,
	})

	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", testExamDate, 1)}
	// An existing appointment covering the preferred time on every candidate day.
	for day := 2; day <= 11; day++ {
		start := time.Date(2026, time.March, day, 18, 0, 0, 0, time.UTC)
		end := start.Add(90 * time.Minute)
		events = append(events, models.Event{
			ID:       start.Format("busy-2006-01-02"),
			UserID:   "user-1",
			Title:    "Training",
			Start:    start,
			End:      &end,
			Color:    "#888888",
			Priority: 4,
			Locked:   true,
		})
	}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.Equal(t, 7, plan.Summary.BlocksAdded)
	assert.InDelta(t, 14.0, plan.Summary.HoursAdded, 1e-9)
	for _, block := range plan.Mutations.ToCreate {
		// Largest open window starts at the day start.
		assert.Equal(t, 8, block.Start.Hour())
		assert.InDelta(t, 2.0, block.DurationHours(), 1e-9)
	}
	assert.True(t, plan.Results["Maths Exam"].Success)
}

func TestScheduleReportsShortfallWhenWindowTooSmall(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 14.0, DaysToLearn: 14,
	})
	// Exam on Wednesday with only two candidate days before it.
	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", "2026-03-04T09:00:00Z", 1)}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.Equal(t, 2, plan.Summary.BlocksAdded)
	assert.InDelta(t, 4.0, plan.Summary.HoursAdded, 1e-9)

	outcome := plan.Results["Maths Exam"]
	assert.False(t, outcome.Success)
	assert.Equal(t, "Could only schedule 4.0 out of 14.0 hours.", outcome.Message)
}

func TestScheduleSkipsAllDayBlockedDays(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14,
	})
	allDay := models.Event{
		ID:       "excursion",
		UserID:   "user-1",
		Title:    "School excursion",
		Start:    instant(t, "2026-03-11T00:00:00Z"),
		Color:    "#888888",
		Priority: 4,
		AllDay:   true,
		Locked:   true,
	}
	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", testExamDate, 1), allDay}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.Empty(t, p.FreeSlots(events, instant(t, "2026-03-11T00:00:00Z"), time.UTC))
	for _, block := range plan.Mutations.ToCreate {
		assert.NotEqual(t, "2026-03-11", block.Start.Format("2006-01-02"))
	}
	assert.True(t, plan.Results["Maths Exam"].Success)
}

func TestSchedulePriorityOrderingClaimsPreferredSlotsFirst(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(
		models.PrioritySetting{PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14},
		models.PrioritySetting{PriorityLevel: 2, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14},
	)
	events := []models.Event{
		// Listed lower-urgency first to prove ordering is by priority, not input order.
		examEvent(t, "exam-2", "History Exam", testExamDate, 2),
		examEvent(t, "exam-1", "Maths Exam", testExamDate, 1),
	}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	var mathsBlocks, historyBlocks []models.Event
	for _, block := range plan.Mutations.ToCreate {
		switch *block.ExamID {
		case "exam-1":
			mathsBlocks = append(mathsBlocks, block)
		case "exam-2":
			historyBlocks = append(historyBlocks, block)
		}
	}
	require.NotEmpty(t, mathsBlocks)
	require.NotEmpty(t, historyBlocks)

	for _, block := range mathsBlocks {
		assert.Equal(t, 18, block.Start.Hour(), "urgent exam gets the preferred time")
	}
	for _, block := range historyBlocks {
		assert.NotEqual(t, 18, block.Start.Hour(), "less urgent exam receives leftover slots")
	}
	assert.True(t, plan.Results["Maths Exam"].Success)
	assert.True(t, plan.Results["History Exam"].Success)
}

func TestScheduleKeepsLockedBlocksAndCreditsTheirHours(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14,
	})
	examID := "exam-1"
	lockedEnd := instant(t, "2026-03-11T20:00:00Z")
	locked := models.Event{
		ID:       "locked-block",
		UserID:   "user-1",
		Title:    "Learning for Maths Exam",
		Start:    instant(t, "2026-03-11T18:00:00Z"),
		End:      &lockedEnd,
		Color:    "#0000FF",
		Priority: models.PriorityStudyBlock,
		Locked:   true,
		ExamID:   &examID,
	}
	events := []models.Event{examEvent(t, examID, "Maths Exam", testExamDate, 1), locked}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.NotContains(t, plan.Mutations.ToDelete, "locked-block")
	assert.Equal(t, 1, plan.Summary.BlocksAdded, "only the uncovered two hours get a new block")
	assert.InDelta(t, 2.0, plan.Summary.HoursAdded, 1e-9)
	assert.True(t, plan.Results["Maths Exam"].Success)
}

func TestScheduleRecyclesUnlockedBlocksStructurally(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14,
	})
	examID := "exam-1"
	staleEnd := instant(t, "2026-03-10T13:00:00Z")
	stale := models.Event{
		ID: "stale-block",
		// Renamed by the user; recycling must not depend on the title.
		Title:    "My study session",
		UserID:   "user-1",
		Start:    instant(t, "2026-03-10T12:00:00Z"),
		End:      &staleEnd,
		Priority: models.PriorityStudyBlock,
		Locked:   false,
		ExamID:   &examID,
	}
	pastEnd := instant(t, "2026-02-27T19:00:00Z")
	past := models.Event{
		ID:       "past-block",
		Title:    "Learning for Maths Exam",
		UserID:   "user-1",
		Start:    instant(t, "2026-02-27T18:00:00Z"),
		End:      &pastEnd,
		Priority: models.PriorityStudyBlock,
		Locked:   false,
		ExamID:   &examID,
	}
	events := []models.Event{examEvent(t, examID, "Maths Exam", testExamDate, 1), stale, past}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.Equal(t, []string{"stale-block"}, plan.Mutations.ToDelete)
	// The past block's hour is credited against the four required hours.
	assert.InDelta(t, 3.0, plan.Summary.HoursAdded, 1e-9)
}

func TestScheduleIsIdempotent(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 14.0, DaysToLearn: 14,
	})
	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", testExamDate, 1)}
	now := instant(t, testNow)

	first, err := p.Schedule(events, settings, now)
	require.NoError(t, err)

	// Apply the mutations and run again with the same now.
	next := append([]models.Event{}, events...)
	next = append(next, first.Mutations.ToCreate...)

	second, err := p.Schedule(next, settings, now)
	require.NoError(t, err)

	createdIDs := make([]string, 0, len(first.Mutations.ToCreate))
	for _, block := range first.Mutations.ToCreate {
		assert.Contains(t, second.Mutations.ToDelete, block.ID)
		createdIDs = append(createdIDs, block.ID)
	}
	assert.Len(t, second.Mutations.ToDelete, len(createdIDs))

	require.Len(t, second.Mutations.ToCreate, len(first.Mutations.ToCreate))
	firstTimes := make(map[string]bool)
	for _, block := range first.Mutations.ToCreate {
		firstTimes[FormatInstant(block.Start)+"/"+FormatInstant(*block.End)] = true
	}
	for _, block := range second.Mutations.ToCreate {
		assert.True(t, firstTimes[FormatInstant(block.Start)+"/"+FormatInstant(*block.End)],
			"rescheduled block should reproduce the same window")
	}
	assert.Equal(t, first.Summary, second.Summary)
}

func TestScheduleBufferInvariant(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 14.0, DaysToLearn: 14,
	})
	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", testExamDate, 1)}
	for day := 3; day <= 11; day++ {
		start := time.Date(2026, time.March, day, 12, 0, 0, 0, time.UTC)
		end := start.Add(time.Hour)
		events = append(events, models.Event{
			ID: start.Format("lunch-2006-01-02"), UserID: "user-1", Title: "Lunch",
			Start: start, End: &end, Priority: 4, Locked: true, Color: "#888888",
		})
	}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	buffer := 30 * time.Minute
	for _, block := range plan.Mutations.ToCreate {
		for _, existing := range events {
			if existing.Start.Format("2006-01-02") != block.Start.Format("2006-01-02") {
				continue
			}
			clearBefore := !block.End.After(existing.Start.Add(-buffer))
			clearAfter := !block.Start.Before(existing.EffectiveEnd().Add(buffer))
			assert.True(t, clearBefore || clearAfter,
				"block %s-%s too close to %s", FormatInstant(block.Start), FormatInstant(*block.End), existing.ID)
		}
	}
}

func TestScheduleRespectsDailyCapAcrossBlocks(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 1.5, TotalHoursToLearn: 6.0, DaysToLearn: 14,
	})
	events := []models.Event{examEvent(t, "exam-1", "Maths Exam", testExamDate, 1)}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	perDay := make(map[string]float64)
	for _, block := range plan.Mutations.ToCreate {
		perDay[block.Start.Format("2006-01-02")] += block.DurationHours()
	}
	for day, hours := range perDay {
		assert.LessOrEqual(t, hours, 1.5+1e-9, "day %s", day)
	}
}

func TestScheduleTriviallySuccessfulWhenAlreadyCovered(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 2.0, DaysToLearn: 14,
	})
	examID := "exam-1"
	doneEnd := instant(t, "2026-02-27T20:00:00Z")
	done := models.Event{
		ID: "done-block", UserID: "user-1", Title: "Learning for Maths Exam",
		Start: instant(t, "2026-02-27T18:00:00Z"), End: &doneEnd,
		Priority: models.PriorityStudyBlock, ExamID: &examID,
	}
	events := []models.Event{examEvent(t, examID, "Maths Exam", testExamDate, 1), done}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Summary.ExamsProcessed)
	assert.Zero(t, plan.Summary.BlocksAdded)
	outcome := plan.Results["Maths Exam"]
	assert.True(t, outcome.Success)
	assert.Equal(t, "Successfully scheduled all 0.0 hours.", outcome.Message)
}

func TestSchedulePastExamsAreIgnored(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14,
	})
	events := []models.Event{examEvent(t, "exam-old", "Old Exam", "2026-02-20T09:00:00Z", 1)}

	plan, err := p.Schedule(events, settings, instant(t, testNow))
	require.NoError(t, err)
	assert.Zero(t, plan.Summary.ExamsProcessed)
	assert.Empty(t, plan.Mutations.ToCreate)
}

func TestScheduleFailsFastWithoutPrioritySettings(t *testing.T) {
	p := testPlanner(t)
	_, err := p.Schedule(nil, utcSettings(), instant(t, testNow))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoConfiguration.Code, appErrors.FromError(err).Code)

	_, err = p.Schedule(nil, nil, instant(t, testNow))
	require.Error(t, err)
}

func TestScheduleRejectsMalformedPreferredTime(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14,
	})
	settings.PreferredLearningTime = "late evening"

	_, err := p.Schedule(nil, settings, instant(t, testNow))
	require.Error(t, err)
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestScheduleRejectsUnknownTimezone(t *testing.T) {
	p := testPlanner(t)
	settings := utcSettings(models.PrioritySetting{
		PriorityLevel: 1, MaxHoursPerDay: 2.0, TotalHoursToLearn: 4.0, DaysToLearn: 14,
	})
	settings.Timezone = "Mars/Olympus"

	_, err := p.Schedule(nil, settings, instant(t, testNow))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
