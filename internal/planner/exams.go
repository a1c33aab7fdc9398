package planner

import (
	"sort"
	"time"

	"github.com/kantikoala/planner-api/internal/models"
)

// selectExams returns the scheduling targets: events whose priority has a
// configured setting and whose start lies strictly in the future. Ordering is
// ascending by (priority, start) and is load-bearing: later exams see the
// blocks placed for earlier, more urgent ones.
func selectExams(events []models.Event, priorities map[int]models.PrioritySetting, now time.Time) []models.Event {
	var exams []models.Event
	for i := range events {
		if events[i].Priority <= 0 {
			continue
		}
		if _, ok := priorities[events[i].Priority]; !ok {
			continue
		}
		if !events[i].Start.After(now) {
			continue
		}
		exams = append(exams, events[i])
	}
	sort.SliceStable(exams, func(i, j int) bool {
		if exams[i].Priority != exams[j].Priority {
			return exams[i].Priority < exams[j].Priority
		}
		return exams[i].Start.Before(exams[j].Start)
	})
	return exams
}

// hoursDone credits study blocks already consumed by the passage of time,
// whether or not the user actually sat them.
func hoursDone(examID string, events []models.Event, now time.Time) float64 {
	total := 0.0
	for i := range events {
		if events[i].ExamID != nil && *events[i].ExamID == examID && events[i].Start.Before(now) {
			total += events[i].DurationHours()
		}
	}
	return total
}

// hoursLockedFuture sums upcoming user-protected blocks for the exam. Locked
// blocks survive recycling, so their hours reduce the remaining budget.
func hoursLockedFuture(examID string, events []models.Event, now time.Time) float64 {
	total := 0.0
	for i := range events {
		if events[i].ExamID != nil && *events[i].ExamID == examID &&
			!events[i].Start.Before(now) && events[i].Locked {
			total += events[i].DurationHours()
		}
	}
	return total
}

// hoursOnDayForExam sums hours already held by this exam's blocks on the
// given local day, enforcing the per-day cap across a run.
func hoursOnDayForExam(events []models.Event, examID string, day time.Time, loc *time.Location) float64 {
	total := 0.0
	for i := range events {
		if events[i].ExamID != nil && *events[i].ExamID == examID && sameLocalDay(events[i].Start, day, loc) {
			total += events[i].DurationHours()
		}
	}
	return total
}
