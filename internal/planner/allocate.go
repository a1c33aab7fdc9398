package planner

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kantikoala/planner-api/internal/models"
)

// allocation bundles the per-exam inputs of the slot allocation loop.
type allocation struct {
	exam       models.Event
	prio       models.PrioritySetting
	remaining  float64
	settings   *models.Settings
	preferred  clockTime
	blockColor string
	loc        *time.Location
	now        time.Time
}

// allocate walks backward day by day from the exam date, placing study blocks
// until the remaining hours are satisfied or the lookback bound is exhausted.
// Each eligible day gets a preferred-time attempt first; when that fails, the
// largest free slot of the day receives exactly one fallback block.
func (p *Planner) allocate(a allocation, ws *workingSet) (float64, []models.Event) {
	scheduled := 0.0
	var created []models.Event

	examDay := localMidnight(a.exam.Start, a.loc)
	today := localMidnight(a.now, a.loc)

	for offset := 1; offset <= p.cfg.MaxLookbackDays && scheduled < a.remaining; offset++ {
		day := examDay.AddDate(0, 0, -offset)
		if day.Before(today) {
			break
		}
		if dayFullyBlocked(ws.events, day, a.loc) {
			continue
		}
		if wd := day.Weekday(); (wd == time.Saturday && !a.settings.LearnOnSaturday) ||
			(wd == time.Sunday && !a.settings.LearnOnSunday) {
			continue
		}

		alreadyToday := hoursOnDayForExam(ws.events, a.exam.ID, day, a.loc)
		todayMax := math.Min(a.prio.MaxHoursPerDay-alreadyToday, a.remaining-scheduled)
		if todayMax <= p.cfg.MinSessionHours {
			continue
		}

		if block, ok := p.tryPreferredSlot(a, ws, day, todayMax); ok {
			ws.add(block)
			created = append(created, block)
			scheduled += block.DurationHours()
			continue
		}

		if block, ok := p.tryLargestFreeSlot(a, ws, day, todayMax, a.remaining-scheduled); ok {
			ws.add(block)
			created = append(created, block)
			scheduled += block.DurationHours()
		}
	}

	return scheduled, created
}

// tryPreferredSlot anchors a block at the user's preferred learning time,
// clipped to the local day end, and commits it when it clears every event on
// the day by the buffer margin.
func (p *Planner) tryPreferredSlot(a allocation, ws *workingSet, day time.Time, todayMax float64) (models.Event, bool) {
	start := a.preferred.at(day, a.loc)
	end := start.Add(hoursToDuration(todayMax))
	if dayEnd := p.dayEnd.at(day, a.loc); end.After(dayEnd) {
		end = dayEnd
	}

	if end.Sub(start).Hours() < p.cfg.MinSessionHours {
		return models.Event{}, false
	}
	if !p.intervalClear(ws.events, start, end, day, a.loc) {
		return models.Event{}, false
	}
	return newStudyBlock(a, start, end), true
}

// tryLargestFreeSlot picks the biggest free window of the day that still fits
// a minimum session. At most one fallback block is committed per day even if
// several windows would fit more.
func (p *Planner) tryLargestFreeSlot(a allocation, ws *workingSet, day time.Time, todayMax, hoursLeft float64) (models.Event, bool) {
	slots := p.FreeSlots(ws.events, day, a.loc)
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Duration() > slots[j].Duration()
	})

	for _, slot := range slots {
		if slot.Hours() < p.cfg.MinSessionHours {
			continue
		}
		allocatable := math.Min(slot.Hours(), math.Min(hoursLeft, todayMax))
		if allocatable < p.cfg.MinSessionHours {
			continue
		}
		return newStudyBlock(a, slot.Start, slot.Start.Add(hoursToDuration(allocatable))), true
	}
	return models.Event{}, false
}

// intervalClear reports whether [start, end) keeps the buffer margin to every
// event on the given day in the working set.
func (p *Planner) intervalClear(events []models.Event, start, end, day time.Time, loc *time.Location) bool {
	buffer := time.Duration(p.cfg.BufferMinutes) * time.Minute
	for i := range events {
		if !sameLocalDay(events[i].Start, day, loc) {
			continue
		}
		evStart := events[i].Start
		evEnd := events[i].EffectiveEnd()
		if end.After(evStart.Add(-buffer)) && evEnd.Add(buffer).After(start) {
			return false
		}
	}
	return true
}

func newStudyBlock(a allocation, start, end time.Time) models.Event {
	examID := a.exam.ID
	endUTC := end.UTC()
	return models.Event{
		ID:           uuid.NewString(),
		UserID:       a.exam.UserID,
		Title:        "Learning for " + a.exam.Title,
		Start:        start.UTC(),
		End:          &endUTC,
		Color:        a.blockColor,
		Priority:     models.PriorityStudyBlock,
		Recurrence:   models.RecurrenceNone,
		RecurrenceID: "0",
		AllDay:       false,
		Locked:       false,
		ExamID:       &examID,
	}
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
