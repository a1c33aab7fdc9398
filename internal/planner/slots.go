package planner

import (
	"sort"
	"time"

	"github.com/kantikoala/planner-api/internal/models"
)

// Slot is a contiguous open time window, bounded by UTC instants.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration { return s.End.Sub(s.Start) }

// Hours returns the slot length in hours.
func (s Slot) Hours() float64 { return s.Duration().Hours() }

// FreeSlots computes the ordered open windows on the calendar day of `day`
// (interpreted in loc) between the configured day bounds, keeping the buffer
// margin around every existing event. A day holding an all-day event has no
// free slots at all.
func (p *Planner) FreeSlots(events []models.Event, day time.Time, loc *time.Location) []Slot {
	var today []models.Event
	for i := range events {
		if sameLocalDay(events[i].Start, day, loc) {
			if events[i].AllDay {
				return nil
			}
			today = append(today, events[i])
		}
	}
	sort.SliceStable(today, func(i, j int) bool {
		return today[i].Start.Before(today[j].Start)
	})

	buffer := time.Duration(p.cfg.BufferMinutes) * time.Minute
	cursor := p.dayStart.at(day, loc)
	dayEnd := p.dayEnd.at(day, loc)

	var slots []Slot
	for i := range today {
		limit := today[i].Start.Add(-buffer)
		if cursor.Before(limit) {
			slots = append(slots, Slot{Start: cursor, End: limit})
		}
		if next := today[i].EffectiveEnd().Add(buffer); next.After(cursor) {
			cursor = next
		}
	}
	if cursor.Before(dayEnd) {
		slots = append(slots, Slot{Start: cursor, End: dayEnd})
	}
	return slots
}

// dayFullyBlocked reports whether an all-day event blocks the given day.
func dayFullyBlocked(events []models.Event, day time.Time, loc *time.Location) bool {
	for i := range events {
		if events[i].AllDay && sameLocalDay(events[i].Start, day, loc) {
			return true
		}
	}
	return false
}
