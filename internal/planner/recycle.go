package planner

import (
	"time"

	"github.com/kantikoala/planner-api/internal/models"
)

// recycle removes previously generated, unlocked future study blocks so every
// run starts from a clean slate. Identification is structural (priority zero,
// unlocked, exam back-reference), never by title: a renamed block must still
// recycle. Locked blocks and blocks already in the past always survive.
//
// Recycling is global, ahead of any allocation: exams processed later in
// priority order must never compete against stale blocks from a previous run,
// while still seeing blocks freshly placed for earlier exams in this run.
func recycle(events []models.Event, now time.Time) (surviving []models.Event, removed []string) {
	surviving = make([]models.Event, 0, len(events))
	for i := range events {
		ev := events[i]
		if ev.IsStudyBlock() && !ev.Locked && !ev.Start.Before(now) {
			removed = append(removed, ev.ID)
			continue
		}
		surviving = append(surviving, ev)
	}
	return surviving, removed
}
