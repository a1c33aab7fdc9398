package models

import "time"

// PriorityStudyBlock marks an algorithm-generated study block. Values in
// 1..max configured priority mark exams; anything above is an ordinary busy
// event that blocks time without being a scheduling target.
const PriorityStudyBlock = 0

// RecurrenceNone is stored on non-recurring events and generated blocks.
const RecurrenceNone = "None"

// Event represents a calendar entry: a busy event, an exam, or a study block.
type Event struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Title        string     `db:"title" json:"title"`
	Start        time.Time  `db:"start_at" json:"start"`
	End          *time.Time `db:"end_at" json:"end,omitempty"`
	Color        string     `db:"color" json:"color"`
	Priority     int        `db:"priority" json:"priority"`
	Recurrence   string     `db:"recurrence" json:"recurrence"`
	RecurrenceID string     `db:"recurrence_id" json:"recurrence_id"`
	AllDay       bool       `db:"all_day" json:"all_day"`
	Locked       bool       `db:"locked" json:"locked"`
	ExamID       *string    `db:"exam_id" json:"exam_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveEnd returns the end instant, treating open-ended events as
// instantaneous.
func (e *Event) EffectiveEnd() time.Time {
	if e.End == nil {
		return e.Start
	}
	return *e.End
}

// DurationHours returns the event length in hours. Open-ended events have
// zero duration.
func (e *Event) DurationHours() float64 {
	return e.EffectiveEnd().Sub(e.Start).Hours()
}

// IsStudyBlock reports whether the event was generated by the scheduler.
func (e *Event) IsStudyBlock() bool {
	return e.Priority == PriorityStudyBlock && e.ExamID != nil
}

// IsExam reports whether the event is a scheduling target under the given
// maximum configured priority level.
func (e *Event) IsExam(maxPriority int) bool {
	return e.Priority > 0 && e.Priority <= maxPriority
}

// EventFilter narrows down event listings.
type EventFilter struct {
	UserID       string
	From         *time.Time
	To           *time.Time
	RecurrenceID string
}
