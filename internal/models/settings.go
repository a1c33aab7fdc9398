package models

import "time"

// Default scheduling preferences applied when a user has no stored settings.
const (
	DefaultPreferredLearningTime = "18:00"
	DefaultStudyBlockColor       = "#0000FF"
	DefaultTimezone              = "Europe/Zurich"
)

// Settings stores per-user scheduling preferences. Read-only to the planner.
type Settings struct {
	ID                    string    `db:"id" json:"id"`
	UserID                string    `db:"user_id" json:"user_id"`
	LearnOnSaturday       bool      `db:"learn_on_saturday" json:"learn_on_saturday"`
	LearnOnSunday         bool      `db:"learn_on_sunday" json:"learn_on_sunday"`
	PreferredLearningTime string    `db:"preferred_learning_time" json:"preferred_learning_time"`
	StudyBlockColor       string    `db:"study_block_color" json:"study_block_color"`
	Timezone              string    `db:"timezone" json:"timezone"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`

	Priorities []PrioritySetting `db:"-" json:"priority_settings"`
}

// PrioritySetting configures one exam urgency tier. Level 1 is the most
// urgent. There is no row for "not an exam".
type PrioritySetting struct {
	ID                string  `db:"id" json:"id"`
	SettingsID        string  `db:"settings_id" json:"settings_id"`
	PriorityLevel     int     `db:"priority_level" json:"priority_level"`
	Color             string  `db:"color" json:"color"`
	DaysToLearn       int     `db:"days_to_learn" json:"days_to_learn"`
	MaxHoursPerDay    float64 `db:"max_hours_per_day" json:"max_hours_per_day"`
	TotalHoursToLearn float64 `db:"total_hours_to_learn" json:"total_hours_to_learn"`
}

// PriorityMap indexes priority settings by level.
func (s *Settings) PriorityMap() map[int]PrioritySetting {
	m := make(map[int]PrioritySetting, len(s.Priorities))
	for _, p := range s.Priorities {
		m[p.PriorityLevel] = p
	}
	return m
}

// MaxPriorityLevel returns the highest configured exam priority, or zero when
// no priority settings exist.
func (s *Settings) MaxPriorityLevel() int {
	max := 0
	for _, p := range s.Priorities {
		if p.PriorityLevel > max {
			max = p.PriorityLevel
		}
	}
	return max
}

// DefaultPriorities returns the stock three-tier configuration assigned to
// new accounts.
func DefaultPriorities() []PrioritySetting {
	return []PrioritySetting{
		{PriorityLevel: 1, Color: "#770000", DaysToLearn: 14, MaxHoursPerDay: 2.0, TotalHoursToLearn: 14.0},
		{PriorityLevel: 2, Color: "#ca8300", DaysToLearn: 7, MaxHoursPerDay: 1.5, TotalHoursToLearn: 7.0},
		{PriorityLevel: 3, Color: "#097200", DaysToLearn: 4, MaxHoursPerDay: 1.0, TotalHoursToLearn: 4.0},
	}
}
