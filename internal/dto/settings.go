package dto

// SettingsRequest updates per-user scheduling preferences.
type SettingsRequest struct {
	LearnOnSaturday       *bool  `json:"learn_on_saturday"`
	LearnOnSunday         *bool  `json:"learn_on_sunday"`
	PreferredLearningTime string `json:"preferred_learning_time" validate:"omitempty,len=5"`
	StudyBlockColor       string `json:"study_block_color" validate:"omitempty,hexcolor"`
	Timezone              string `json:"timezone"`
}

// PriorityRequest configures one exam urgency tier.
type PriorityRequest struct {
	Color             string  `json:"color" validate:"required,hexcolor"`
	DaysToLearn       int     `json:"days_to_learn" validate:"required,gt=0"`
	MaxHoursPerDay    float64 `json:"max_hours_per_day" validate:"required,gt=0"`
	TotalHoursToLearn float64 `json:"total_hours_to_learn" validate:"required,gt=0"`
}
