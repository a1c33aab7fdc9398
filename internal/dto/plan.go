package dto

import (
	"time"

	"github.com/kantikoala/planner-api/internal/planner"
)

// PlanReport is the persisted outcome of the latest scheduling run.
type PlanReport struct {
	RanAt   time.Time                  `json:"ran_at"`
	Summary planner.RunSummary         `json:"summary"`
	Results map[string]planner.Outcome `json:"results"`
}
