package dto

// EventRequest is the payload for creating or updating a calendar event.
// Start and End are instants in any of the accepted formats; End may be
// omitted for open-ended entries.
type EventRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Start      string `json:"start" validate:"required"`
	End        string `json:"end"`
	Color      string `json:"color" validate:"omitempty,hexcolor"`
	Priority   int    `json:"priority" validate:"gte=0"`
	Recurrence string `json:"recurrence" validate:"omitempty,oneof=None Daily Weekly Monthly"`
	AllDay     bool   `json:"all_day"`
	Locked     bool   `json:"locked"`
}

// EventListRequest narrows the events listing.
type EventListRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// ImportResult summarises an iCalendar import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
