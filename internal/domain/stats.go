package domain

// PriorityCount is one row of the per-priority breakdown.
type PriorityCount struct {
	Priority TicketPriority `json:"priority"`
	Count    int64          `json:"count"`
}

// CategoryCount is one row of the per-category breakdown.
type CategoryCount struct {
	Category TicketCategory `json:"category"`
	Count    int64          `json:"count"`
}

// TicketStats summarizes the ticket collection.
type TicketStats struct {
	TotalTickets int64           `json:"total_tickets"`
	OpenTickets  int64           `json:"open_tickets"`
	AvgPerDay    float64         `json:"avg_per_day"`
	ByPriority   []PriorityCount `json:"by_priority"`
	ByCategory   []CategoryCount `json:"by_category"`
}

// Classification is an advisory suggestion for a ticket description.
// Either field is nil when no trustworthy value could be obtained.
type Classification struct {
	SuggestedCategory *TicketCategory `json:"suggested_category"`
	SuggestedPriority *TicketPriority `json:"suggested_priority"`
}

// IsEmpty reports whether neither suggestion is present.
func (c Classification) IsEmpty() bool {
	return c.SuggestedCategory == nil && c.SuggestedPriority == nil
}
