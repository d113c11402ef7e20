package domain

import "time"

// Session identifies the authenticated caller. Operations receive it as an
// explicit parameter; there is no ambient current-user state.
type Session struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
}

// ActivityEntry is a fire-and-forget audit record. Recording one never blocks
// or fails the operation that emits it.
type ActivityEntry struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Module     string            `json:"module"`
	Action     string            `json:"action"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
