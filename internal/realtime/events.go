package realtime

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEvent is the wire shape broadcast for every audit activity, so
// dashboards and feeds can follow journey mutations without polling.
type ActivityEvent struct {
	JourneyID    uuid.UUID      `json:"journey_id"`
	PhaseNumber  *int           `json:"phase_number,omitempty"`
	ActivityType string         `json:"activity_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
