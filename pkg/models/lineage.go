package models

import (
	"time"

	"github.com/google/uuid"
)

// LineageEvent is one event in a lineage, annotated with the gap to its
// chronological predecessor. The first event carries a zero gap; gaps are
// never negative.
type LineageEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	Title         string          `json:"title"`
	Source        string          `json:"source"`
	OccurredAt    time.Time       `json:"occurred_at"`
	RiskScore     float64         `json:"risk_score"`
	Themes        []ThemeCategory `json:"themes,omitempty"`
	DaysSincePrev int             `json:"days_since_prev"`
}

// Lineage is the chronological event chain connecting two entities inside
// a time window.
type Lineage struct {
	EntityA            uuid.UUID       `json:"entity_a"`
	EntityB            uuid.UUID       `json:"entity_b"`
	From               time.Time       `json:"from"`
	To                 time.Time       `json:"to"`
	Events             []LineageEvent  `json:"events"`
	EscalationDetected bool            `json:"escalation_detected"`
	DominantThemes     []ThemeCategory `json:"dominant_themes"`
	Narrative          *string         `json:"narrative,omitempty"` // collaborator prose, opaque
}
