package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is one ingested news event. The events table is append-only: rows
// are inserted once and never updated or deleted.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Title      string          `json:"title"`
	Body       string          `json:"body,omitempty"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	RiskScore  float64         `json:"risk_score"` // 0-100
	Themes     []ThemeCategory `json:"themes,omitempty"`
	Mentions   []EventMention  `json:"mentions,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EventMention links an event to a resolved canonical entity, preserving
// the surface form that appeared in the event text.
// (event_id, entity_id) is unique.
type EventMention struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	EntityID   uuid.UUID `json:"entity_id"`
	Mention    string    `json:"mention"`
	Confidence float64   `json:"confidence"`
}

// RawEvent is the ingestion input before resolution and theme
// normalization have run.
type RawEvent struct {
	Title      string       `json:"title"`
	Body       string       `json:"body,omitempty"`
	Source     string       `json:"source"`
	OccurredAt time.Time    `json:"occurred_at"`
	RiskScore  float64      `json:"risk_score"`
	Themes     []string     `json:"themes,omitempty"` // free-form tags; extracted when absent
	Mentions   []RawMention `json:"mentions"`
}

// RawMention is one unresolved entity reference inside a RawEvent.
type RawMention struct {
	Text        string  `json:"text"`
	EntityType  string  `json:"entity_type"`
	CountryCode *string `json:"country_code,omitempty"`
}
