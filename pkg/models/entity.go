package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType classifies a canonical entity.
type EntityType string

const (
	EntityTypePerson       EntityType = "person"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeGovernment   EntityType = "government"
	EntityTypeLocation     EntityType = "location"
)

// ValidEntityTypes contains all valid entity type values.
var ValidEntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeOrganization,
	EntityTypeGovernment,
	EntityTypeLocation,
}

// IsValidEntityType checks if the given type is valid.
func IsValidEntityType(t EntityType) bool {
	for _, v := range ValidEntityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseEntityType converts a string into an EntityType. It returns false
// when the string names no known type.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(s)
	if IsValidEntityType(t) {
		return t, true
	}
	return "", false
}

// ResolutionMethod records which tier of the resolver bound an alias to
// its canonical entity.
type ResolutionMethod string

const (
	// ResolutionExact means the alias hit the registry directly.
	ResolutionExact ResolutionMethod = "exact"
	// ResolutionProbabilistic means a blocked candidate scored above the
	// match threshold.
	ResolutionProbabilistic ResolutionMethod = "probabilistic"
	// ResolutionEscalated means no candidate qualified and the mention was
	// escalated (new entity created or disambiguation consulted).
	ResolutionEscalated ResolutionMethod = "escalated"
)

// ValidResolutionMethods contains all valid resolution method values.
var ValidResolutionMethods = []ResolutionMethod{
	ResolutionExact,
	ResolutionProbabilistic,
	ResolutionEscalated,
}

// IsValidResolutionMethod checks if the given method is valid.
func IsValidResolutionMethod(m ResolutionMethod) bool {
	for _, v := range ValidResolutionMethods {
		if v == m {
			return true
		}
	}
	return false
}

// CanonicalEntity is the single durable record for a real-world actor.
// Stored in the canonical_entities table.
type CanonicalEntity struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`                   // canonical display name
	EntityType  EntityType `json:"entity_type"`
	CountryCode *string    `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	RiskScore   float64    `json:"risk_score"`             // 0-100, maintained by ingestion
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EntityAlias binds one surface form from one source to a canonical entity.
// (normalized_alias, source) is unique. Stored in the entity_aliases table.
type EntityAlias struct {
	ID               uuid.UUID        `json:"id"`
	EntityID         uuid.UUID        `json:"entity_id"`
	Alias            string           `json:"alias"`            // surface form as seen
	NormalizedAlias  string           `json:"normalized_alias"` // folded form used for lookups
	Source           string           `json:"source"`           // feed identifier
	ResolutionMethod ResolutionMethod `json:"resolution_method"`
	Confidence       float64          `json:"confidence"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Mention is a free-text reference to an entity arriving from a feed.
type Mention struct {
	Text        string     `json:"text"`
	EntityType  EntityType `json:"entity_type"`
	CountryCode *string    `json:"country_code,omitempty"`
	Source      string     `json:"source"`
}

// Resolution is the outcome of resolving a mention.
type Resolution struct {
	Entity     *CanonicalEntity `json:"entity"`
	Method     ResolutionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
	Created    bool             `json:"created"` // true when a new canonical entity was minted
}
