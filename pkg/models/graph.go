package models

import (
	"time"

	"github.com/google/uuid"
)

// GraphNode is one entity that survived the co-occurrence filter.
type GraphNode struct {
	EntityID   uuid.UUID  `json:"entity_id"`
	Name       string     `json:"name"`
	EntityType EntityType `json:"entity_type"`
	RiskScore  float64    `json:"risk_score"`
	Degree     int        `json:"degree"` // number of incident edges
}

// GraphEdge connects two entities that co-occur in at least the requested
// number of events. Source/Target are canonicalized so Source < Target.
type GraphEdge struct {
	Source uuid.UUID `json:"source"`
	Target uuid.UUID `json:"target"`
	Weight int       `json:"weight"` // shared-event count
}

// Community is one modularity cluster over the graph.
type Community struct {
	ID       int         `json:"id"` // rank order, 0 = highest mean risk
	Members  []uuid.UUID `json:"members"`
	MeanRisk float64     `json:"mean_risk"`
	Size     int         `json:"size"`
}

// EntityGraph is the co-occurrence graph for one time window, optionally
// restricted to events carrying requested theme categories.
type EntityGraph struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	MinCooccurrence   int             `json:"min_cooccurrence"`
	Categories        []ThemeCategory `json:"categories,omitempty"`
	Nodes             []GraphNode     `json:"nodes"`
	Edges             []GraphEdge     `json:"edges"`
	Communities       []Community     `json:"communities,omitempty"`
	HighRiskClusterID *int            `json:"high_risk_cluster_id,omitempty"`
	Modularity        *float64        `json:"modularity,omitempty"`
}

// IsEmpty reports whether the graph has no surviving nodes.
func (g *EntityGraph) IsEmpty() bool {
	return len(g.Nodes) == 0
}
