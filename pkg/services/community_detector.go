package services

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/venezuelawatch/entity-engine/pkg/config"
	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// CommunityDetector partitions a co-occurrence graph into communities. The
// implementation is a black box behind this interface; consumers rely only
// on member-set stability for a fixed seed, never on label identity across
// builds.
type CommunityDetector interface {
	// Detect returns the graph's communities ranked by mean member risk
	// descending, ties by size descending then lowest member id, and
	// records the partition's modularity on g. Community ids are rank
	// positions valid within this result only.
	Detect(ctx context.Context, g *models.EntityGraph) ([]models.Community, error)
}

// louvainDetector maximizes modularity by iteratively moving nodes between
// communities, coarsening, and repeating until no move improves the
// objective.
type louvainDetector struct {
	resolution float64
	seed       uint64
	logger     *zap.Logger
}

// NewCommunityDetector creates the default modularity-maximization
// detector. The seed fixes the random source so member sets reproduce
// across runs on the same graph.
func NewCommunityDetector(cfg config.CommunityConfig, logger *zap.Logger) CommunityDetector {
	resolution := cfg.Resolution
	if resolution <= 0 {
		resolution = 1.0
	}
	return &louvainDetector{
		resolution: resolution,
		seed:       cfg.Seed,
		logger:     logger.Named("community"),
	}
}

var _ CommunityDetector = (*louvainDetector)(nil)

func (d *louvainDetector) Detect(ctx context.Context, g *models.EntityGraph) ([]models.Community, error) {
	if g == nil || len(g.Nodes) == 0 || len(g.Edges) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Dense node ids assigned in sorted uuid order keep the mapping itself
	// deterministic.
	ids := make([]uuid.UUID, 0, len(g.Nodes))
	riskByID := make(map[uuid.UUID]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.EntityID)
		riskByID[n.EntityID] = n.RiskScore
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	dense := make(map[uuid.UUID]int64, len(ids))
	for i, id := range ids {
		dense[id] = int64(i)
	}

	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for _, id := range ids {
		wg.AddNode(simple.Node(dense[id]))
	}
	for _, e := range g.Edges {
		wg.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(dense[e.Source]),
			T: simple.Node(dense[e.Target]),
			W: float64(e.Weight),
		})
	}

	reduced := community.Modularize(wg, d.resolution, rand.NewPCG(d.seed, d.seed))
	groups := reduced.Communities()

	communities := make([]models.Community, 0, len(groups))
	for _, nodes := range groups {
		members := make([]uuid.UUID, 0, len(nodes))
		total := 0.0
		for _, n := range nodes {
			id := ids[n.ID()]
			members = append(members, id)
			total += riskByID[id]
		}
		sort.Slice(members, func(i, j int) bool { return members[i].String() < members[j].String() })
		communities = append(communities, models.Community{
			Members:  members,
			MeanRisk: total / float64(len(members)),
			Size:     len(members),
		})
	}

	sort.SliceStable(communities, func(i, j int) bool {
		if communities[i].MeanRisk != communities[j].MeanRisk {
			return communities[i].MeanRisk > communities[j].MeanRisk
		}
		if communities[i].Size != communities[j].Size {
			return communities[i].Size > communities[j].Size
		}
		return communities[i].Members[0].String() < communities[j].Members[0].String()
	})
	for i := range communities {
		communities[i].ID = i
	}

	q := community.Q(wg, groups, d.resolution)
	g.Modularity = &q

	d.logger.Debug("Partitioned graph",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("communities", len(communities)),
		zap.Float64("modularity", q))

	return communities, nil
}
