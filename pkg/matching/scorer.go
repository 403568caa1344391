package matching

import (
	"math"

	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// Subject is the mention-side view the scorer compares candidates against.
type Subject struct {
	Normalized  string
	EntityType  models.EntityType
	CountryCode *string
}

// FieldWeights holds the conditional agreement probabilities for one field:
// M is P(fields agree | same entity), U is P(fields agree | different
// entities). Their log-odds become the field's contribution to the match
// score.
type FieldWeights struct {
	M float64
	U float64
}

// Agreement returns the log-odds contribution when the field agrees.
func (w FieldWeights) Agreement() float64 {
	return math.Log(w.M / w.U)
}

// Disagreement returns the log-odds contribution when the field disagrees.
func (w FieldWeights) Disagreement() float64 {
	return math.Log((1 - w.M) / (1 - w.U))
}

// Scorer combines per-field comparators into one match score on [0, 1].
// Name similarity contributes proportionally between agreement and
// disagreement weight; type and country are exact comparators; a missing
// country on either side contributes nothing.
type Scorer struct {
	name    FieldWeights
	kind    FieldWeights
	country FieldWeights

	minTotal float64
	maxTotal float64
}

// NewScorer returns a scorer with weights tuned for news-feed entity
// mentions: names carry most of the evidence, an entity-type conflict is
// strongly disqualifying, and a shared country is weak support since most
// catalogued entities cluster in a handful of countries.
func NewScorer() *Scorer {
	s := &Scorer{
		name:    FieldWeights{M: 0.90, U: 0.01},
		kind:    FieldWeights{M: 0.95, U: 0.25},
		country: FieldWeights{M: 0.90, U: 0.50},
	}
	s.maxTotal = s.name.Agreement() + s.kind.Agreement() + s.country.Agreement()
	s.minTotal = s.name.Disagreement() + s.kind.Disagreement() + s.country.Disagreement()
	return s
}

// Score rates one candidate against the mention. The summed field log-odds
// are rescaled linearly onto [0, 1] so thresholds stay in score space.
func (s *Scorer) Score(subject Subject, candidate IndexedEntity) float64 {
	nameSim := s.bestNameSimilarity(subject.Normalized, candidate)
	total := nameSim*s.name.Agreement() + (1-nameSim)*s.name.Disagreement()

	if subject.EntityType != "" {
		if subject.EntityType == candidate.EntityType {
			total += s.kind.Agreement()
		} else {
			total += s.kind.Disagreement()
		}
	}

	if subject.CountryCode != nil && candidate.CountryCode != nil {
		if *subject.CountryCode == *candidate.CountryCode {
			total += s.country.Agreement()
		} else {
			total += s.country.Disagreement()
		}
	}

	score := (total - s.minTotal) / (s.maxTotal - s.minTotal)
	return math.Max(0, math.Min(1, score))
}

// bestNameSimilarity compares the mention against every known surface form
// of the candidate and keeps the best rung.
func (s *Scorer) bestNameSimilarity(normalized string, candidate IndexedEntity) float64 {
	best := NameSimilarity(normalized, candidate.Name)
	for _, form := range candidate.Forms {
		if form == candidate.Name {
			continue
		}
		if sim := NameSimilarity(normalized, form); sim > best {
			best = sim
		}
		if best == 1.0 {
			break
		}
	}
	return best
}
