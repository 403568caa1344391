package matching

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// blockPrefixLen is how many leading bytes of the first token form the
// prefix blocking key.
const blockPrefixLen = 4

// IndexedEntity is the in-memory projection of a canonical entity the
// matcher scores against. Forms holds every normalized surface form known
// for the entity (canonical name plus bound aliases).
type IndexedEntity struct {
	ID          uuid.UUID
	Name        string // normalized canonical name
	EntityType  models.EntityType
	CountryCode *string
	RiskScore   float64
	Forms       []string
}

// BlockingKeys derives the bucket keys for one normalized form: its first
// token, the token's short prefix, and the form's acronym. Candidate
// generation only compares entities sharing at least one key with the
// mention, which keeps per-mention comparisons far below catalog size.
func BlockingKeys(normalized string) []string {
	tokens := Tokens(normalized)
	if len(tokens) == 0 {
		return nil
	}

	keys := make([]string, 0, 3)
	seen := make(map[string]bool, 3)

	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	first := tokens[0]
	add(first)
	if len(first) > blockPrefixLen {
		add(first[:blockPrefixLen])
	}
	add(Acronym(normalized))

	return keys
}

// Index is the blocked candidate index used during probabilistic matching.
// It is safe for concurrent use; readers get copy-on-write snapshots.
type Index struct {
	mu       sync.RWMutex
	byKey    map[string]map[uuid.UUID]bool
	entities map[uuid.UUID]IndexedEntity

	comparisons atomic.Int64
}

// NewIndex returns an empty candidate index.
func NewIndex() *Index {
	return &Index{
		byKey:    make(map[string]map[uuid.UUID]bool),
		entities: make(map[uuid.UUID]IndexedEntity),
	}
}

// Upsert adds an entity to the index or merges new forms into an existing
// entry. Every form contributes its blocking keys.
func (idx *Index) Upsert(e IndexedEntity) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	existing, ok := idx.entities[e.ID]
	if ok {
		merged := make([]string, len(existing.Forms))
		copy(merged, existing.Forms)
		for _, form := range e.Forms {
			if !containsForm(merged, form) {
				merged = append(merged, form)
			}
		}
		existing.Forms = merged
		existing.RiskScore = e.RiskScore
		e = existing
	} else {
		forms := make([]string, len(e.Forms))
		copy(forms, e.Forms)
		e.Forms = forms
	}

	idx.entities[e.ID] = e
	for _, form := range e.Forms {
		for _, key := range BlockingKeys(form) {
			bucket, ok := idx.byKey[key]
			if !ok {
				bucket = make(map[uuid.UUID]bool)
				idx.byKey[key] = bucket
			}
			bucket[e.ID] = true
		}
	}
}

// AddForm registers one more surface form for an already-indexed entity.
// Unknown ids are ignored.
func (idx *Index) AddForm(id uuid.UUID, form string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.entities[id]
	if !ok || form == "" || containsForm(e.Forms, form) {
		return
	}

	forms := make([]string, len(e.Forms), len(e.Forms)+1)
	copy(forms, e.Forms)
	e.Forms = append(forms, form)
	idx.entities[id] = e

	for _, key := range BlockingKeys(form) {
		bucket, ok := idx.byKey[key]
		if !ok {
			bucket = make(map[uuid.UUID]bool)
			idx.byKey[key] = bucket
		}
		bucket[id] = true
	}
}

// Candidates returns the entities sharing at least one blocking key with
// the mention form, ordered by id for deterministic scoring. Each returned
// candidate counts as one comparison.
func (idx *Index) Candidates(normalized string) []IndexedEntity {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make(map[uuid.UUID]bool)
	for _, key := range BlockingKeys(normalized) {
		for id := range idx.byKey[key] {
			ids[id] = true
		}
	}

	out := make([]IndexedEntity, 0, len(ids))
	for id := range ids {
		out = append(out, idx.entities[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})

	idx.comparisons.Add(int64(len(out)))
	return out
}

// Len returns the number of indexed entities.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entities)
}

// Comparisons returns the cumulative number of candidates handed out for
// scoring. Exposed so blocking effectiveness is observable.
func (idx *Index) Comparisons() int64 {
	return idx.comparisons.Load()
}

// ResetComparisons zeroes the comparison counter.
func (idx *Index) ResetComparisons() {
	idx.comparisons.Store(0)
}

func containsForm(forms []string, form string) bool {
	for _, f := range forms {
		if f == form {
			return true
		}
	}
	return false
}
