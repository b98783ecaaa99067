package prefab

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vthunder/ideonet/internal/network"
)

// DefaultDuplicateThreshold is the pattern similarity above which a new
// prefab is considered a duplicate of an existing one and skipped.
const DefaultDuplicateThreshold = 0.7

// ErrNotFound is returned when a prefab ID is unknown.
var ErrNotFound = fmt.Errorf("prefab not found")

// Manager owns all prefab definitions and evaluates them against
// activation patterns.
type Manager struct {
	mu      sync.RWMutex
	prefabs map[string]*Prefab

	// DuplicateThreshold gates CreateFromPattern's novelty check.
	DuplicateThreshold float64
}

// NewManager creates an empty prefab manager.
func NewManager() *Manager {
	return &Manager{
		prefabs:            make(map[string]*Prefab),
		DuplicateThreshold: DefaultDuplicateThreshold,
	}
}

// Add inserts or replaces a prefab definition.
func (m *Manager) Add(p *Prefab) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefabs[p.ID] = p.clone()
}

// Get returns a copy of a prefab by ID.
func (m *Manager) Get(id string) (*Prefab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prefabs[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return p.clone(), nil
}

// Remove deletes a prefab. Unknown IDs are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prefabs, id)
}

// Len returns the number of prefabs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.prefabs)
}

// All returns copies of every prefab, sorted by ID.
func (m *Manager) All() []*Prefab {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Prefab, 0, len(m.prefabs))
	for _, p := range m.prefabs {
		result = append(result, p.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ByCategory returns copies of prefabs with the given category, sorted
// by ID.
func (m *Manager) ByCategory(category string) []*Prefab {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Prefab
	for _, p := range m.prefabs {
		if p.Category == category {
			result = append(result, p.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Evaluate scores every prefab against the pattern, marks the active
// ones into the pattern, bumps their counters, and returns copies of the
// active subset sorted by activation descending (ties by ID).
func (m *Manager) Evaluate(pattern *network.ActivationPattern) []*Prefab {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var active []*Prefab
	for _, p := range m.prefabs {
		p.Activation = p.Score(pattern)
		if p.Activation >= p.Threshold {
			p.LastActivated = now
			p.ActivationCount++
			pattern.AddActivePrefab(p.ID)
			active = append(active, p.clone())
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].Activation != active[j].Activation {
			return active[i].Activation > active[j].Activation
		}
		return active[i].ID < active[j].ID
	})
	return active
}

// CreateFromPattern builds a new prefab from a weighted ideom map,
// subject to a novelty check: when the pattern's similarity to an
// existing prefab exceeds DuplicateThreshold the creation is skipped and
// the duplicate is reported to the caller instead of raising an error.
// Returns the created prefab (nil when skipped) and the ID of the
// duplicate that blocked creation (empty when created).
func (m *Manager) CreateFromPattern(name, category string, weights map[string]float64, threshold float64) (*Prefab, string) {
	candidate := New(uuid.NewString(), name, category, weights)
	if threshold > 0 {
		candidate.Threshold = threshold
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.prefabs {
		if sim := similarity(candidate, existing); sim > m.DuplicateThreshold {
			log.Printf("[prefab] skipped %q: similarity %.2f to existing %q", name, sim, existing.ID)
			return nil, existing.ID
		}
	}

	m.prefabs[candidate.ID] = candidate
	log.Printf("[prefab] created %q (%s) with %d ideom weights", name, candidate.ID, len(candidate.Pattern))
	return candidate.clone(), ""
}

// MergeSimilar collapses prefabs whose ideom key sets have Jaccard
// similarity at or above simThreshold. Merged prefabs get the union of
// keys with overlapping weights averaged; the survivor keeps the higher
// of the two thresholds. Returns the number of merges performed.
func (m *Manager) MergeSimilar(simThreshold float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.prefabs))
	for id := range m.prefabs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	merged := make(map[string]bool)
	count := 0

	for i := 0; i < len(ids); i++ {
		if merged[ids[i]] {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			if merged[ids[j]] {
				continue
			}
			a, b := m.prefabs[ids[i]], m.prefabs[ids[j]]
			if keySimilarity(a, b) < simThreshold {
				continue
			}

			combined := mergePrefabs(a, b)
			m.prefabs[combined.ID] = combined
			merged[a.ID] = true
			merged[b.ID] = true
			count++
			log.Printf("[prefab] merged %q + %q -> %q", a.ID, b.ID, combined.ID)
			break
		}
	}

	for id := range merged {
		delete(m.prefabs, id)
	}
	return count
}

func mergePrefabs(a, b *Prefab) *Prefab {
	weights := make(map[string]float64, len(a.Pattern)+len(b.Pattern))
	for k, w := range a.Pattern {
		weights[k] = w
	}
	for k, w := range b.Pattern {
		if existing, ok := weights[k]; ok {
			weights[k] = (existing + w) / 2
		} else {
			weights[k] = w
		}
	}

	threshold := a.Threshold
	if b.Threshold > threshold {
		threshold = b.Threshold
	}
	category := a.Category
	if category == "" {
		category = b.Category
	}

	combined := New(uuid.NewString(), a.Name+"+"+b.Name, category, weights)
	combined.Threshold = threshold
	return combined
}
