package network

import "sort"

// ActivationPattern is the ephemeral result of one reasoning cycle: the
// ideom activations recorded during propagation, the prefabs that fired
// against them, and a running total used to detect convergence. Patterns
// are value objects passed between components; the network never retains
// them.
type ActivationPattern struct {
	Activations   map[string]float64
	ActivePrefabs []string
	Total         float64

	// Truncated is set when propagation stopped at a deadline before
	// exhausting its rounds.
	Truncated bool
}

// NewPattern creates an empty activation pattern.
func NewPattern() *ActivationPattern {
	return &ActivationPattern{Activations: make(map[string]float64)}
}

// Add records an ideom activation, keeping the higher value when the
// ideom was already recorded.
func (p *ActivationPattern) Add(id string, activation float64) {
	if prev, ok := p.Activations[id]; ok {
		if activation <= prev {
			return
		}
		p.Total -= prev
	}
	p.Activations[id] = activation
	p.Total += activation
}

// ActivationOf returns the recorded activation for an ideom, 0 if absent.
func (p *ActivationPattern) ActivationOf(id string) float64 {
	return p.Activations[id]
}

// AddActivePrefab records a prefab as active, once.
func (p *ActivationPattern) AddActivePrefab(prefabID string) {
	for _, id := range p.ActivePrefabs {
		if id == prefabID {
			return
		}
	}
	p.ActivePrefabs = append(p.ActivePrefabs, prefabID)
}

// IdeomActivation pairs an ideom ID with its recorded activation.
type IdeomActivation struct {
	ID         string
	Activation float64
}

// MostActive returns up to n ideoms ordered by activation descending,
// with ties broken by ID so the ordering is deterministic.
func (p *ActivationPattern) MostActive(n int) []IdeomActivation {
	all := make([]IdeomActivation, 0, len(p.Activations))
	for id, a := range p.Activations {
		all = append(all, IdeomActivation{ID: id, Activation: a})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Activation != all[j].Activation {
			return all[i].Activation > all[j].Activation
		}
		return all[i].ID < all[j].ID
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// ActiveIdeoms returns the IDs with activation at or above threshold,
// sorted.
func (p *ActivationPattern) ActiveIdeoms(threshold float64) []string {
	var ids []string
	for id, a := range p.Activations {
		if a >= threshold {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SortedIDs returns every recorded ideom ID in sorted order. Learning
// iterates over this so weight updates are reproducible.
func (p *ActivationPattern) SortedIDs() []string {
	ids := make([]string, 0, len(p.Activations))
	for id := range p.Activations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge combines two patterns into a new one, keeping the higher
// activation per ideom and the union of active prefabs.
func (p *ActivationPattern) Merge(other *ActivationPattern) *ActivationPattern {
	result := NewPattern()
	result.Truncated = p.Truncated || other.Truncated
	for id, a := range p.Activations {
		result.Add(id, a)
	}
	for id, a := range other.Activations {
		result.Add(id, a)
	}
	for _, id := range p.ActivePrefabs {
		result.AddActivePrefab(id)
	}
	for _, id := range other.ActivePrefabs {
		result.AddActivePrefab(id)
	}
	return result
}

// Clone returns an independent copy of the pattern.
func (p *ActivationPattern) Clone() *ActivationPattern {
	c := NewPattern()
	c.Truncated = p.Truncated
	for id, a := range p.Activations {
		c.Activations[id] = a
		c.Total += a
	}
	c.ActivePrefabs = append(c.ActivePrefabs, p.ActivePrefabs...)
	return c
}
