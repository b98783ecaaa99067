// Package prefab recognizes higher-level patterns over ideom activations.
// A prefab is a weighted requirement map over ideoms; it fires when the
// weighted coverage of a cycle's activation pattern reaches its threshold.
package prefab

import (
	"time"

	"github.com/vthunder/ideonet/internal/network"
)

// DefaultThreshold is the activation score at which a prefab fires.
const DefaultThreshold = 0.5

// Prefab is a named pattern of weighted ideom requirements. Pattern
// weights are finite and positive but have no upper bound; Activation is
// transient state recomputed every cycle.
type Prefab struct {
	ID       string
	Name     string
	Category string

	// Pattern maps ideom ID to required weight.
	Pattern   map[string]float64
	Threshold float64

	Activation      float64
	LastActivated   time.Time
	ActivationCount int
}

// New creates a prefab with the default threshold. The pattern map is
// copied; non-positive weights are dropped.
func New(id, name, category string, pattern map[string]float64) *Prefab {
	p := &Prefab{
		ID:        id,
		Name:      name,
		Category:  category,
		Pattern:   make(map[string]float64, len(pattern)),
		Threshold: DefaultThreshold,
	}
	for ideomID, w := range pattern {
		if w > 0 {
			p.Pattern[ideomID] = w
		}
	}
	return p
}

// Score computes how well an activation pattern matches the prefab:
// the activation-weighted sum over the prefab's required ideoms divided
// by the total required weight. Ideoms absent from the activation
// pattern contribute zero; a prefab with no weights scores zero.
func (p *Prefab) Score(pattern *network.ActivationPattern) float64 {
	var weightedSum, totalWeight float64
	for ideomID, weight := range p.Pattern {
		weightedSum += pattern.ActivationOf(ideomID) * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// IsActive reports whether the last computed activation reached the
// threshold.
func (p *Prefab) IsActive() bool {
	return p.Activation >= p.Threshold
}

// clone returns a deep copy safe to hand out without the manager lock.
func (p *Prefab) clone() *Prefab {
	c := *p
	c.Pattern = make(map[string]float64, len(p.Pattern))
	for k, v := range p.Pattern {
		c.Pattern[k] = v
	}
	return &c
}

// similarity measures pattern overlap between two prefabs:
// sum of min weights over shared keys divided by the size of the key
// union. Used by the novelty check before creation.
func similarity(a, b *Prefab) float64 {
	union := make(map[string]struct{}, len(a.Pattern)+len(b.Pattern))
	var common float64
	for k, wa := range a.Pattern {
		union[k] = struct{}{}
		if wb, ok := b.Pattern[k]; ok {
			if wa < wb {
				common += wa
			} else {
				common += wb
			}
		}
	}
	for k := range b.Pattern {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return common / float64(len(union))
}

// keySimilarity is the Jaccard similarity of the two prefabs' ideom key
// sets, ignoring weights. Used when merging near-duplicate prefabs.
func keySimilarity(a, b *Prefab) float64 {
	if len(a.Pattern) == 0 && len(b.Pattern) == 0 {
		return 0
	}
	intersection := 0
	for k := range a.Pattern {
		if _, ok := b.Pattern[k]; ok {
			intersection++
		}
	}
	union := len(a.Pattern) + len(b.Pattern) - intersection
	return float64(intersection) / float64(union)
}
