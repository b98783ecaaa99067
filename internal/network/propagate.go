package network

import (
	"sort"
	"time"
)

// Propagation defaults.
const (
	DefaultPropagationThreshold = 0.1
	DefaultMaxRounds            = 3
	DefaultContextStrength      = 0.5
)

// Propagator runs bounded-round activation spreading over a network.
// Propagation is deterministic given identical inputs and network state:
// every round reads from an immutable snapshot of activations and
// iterates ideoms in sorted order.
type Propagator struct {
	net *Network

	// Threshold is the minimum snapshot activation for an ideom to fire,
	// and the minimum delta for a signal to be delivered.
	Threshold float64
	// MaxRounds bounds propagation, guaranteeing termination.
	MaxRounds int
}

// NewPropagator creates a propagator with default tuning.
func NewPropagator(net *Network) *Propagator {
	return &Propagator{
		net:       net,
		Threshold: DefaultPropagationThreshold,
		MaxRounds: DefaultMaxRounds,
	}
}

// Propagate activates the source ideoms at the given strength and spreads
// activation for up to MaxRounds rounds. Unknown source IDs are skipped.
// A non-zero deadline is checked between rounds only: when it passes, the
// current round still completes and the returned pattern is marked
// truncated. Every round ends with one decay step across the network.
func (p *Propagator) Propagate(sources []string, strength float64, deadline time.Time) *ActivationPattern {
	pattern := NewPattern()

	for _, id := range sources {
		if err := p.net.Activate(id, strength); err != nil {
			continue
		}
		pattern.Add(id, p.net.ActivationOf(id))
	}

	for round := 0; round < p.MaxRounds; round++ {
		snap := p.net.snapshotActivations()

		delivered := false
		for _, id := range sortedKeys(snap) {
			act := snap[id]
			if act <= p.Threshold {
				continue
			}
			neighbors, err := p.net.Neighbors(id)
			if err != nil {
				continue
			}
			for _, nb := range neighbors {
				delta := act * nb.Weight
				if delta <= p.Threshold {
					continue
				}
				if err := p.net.Activate(nb.ID, delta); err != nil {
					continue
				}
				pattern.Add(nb.ID, p.net.ActivationOf(nb.ID))
				delivered = true
			}
		}

		if !delivered {
			break
		}

		p.net.DecayAll()

		if !deadline.IsZero() && time.Now().After(deadline) {
			pattern.Truncated = true
			break
		}
	}

	return pattern
}

// PropagateWithContext activates context ideoms at contextStrength before
// propagating from the sources at full strength. Overlapping ideoms
// accumulate additively (clamped at 1.0) because both activations land on
// the same node.
func (p *Propagator) PropagateWithContext(sources, contextIDs []string, strength, contextStrength float64, deadline time.Time) *ActivationPattern {
	contextPattern := NewPattern()
	for _, id := range contextIDs {
		if err := p.net.Activate(id, contextStrength); err != nil {
			continue
		}
		contextPattern.Add(id, p.net.ActivationOf(id))
	}

	sourcePattern := p.Propagate(sources, strength, deadline)
	return sourcePattern.Merge(contextPattern)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
