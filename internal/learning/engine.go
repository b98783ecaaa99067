// Package learning adjusts connection weights and prefab patterns from
// experience: unsupervised co-activation statistics and explicit scored
// feedback, plus replay of a bounded experience buffer.
package learning

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
)

// Learning defaults.
const (
	DefaultLearningRate          = 0.1
	DefaultCoActivationThreshold = 0.2
	DefaultPrefabDecay           = 0.02
	DefaultEpsilon               = 0.01
	DefaultCreationThreshold     = 0.3
)

// Feedback is a scored judgement on a completed reasoning cycle.
// Corrected optionally carries the symbols of the response that should
// have been produced; CorrectedWeights overrides the uniform activation
// assigned to them.
type Feedback struct {
	Pattern *network.ActivationPattern
	// Score is in [-1, 1]; out-of-range values are clamped on use.
	Score            float64
	Corrected        []string
	CorrectedWeights map[string]float64
}

// Diagnostics reports what a learning pass did. Unknown ideom references
// are never fatal; they are skipped and counted here.
type Diagnostics struct {
	UnresolvedReferences int
	ConnectionsRemoved   int
	PrefabCreated        bool
	DuplicateOf          string
}

func (d *Diagnostics) merge(other Diagnostics) {
	d.UnresolvedReferences += other.UnresolvedReferences
	d.ConnectionsRemoved += other.ConnectionsRemoved
	d.PrefabCreated = d.PrefabCreated || other.PrefabCreated
	if d.DuplicateOf == "" {
		d.DuplicateOf = other.DuplicateOf
	}
}

// Engine mutates the network and prefab manager from experience. It
// borrows both for the duration of a call and holds no state of its own
// beyond tuning, the experience buffer, and an injected seeded random
// source used only for buffer replay sampling.
type Engine struct {
	net     *network.Network
	prefabs *prefab.Manager
	rng     *rand.Rand

	LearningRate          float64
	CoActivationThreshold float64
	PrefabDecay           float64
	Epsilon               float64

	buffer *Buffer
}

// NewEngine creates a learning engine with default tuning. The random
// source drives buffer replay sampling; tests inject a fixed seed for
// reproducibility.
func NewEngine(net *network.Network, prefabs *prefab.Manager, rng *rand.Rand) *Engine {
	return &Engine{
		net:                   net,
		prefabs:               prefabs,
		rng:                   rng,
		LearningRate:          DefaultLearningRate,
		CoActivationThreshold: DefaultCoActivationThreshold,
		PrefabDecay:           DefaultPrefabDecay,
		Epsilon:               DefaultEpsilon,
		buffer:                NewBuffer(DefaultBufferCapacity),
	}
}

// Buffer exposes the experience buffer for inspection.
func (e *Engine) Buffer() *Buffer { return e.buffer }

// LearnFromActivation strengthens the network and prefabs from one
// cycle's activation pattern.
func (e *Engine) LearnFromActivation(pattern *network.ActivationPattern) Diagnostics {
	return e.learnScaled(pattern, 1.0)
}

// learnScaled is LearnFromActivation with every delta multiplied by
// scale; positive feedback reuses it with scale = score.
func (e *Engine) learnScaled(pattern *network.ActivationPattern, scale float64) Diagnostics {
	var diag Diagnostics

	coactive := e.coactiveIDs(pattern, &diag)

	// Strengthen every unordered pair of co-active ideoms by
	// lr * a_i * a_j, creating absent edges; Connect caps at 1.0.
	for i := 0; i < len(coactive); i++ {
		for j := i + 1; j < len(coactive); j++ {
			a, b := coactive[i], coactive[j]
			delta := e.LearningRate * scale * pattern.ActivationOf(a) * pattern.ActivationOf(b)
			if delta <= 0 {
				continue
			}
			if err := e.net.Connect(a, b, delta, true); err != nil {
				diag.UnresolvedReferences++
			}
		}
	}

	e.reinforcePrefabs(pattern, scale)
	return diag
}

// reinforcePrefabs shifts the weights of every prefab the pattern
// activated: active members move toward the activation that fired them,
// inactive members decay by a small fixed step, floored at 0.
func (e *Engine) reinforcePrefabs(pattern *network.ActivationPattern, scale float64) {
	for _, prefabID := range pattern.ActivePrefabs {
		p, err := e.prefabs.Get(prefabID)
		if err != nil {
			continue
		}
		for ideomID, weight := range p.Pattern {
			act := pattern.ActivationOf(ideomID)
			if act >= e.CoActivationThreshold {
				p.Pattern[ideomID] = weight + e.LearningRate*scale*act
			} else {
				weight -= e.PrefabDecay
				if weight < 0 {
					weight = 0
				}
				p.Pattern[ideomID] = weight
			}
		}
		e.prefabs.Add(p)
	}
}

// LearnFromFeedback applies a scored feedback record. Positive scores
// reinforce the pattern proportionally; negative scores weaken the
// connections between its co-active ideoms, removing edges whose weight
// falls below Epsilon. A corrected target derives its own pattern, is
// learned from, and is offered to the prefab manager subject to the
// novelty check.
func (e *Engine) LearnFromFeedback(fb Feedback) (Diagnostics, error) {
	var diag Diagnostics
	if fb.Pattern == nil {
		return diag, fmt.Errorf("feedback has no activation pattern")
	}

	score := fb.Score
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	switch {
	case score > 0:
		diag.merge(e.learnScaled(fb.Pattern, score))
	case score < 0:
		diag.merge(e.weaken(fb.Pattern, -score))
	}

	if len(fb.Corrected) > 0 {
		diag.merge(e.learnCorrected(fb))
	}
	return diag, nil
}

// weaken reduces the weight of every edge between co-active ideoms by
// lr * magnitude. Each direction is weakened independently so directed
// edges are reached too, and a one-way edge never gains a reverse twin.
// Edges that fall below Epsilon are removed rather than kept at a
// near-zero value; ConnectionsRemoved counts directed edges.
func (e *Engine) weaken(pattern *network.ActivationPattern, magnitude float64) Diagnostics {
	var diag Diagnostics

	coactive := e.coactiveIDs(pattern, &diag)
	for _, from := range coactive {
		src, err := e.net.Get(from)
		if err != nil {
			diag.UnresolvedReferences++
			continue
		}
		for _, to := range coactive {
			if to == from {
				continue
			}
			current := src.ConnectionTo(to)
			if current == 0 {
				continue
			}
			next := current - e.LearningRate*magnitude
			if next < e.Epsilon {
				e.net.Disconnect(from, to, false)
				diag.ConnectionsRemoved++
				continue
			}
			if err := e.net.SetConnection(from, to, next, false); err != nil {
				diag.UnresolvedReferences++
			}
		}
	}
	return diag
}

// learnCorrected derives a pattern from the corrected symbols, creating
// ideoms for symbols the network has never seen, learns from it, and
// attempts to capture it as a new prefab.
func (e *Engine) learnCorrected(fb Feedback) Diagnostics {
	var diag Diagnostics

	corrected := network.NewPattern()
	for _, symbol := range fb.Corrected {
		id := e.resolveOrCreate(symbol)
		activation := 1.0
		if w, ok := fb.CorrectedWeights[symbol]; ok {
			activation = w
		}
		corrected.Add(id, activation)
	}

	diag.merge(e.learnScaled(corrected, 1.0))

	name := fmt.Sprintf("learned-%d", len(fb.Corrected))
	created, dup := e.prefabs.CreateFromPattern(name, "learned", corrected.Activations, DefaultCreationThreshold)
	if created != nil {
		diag.PrefabCreated = true
	} else {
		diag.DuplicateOf = dup
	}
	return diag
}

// resolveOrCreate maps a symbol to an ideom ID, trying the ID namespace
// first, then names, and finally creating a fresh ideom for it.
func (e *Engine) resolveOrCreate(symbol string) string {
	if e.net.Has(symbol) {
		return symbol
	}
	if ids := e.net.FindByName(symbol); len(ids) > 0 {
		return ids[0]
	}
	created := e.net.Upsert(symbol, symbol, "learned")
	log.Printf("[learning] created ideom %q from corrected feedback", symbol)
	return created.ID
}

// coactiveIDs returns the pattern's ideoms above the co-activation
// threshold that exist in the network, sorted; unknown references are
// counted, not raised.
func (e *Engine) coactiveIDs(pattern *network.ActivationPattern, diag *Diagnostics) []string {
	var ids []string
	for _, id := range pattern.SortedIDs() {
		if pattern.ActivationOf(id) < e.CoActivationThreshold {
			continue
		}
		if !e.net.Has(id) {
			diag.UnresolvedReferences++
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Optimize sweeps the network for edges below Epsilon and removes them.
// Invoked from maintenance alongside prefab merging.
func (e *Engine) Optimize() int {
	removed := 0
	for _, ideom := range e.net.All() {
		for target, w := range ideom.Connections {
			if w < e.Epsilon {
				e.net.Disconnect(ideom.ID, target, false)
				removed++
			}
		}
	}
	if removed > 0 {
		log.Printf("[learning] optimize removed %d weak connections", removed)
	}
	return removed
}
