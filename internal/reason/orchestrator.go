// Package reason runs reasoning cycles over the ideom network: activate
// input symbols, propagate, evaluate prefabs, classify the dominant
// intent, and learn from the cycle. Cycles are serialized; the network
// has a single writer.
package reason

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/vthunder/ideonet/internal/learning"
	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
)

// State names the phase a cycle is in.
type State string

const (
	StateIdle        State = "idle"
	StateActivating  State = "activating"
	StatePropagating State = "propagating"
	StateEvaluating  State = "evaluating"
	StateLearning    State = "learning"
)

const (
	// DefaultKnowledgeTimeout bounds each knowledge collaborator call.
	DefaultKnowledgeTimeout = 250 * time.Millisecond
	// DefaultTopIdeoms is the ideom count reported in a result.
	DefaultTopIdeoms = 5
	// DefaultTopPrefabs is the prefab count reported in a result.
	DefaultTopPrefabs = 3
	// DefaultReplayBatch is how many buffered records an inline replay
	// takes.
	DefaultReplayBatch = 10
	// DefaultReplayProbability gates inline replay per cycle.
	DefaultReplayProbability = 0.25
)

// ErrNoSymbols is returned when a cycle is requested with no input.
var ErrNoSymbols = errors.New("no input symbols")

// Budget decides whether background maintenance may run inline. A nil
// budget always allows it.
type Budget interface {
	Allow() bool
}

// Orchestrator drives reasoning cycles. One cycle mutates the network at
// a time; queries take the same lock.
type Orchestrator struct {
	mu        sync.Mutex
	state     State
	net       *network.Network
	prefabs   *prefab.Manager
	prop      *network.Propagator
	engine    *learning.Engine
	knowledge KnowledgeInterface
	budget    Budget
	rng       *rand.Rand

	KnowledgeTimeout  time.Duration
	TopIdeoms         int
	TopPrefabs        int
	ReplayBatch       int
	ReplayProbability float64

	lastPattern *network.ActivationPattern
}

// New builds an orchestrator over the given core. rng drives the replay
// gate; pass a seeded source for reproducible runs.
func New(net *network.Network, prefabs *prefab.Manager, engine *learning.Engine, rng *rand.Rand) *Orchestrator {
	return &Orchestrator{
		state:             StateIdle,
		net:               net,
		prefabs:           prefabs,
		prop:              network.NewPropagator(net),
		engine:            engine,
		rng:               rng,
		KnowledgeTimeout:  DefaultKnowledgeTimeout,
		TopIdeoms:         DefaultTopIdeoms,
		TopPrefabs:        DefaultTopPrefabs,
		ReplayBatch:       DefaultReplayBatch,
		ReplayProbability: DefaultReplayProbability,
	}
}

// SetKnowledge attaches the external knowledge collaborator.
func (o *Orchestrator) SetKnowledge(k KnowledgeInterface) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.knowledge = k
}

// SetBudget attaches the maintenance budget.
func (o *Orchestrator) SetBudget(b Budget) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.budget = b
}

// State reports the current cycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastPattern returns a copy of the most recent cycle's activation
// pattern, or nil before the first cycle. Feedback handlers use it to
// target the pattern a score refers to.
func (o *Orchestrator) LastPattern() *network.ActivationPattern {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastPattern == nil {
		return nil
	}
	return o.lastPattern.Clone()
}

// Reason runs one full cycle: resolve symbols, pre-seed edges from the
// knowledge collaborator, activate and propagate, evaluate prefabs,
// classify the intent, and learn from the result. The ctx deadline, if
// any, bounds propagation; a cycle that runs out of time returns a
// truncated result rather than an error.
func (o *Orchestrator) Reason(ctx context.Context, symbols, contextSymbols []string) (*Result, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	o.mu.Lock()
	defer func() {
		o.state = StateIdle
		o.mu.Unlock()
	}()

	o.state = StateActivating
	sources := o.resolveSymbols(symbols)
	contexts := o.resolveSymbols(contextSymbols)
	o.preSeedFromKnowledge(ctx, sources)

	o.state = StatePropagating
	deadline, _ := ctx.Deadline()
	pattern := o.prop.PropagateWithContext(sources, contexts,
		1.0, network.DefaultContextStrength, deadline)

	o.state = StateEvaluating
	active := o.prefabs.Evaluate(pattern)
	result := o.buildResult(pattern, active)
	o.lastPattern = pattern.Clone()

	o.state = StateLearning
	o.engine.LearnFromActivation(pattern)
	o.engine.AddToBuffer(learning.Record{Pattern: pattern.Clone()})
	o.maybeReplay()
	o.pushToKnowledge(ctx, pattern)

	return result, nil
}

// ApplyFeedback scores the most recent cycle. Positive scores reinforce
// it, negative scores weaken it, and corrected symbols derive a new
// prefab. The scored record is also buffered for later replay.
func (o *Orchestrator) ApplyFeedback(score float64, corrected []string) (learning.Diagnostics, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lastPattern == nil {
		return learning.Diagnostics{}, errors.New("no cycle to score")
	}
	fb := learning.Feedback{
		Pattern:   o.lastPattern.Clone(),
		Score:     score,
		Corrected: corrected,
	}
	diag, err := o.engine.LearnFromFeedback(fb)
	if err != nil {
		return diag, err
	}
	o.engine.AddToBuffer(learning.Record{Pattern: fb.Pattern, Feedback: &fb})
	return diag, nil
}

// Maintain runs deferred maintenance: buffer replay, weak-edge removal,
// and prefab dedup. Call it when the system is otherwise quiet.
func (o *Orchestrator) Maintain() learning.Diagnostics {
	o.mu.Lock()
	defer o.mu.Unlock()

	diag := o.engine.LearnFromBuffer(o.ReplayBatch)
	removed := o.engine.Optimize()
	merged := o.prefabs.MergeSimilar(prefab.DefaultDuplicateThreshold)
	log.Printf("[reason] maintenance: replayed batch, removed %d weak edges, merged %d prefabs",
		removed, merged)
	return diag
}

// resolveSymbols maps input symbols to ideom IDs. A symbol matches by ID
// first, then by name; unmatched symbols become new ideoms so that novel
// input still participates in the cycle.
func (o *Orchestrator) resolveSymbols(symbols []string) []string {
	ids := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		id := s
		if !o.net.Has(s) {
			if matches := o.net.FindByName(s); len(matches) > 0 {
				id = matches[0]
			} else {
				o.net.Upsert(s, s, "")
				log.Printf("[reason] created ideom %q for novel symbol", s)
			}
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// preSeedFromKnowledge pulls related concepts for each source and merges
// them as edges before propagation. Failures degrade to core-only
// reasoning.
func (o *Orchestrator) preSeedFromKnowledge(ctx context.Context, sources []string) {
	if o.knowledge == nil {
		return
	}
	for _, id := range sources {
		callCtx, cancel := context.WithTimeout(ctx, o.KnowledgeTimeout)
		relations, err := o.knowledge.GetConnections(callCtx, id)
		cancel()
		if err != nil {
			log.Printf("[reason] knowledge lookup for %q failed, continuing without: %v", id, err)
			continue
		}
		o.syncIntoNetwork(id, relations)
	}
}

func (o *Orchestrator) pushToKnowledge(ctx context.Context, pattern *network.ActivationPattern) {
	if o.knowledge == nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, o.KnowledgeTimeout)
	defer cancel()
	if err := o.knowledge.LearnFromIdeomActivations(callCtx, pattern.Clone()); err != nil {
		log.Printf("[reason] knowledge learn push failed: %v", err)
	}
}

// maybeReplay runs a small buffer replay inline when the seeded gate
// fires and the budget allows it; otherwise replay waits for Maintain.
func (o *Orchestrator) maybeReplay() {
	if o.rng == nil || o.rng.Float64() >= o.ReplayProbability {
		return
	}
	if o.budget != nil && !o.budget.Allow() {
		log.Printf("[reason] replay deferred to maintenance, budget exhausted")
		return
	}
	o.engine.LearnFromBuffer(o.ReplayBatch)
}

// buildResult classifies the cycle and assembles the caller-visible
// outcome. active is sorted by activation descending.
func (o *Orchestrator) buildResult(pattern *network.ActivationPattern, active []*prefab.Prefab) *Result {
	label := LabelUnknown
	likelihood := 0.0
	categories := make(map[string]bool, len(active))
	for _, p := range active {
		categories[p.Category] = true
	}
	for _, candidate := range labelPriority {
		if categories[candidate] || (candidate == LabelGeneral && len(active) > 0) {
			label = candidate
			break
		}
	}
	if len(active) > 0 {
		likelihood = active[0].Activation
	}

	result := &Result{
		Label:      label,
		Confidence: fuseConfidence(labelPriors[label], likelihood),
		TopIdeoms:  pattern.MostActive(o.TopIdeoms),
		Truncated:  pattern.Truncated,
	}
	for i, p := range active {
		if i == o.TopPrefabs {
			break
		}
		result.ActivePrefabs = append(result.ActivePrefabs, PrefabActivation{
			ID: p.ID, Name: p.Name, Activation: p.Activation,
		})
	}
	result.Explanation = explain(result)
	return result
}

func explain(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "intent %s (%.2f)", r.Label, r.Confidence)
	if len(r.ActivePrefabs) > 0 {
		fmt.Fprintf(&b, "; matched %s at %.2f", r.ActivePrefabs[0].Name, r.ActivePrefabs[0].Activation)
	}
	if len(r.TopIdeoms) > 0 {
		b.WriteString("; top ideoms:")
		for _, ia := range r.TopIdeoms {
			fmt.Fprintf(&b, " %s=%.2f", ia.ID, ia.Activation)
		}
	}
	if r.Truncated {
		b.WriteString(" (truncated)")
	}
	return b.String()
}
