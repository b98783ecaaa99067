package network

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
)

// ErrNotFound is returned when an operation references an ideom that is
// not in the network.
var ErrNotFound = errors.New("ideom not found")

// Network owns all ideoms and their weighted directed connections.
// It is the single shared mutable resource of the reasoning core: the
// propagator, prefab manager, and learning engine all borrow it for the
// duration of a call. Adjacency is stored as id->weight maps rather than
// pointers so the cyclic graph has no ownership cycles and ideoms can be
// pruned later without dangling references.
type Network struct {
	mu     sync.RWMutex
	ideoms map[string]*Ideom
}

// New creates an empty network.
func New() *Network {
	return &Network{ideoms: make(map[string]*Ideom)}
}

// Get returns a copy of the ideom with the given ID.
func (n *Network) Get(id string) (*Ideom, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ideom, ok := n.ideoms[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return ideom.clone(), nil
}

// Has reports whether an ideom with the given ID exists.
func (n *Network) Has(id string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.ideoms[id]
	return ok
}

// Upsert creates the ideom if absent and returns a copy of it. If the
// ideom already exists it is returned unchanged; upsert never clobbers
// state learned since creation.
func (n *Network) Upsert(id, name, category string) *Ideom {
	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.ideoms[id]; ok {
		return existing.clone()
	}
	ideom := NewIdeom(id, name, category)
	n.ideoms[id] = ideom
	return ideom.clone()
}

// Add inserts a fully-specified ideom (seed load, snapshot restore).
// Activation, threshold, decay, and connection weights are clamped into
// range rather than rejected.
func (n *Network) Add(ideom *Ideom) {
	n.mu.Lock()
	defer n.mu.Unlock()

	clamped := ideom.clone()
	clamped.Activation = clamp01(clamped.Activation)
	clamped.Threshold = clamp01(clamped.Threshold)
	clamped.DecayRate = clamp01(clamped.DecayRate)
	for target, w := range clamped.Connections {
		if w < 0 || w > 1 {
			log.Printf("[network] clamped connection %s->%s weight %.3f", clamped.ID, target, w)
			clamped.Connections[target] = clamp01(w)
		}
	}
	n.ideoms[clamped.ID] = clamped
}

// Connect strengthens (or creates) the edge a->b by strength, capped at
// 1.0. When symmetric is true the reverse edge b->a is strengthened the
// same way; untyped association edges are symmetric by default, typed
// relations pass symmetric=false. Out-of-range strengths are clamped,
// unknown endpoints are an error.
func (n *Network) Connect(a, b string, strength float64, symmetric bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	src, ok := n.ideoms[a]
	if !ok {
		return fmt.Errorf("connect %q->%q: source: %w", a, b, ErrNotFound)
	}
	dst, ok := n.ideoms[b]
	if !ok {
		return fmt.Errorf("connect %q->%q: target: %w", a, b, ErrNotFound)
	}

	if strength < 0 || strength > 1 {
		log.Printf("[network] clamped connect strength %.3f for %s->%s", strength, a, b)
		strength = clamp01(strength)
	}

	src.Connections[b] = clamp01(src.Connections[b] + strength)
	if symmetric {
		dst.Connections[a] = clamp01(dst.Connections[a] + strength)
	}
	return nil
}

// SetConnection overwrites the weight of a->b (clamped), creating the
// edge if needed. Used by learning when it computes an absolute weight.
func (n *Network) SetConnection(a, b string, weight float64, symmetric bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	src, ok := n.ideoms[a]
	if !ok {
		return fmt.Errorf("set connection %q->%q: source: %w", a, b, ErrNotFound)
	}
	dst, ok := n.ideoms[b]
	if !ok {
		return fmt.Errorf("set connection %q->%q: target: %w", a, b, ErrNotFound)
	}

	src.Connections[b] = clamp01(weight)
	if symmetric {
		dst.Connections[a] = clamp01(weight)
	}
	return nil
}

// Disconnect removes the edge a->b (and b->a when symmetric). Missing
// edges or endpoints are a no-op.
func (n *Network) Disconnect(a, b string, symmetric bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if src, ok := n.ideoms[a]; ok {
		delete(src.Connections, b)
	}
	if symmetric {
		if dst, ok := n.ideoms[b]; ok {
			delete(dst.Connections, a)
		}
	}
}

// Neighbor is an outgoing edge of an ideom.
type Neighbor struct {
	ID     string
	Weight float64
}

// Neighbors returns the outgoing edges of the given ideom, sorted by ID
// so iteration order is stable.
func (n *Network) Neighbors(id string) ([]Neighbor, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ideom, ok := n.ideoms[id]
	if !ok {
		return nil, fmt.Errorf("neighbors %q: %w", id, ErrNotFound)
	}

	result := make([]Neighbor, 0, len(ideom.Connections))
	for target, w := range ideom.Connections {
		result = append(result, Neighbor{ID: target, Weight: w})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Activate raises the activation of an ideom by strength.
func (n *Network) Activate(id string, strength float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ideom, ok := n.ideoms[id]
	if !ok {
		return fmt.Errorf("activate %q: %w", id, ErrNotFound)
	}
	ideom.Activate(strength)
	return nil
}

// ActivationOf returns the current activation of an ideom, 0 if unknown.
func (n *Network) ActivationOf(id string) float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if ideom, ok := n.ideoms[id]; ok {
		return ideom.Activation
	}
	return 0
}

// DecayAll applies one decay step to every ideom.
func (n *Network) DecayAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ideom := range n.ideoms {
		ideom.Decay()
	}
}

// ResetActivations zeroes every activation without touching weights.
func (n *Network) ResetActivations() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ideom := range n.ideoms {
		ideom.Activation = 0
	}
}

// Len returns the number of ideoms.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.ideoms)
}

// IDs returns all ideom IDs in sorted order.
func (n *Network) IDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]string, 0, len(n.ideoms))
	for id := range n.ideoms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns copies of every ideom, sorted by ID.
func (n *Network) All() []*Ideom {
	n.mu.RLock()
	defer n.mu.RUnlock()

	result := make([]*Ideom, 0, len(n.ideoms))
	for _, ideom := range n.ideoms {
		result = append(result, ideom.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// FindByName returns the IDs of ideoms whose name matches exactly.
// Symbol resolution tries IDs first, then names.
func (n *Network) FindByName(name string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var ids []string
	for id, ideom := range n.ideoms {
		if ideom.Name == name {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// snapshotActivations copies every id->activation under the read lock.
// The propagator reads from this copy so a round is never order-dependent.
func (n *Network) snapshotActivations() map[string]float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	snap := make(map[string]float64, len(n.ideoms))
	for id, ideom := range n.ideoms {
		snap[id] = ideom.Activation
	}
	return snap
}
