// Package snapshot defines the versioned persistence format for the
// reasoning core: a JSON document with every ideom, connection, and
// prefab definition. Snapshots round-trip losslessly (within 1e-6) and
// a version mismatch on load fails before any state is replaced.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
)

// Version is the current snapshot format version.
const Version = 1

// ErrVersionMismatch is returned when a snapshot was written by a
// different format version.
var ErrVersionMismatch = errors.New("snapshot version mismatch")

// Connection is one directed weighted edge in the snapshot.
type Connection struct {
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// IdeomDoc is the persisted form of an ideom. Activation is transient
// and deliberately not persisted; restored ideoms start quiet.
type IdeomDoc struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category,omitempty"`
	DecayRate   float64      `json:"decay_rate"`
	Threshold   float64      `json:"threshold"`
	Connections []Connection `json:"connections,omitempty"`
}

// PatternWeight is one weighted ideom requirement of a prefab.
type PatternWeight struct {
	Ideom  string  `json:"ideom"`
	Weight float64 `json:"weight"`
}

// PrefabDoc is the persisted form of a prefab.
type PrefabDoc struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	Threshold float64         `json:"threshold"`
	Pattern   []PatternWeight `json:"pattern,omitempty"`
}

// Snapshot is the whole persisted reasoning core.
type Snapshot struct {
	Version int         `json:"version"`
	Ideoms  []IdeomDoc  `json:"ideoms"`
	Prefabs []PrefabDoc `json:"prefabs"`
}

// Capture serializes the network and prefab manager into a snapshot.
// Output ordering is deterministic: ideoms, prefabs, and edge lists are
// all sorted.
func Capture(net *network.Network, mgr *prefab.Manager) *Snapshot {
	snap := &Snapshot{Version: Version}

	for _, ideom := range net.All() {
		doc := IdeomDoc{
			ID:        ideom.ID,
			Name:      ideom.Name,
			Category:  ideom.Category,
			DecayRate: ideom.DecayRate,
			Threshold: ideom.Threshold,
		}
		for target, w := range ideom.Connections {
			doc.Connections = append(doc.Connections, Connection{Target: target, Weight: w})
		}
		sort.Slice(doc.Connections, func(i, j int) bool {
			return doc.Connections[i].Target < doc.Connections[j].Target
		})
		snap.Ideoms = append(snap.Ideoms, doc)
	}

	for _, p := range mgr.All() {
		doc := PrefabDoc{
			ID:        p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Threshold: p.Threshold,
		}
		for ideomID, w := range p.Pattern {
			doc.Pattern = append(doc.Pattern, PatternWeight{Ideom: ideomID, Weight: w})
		}
		sort.Slice(doc.Pattern, func(i, j int) bool {
			return doc.Pattern[i].Ideom < doc.Pattern[j].Ideom
		})
		snap.Prefabs = append(snap.Prefabs, doc)
	}

	return snap
}

// Restore builds a fresh network and prefab manager from a snapshot.
// The version is checked first: on mismatch nothing is constructed and
// the caller's state is untouched.
func Restore(snap *Snapshot) (*network.Network, *prefab.Manager, error) {
	if snap.Version != Version {
		return nil, nil, fmt.Errorf("snapshot version %d, expected %d: %w",
			snap.Version, Version, ErrVersionMismatch)
	}

	net := network.New()
	for _, doc := range snap.Ideoms {
		ideom := network.NewIdeom(doc.ID, doc.Name, doc.Category)
		ideom.DecayRate = doc.DecayRate
		ideom.Threshold = doc.Threshold
		for _, conn := range doc.Connections {
			ideom.Connections[conn.Target] = conn.Weight
		}
		net.Add(ideom)
	}

	mgr := prefab.NewManager()
	for _, doc := range snap.Prefabs {
		weights := make(map[string]float64, len(doc.Pattern))
		for _, pw := range doc.Pattern {
			weights[pw.Ideom] = pw.Weight
		}
		p := prefab.New(doc.ID, doc.Name, doc.Category, weights)
		if doc.Threshold > 0 {
			p.Threshold = doc.Threshold
		}
		mgr.Add(p)
	}

	return net, mgr, nil
}

// Encode renders a snapshot as indented JSON.
func Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot document and validates its version.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("snapshot version %d, expected %d: %w",
			snap.Version, Version, ErrVersionMismatch)
	}
	return &snap, nil
}
