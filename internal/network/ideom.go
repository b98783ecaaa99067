package network

import (
	"time"
)

// Default tuning for ideoms. These match the values the network was
// calibrated with; seed files may override per-ideom.
const (
	DefaultThreshold = 0.5
	DefaultDecayRate = 0.1
)

// Ideom is an atomic activation-bearing node in the network.
// Ideoms are owned by the Network and must only be mutated while holding
// the Network's lock; callers outside this package get copies.
type Ideom struct {
	ID       string
	Name     string
	Category string

	// Activation is always kept in [0,1] by the mutation methods.
	Activation float64
	Threshold  float64
	DecayRate  float64

	// Connections maps neighbor ideom ID to edge weight in [0,1].
	Connections map[string]float64

	LastActivated   time.Time
	ActivationCount int
}

// NewIdeom creates an ideom with default threshold and decay.
func NewIdeom(id, name, category string) *Ideom {
	return &Ideom{
		ID:          id,
		Name:        name,
		Category:    category,
		Threshold:   DefaultThreshold,
		DecayRate:   DefaultDecayRate,
		Connections: make(map[string]float64),
	}
}

// Activate raises the activation by strength, clamped to 1.0.
// Negative strengths are treated as zero.
func (i *Ideom) Activate(strength float64) {
	if strength <= 0 {
		return
	}
	i.Activation = clamp01(i.Activation + strength)
	i.LastActivated = time.Now()
	i.ActivationCount++
}

// Decay lowers the activation by the ideom's decay rate, floored at 0.
func (i *Ideom) Decay() {
	i.Activation = i.Activation - i.DecayRate
	if i.Activation < 0 {
		i.Activation = 0
	}
}

// IsActive reports whether the activation has reached the threshold.
func (i *Ideom) IsActive() bool {
	return i.Activation >= i.Threshold
}

// ConnectionTo returns the outgoing edge weight to the given ideom,
// or 0 if there is no edge.
func (i *Ideom) ConnectionTo(id string) float64 {
	return i.Connections[id]
}

// clone returns a deep copy safe to hand out without the Network lock.
func (i *Ideom) clone() *Ideom {
	c := *i
	c.Connections = make(map[string]float64, len(i.Connections))
	for k, v := range i.Connections {
		c.Connections[k] = v
	}
	return &c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
