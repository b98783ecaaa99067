package network

import (
	"math"
	"reflect"
	"testing"
	"time"
)

// buildDogAnimalNet sets up the two-node network used by the basic
// propagation tests: dog --0.9--> animal, both with decay 0.1.
func buildDogAnimalNet(t *testing.T) *Network {
	t.Helper()

	net := New()
	net.Upsert("dog", "dog", "noun")
	net.Upsert("animal", "animal", "noun")
	if err := net.Connect("dog", "animal", 0.9, false); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return net
}

func TestSingleRoundPropagationWithDecay(t *testing.T) {
	net := buildDogAnimalNet(t)

	prop := NewPropagator(net)
	prop.MaxRounds = 1
	prop.Threshold = 0.1

	pattern := prop.Propagate([]string{"dog"}, 1.0, time.Time{})

	// dog fires 1.0*0.9=0.9 into animal, then the round's decay step
	// takes dog 1.0 -> 0.9 and animal 0.9 -> 0.8.
	if a := net.ActivationOf("animal"); math.Abs(a-0.8) > 1e-9 {
		t.Errorf("animal activation after decay: got %v, want 0.8", a)
	}
	if a := net.ActivationOf("dog"); math.Abs(a-0.9) > 1e-9 {
		t.Errorf("dog activation after decay: got %v, want 0.9", a)
	}

	// The pattern records peak activations seen during the cycle.
	if a := pattern.ActivationOf("animal"); math.Abs(a-0.9) > 1e-9 {
		t.Errorf("recorded animal activation: got %v, want 0.9", a)
	}
	if a := pattern.ActivationOf("dog"); math.Abs(a-1.0) > 1e-9 {
		t.Errorf("recorded dog activation: got %v, want 1.0", a)
	}
	if pattern.Truncated {
		t.Error("pattern should not be truncated")
	}
}

func TestPropagationSkipsSubThresholdSignals(t *testing.T) {
	net := New()
	net.Upsert("a", "a", "")
	net.Upsert("b", "b", "")
	net.Connect("a", "b", 0.05, false)

	prop := NewPropagator(net)
	pattern := prop.Propagate([]string{"a"}, 1.0, time.Time{})

	// 1.0 * 0.05 = 0.05 <= threshold 0.1: never delivered
	if _, ok := pattern.Activations["b"]; ok {
		t.Error("sub-threshold signal was delivered")
	}
}

func TestPropagationStopsOnQuietRound(t *testing.T) {
	net := New()
	net.Upsert("lone", "lone", "")

	prop := NewPropagator(net)
	prop.MaxRounds = 100
	pattern := prop.Propagate([]string{"lone"}, 1.0, time.Time{})

	// No edges: the first round delivers nothing, so no decay runs.
	if a := net.ActivationOf("lone"); a != 1.0 {
		t.Errorf("expected no decay after quiet round, got %v", a)
	}
	if len(pattern.Activations) != 1 {
		t.Errorf("expected only the source in the pattern, got %d entries", len(pattern.Activations))
	}
}

func TestPropagationIsDeterministic(t *testing.T) {
	build := func() *Network {
		net := New()
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			net.Upsert(id, id, "")
		}
		net.Connect("a", "b", 0.8, true)
		net.Connect("a", "c", 0.7, true)
		net.Connect("b", "d", 0.6, true)
		net.Connect("c", "e", 0.5, true)
		net.Connect("d", "e", 0.4, true)
		return net
	}

	run := func() map[string]float64 {
		net := build()
		prop := NewPropagator(net)
		return prop.Propagate([]string{"a"}, 1.0, time.Time{}).Activations
	}

	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); !reflect.DeepEqual(first, got) {
			t.Fatalf("propagation diverged on run %d:\nfirst: %v\ngot:   %v", i, first, got)
		}
	}
}

func TestPropagationUnknownSourceIsSkipped(t *testing.T) {
	net := buildDogAnimalNet(t)
	prop := NewPropagator(net)

	pattern := prop.Propagate([]string{"ghost", "dog"}, 1.0, time.Time{})
	if _, ok := pattern.Activations["ghost"]; ok {
		t.Error("unknown source appeared in the pattern")
	}
	if _, ok := pattern.Activations["dog"]; !ok {
		t.Error("known source missing from the pattern")
	}
}

func TestPropagationHonorsDeadline(t *testing.T) {
	// Ring network keeps delivering forever so rounds never go quiet.
	net := New()
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		net.Upsert(id, id, "")
	}
	net.Connect("a", "b", 0.9, false)
	net.Connect("b", "c", 0.9, false)
	net.Connect("c", "a", 0.9, false)

	prop := NewPropagator(net)
	prop.MaxRounds = 1 << 30

	pattern := prop.Propagate(ids, 1.0, time.Now().Add(-time.Second))
	if !pattern.Truncated {
		t.Fatal("expected truncated pattern when deadline already passed")
	}
}

func TestPropagateWithContextMergesAdditively(t *testing.T) {
	net := New()
	net.Upsert("what", "what", "question")
	net.Upsert("is", "is", "verb")

	prop := NewPropagator(net)
	pattern := prop.PropagateWithContext(
		[]string{"what"}, []string{"what", "is"}, 1.0, 0.5, time.Time{})

	// "what" is both a source and a context symbol: 0.5 + 1.0 clamps at 1.0
	if a := net.ActivationOf("what"); a != 1.0 {
		t.Errorf("overlapping symbol activation: got %v, want 1.0", a)
	}
	if a := net.ActivationOf("is"); a != 0.5 {
		t.Errorf("context-only symbol activation: got %v, want 0.5", a)
	}
	if a := pattern.ActivationOf("is"); a != 0.5 {
		t.Errorf("context activation missing from merged pattern: %v", a)
	}
}
