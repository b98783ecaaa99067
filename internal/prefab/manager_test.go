package prefab

import (
	"math"
	"testing"

	"github.com/vthunder/ideonet/internal/network"
)

func TestScoreNormalizesByTotalWeight(t *testing.T) {
	p := New("p1", "what-is", "definition", map[string]float64{
		"what": 1.0,
		"is":   1.0,
	})
	p.Threshold = 0.15

	pattern := network.NewPattern()
	pattern.Add("what", 0.5)

	// (0.5*1.0 + 0*1.0) / 2.0 = 0.25
	score := p.Score(pattern)
	if math.Abs(score-0.25) > 1e-9 {
		t.Fatalf("score: got %v, want 0.25", score)
	}

	p.Activation = score
	if !p.IsActive() {
		t.Error("expected prefab active at 0.25 >= threshold 0.15")
	}
}

func TestScoreEmptyPatternIsZero(t *testing.T) {
	p := New("p1", "empty", "", nil)
	if score := p.Score(network.NewPattern()); score != 0 {
		t.Errorf("expected 0 for weightless prefab, got %v", score)
	}
}

func TestEvaluateMarksActivePrefabs(t *testing.T) {
	m := NewManager()

	question := New("q", "question", "verification", map[string]float64{"what": 1.0, "is": 1.0})
	question.Threshold = 0.15
	m.Add(question)

	unrelated := New("u", "unrelated", "capability", map[string]float64{"cake": 1.0})
	unrelated.Threshold = 0.5
	m.Add(unrelated)

	pattern := network.NewPattern()
	pattern.Add("what", 0.5)

	active := m.Evaluate(pattern)
	if len(active) != 1 || active[0].ID != "q" {
		t.Fatalf("unexpected active set: %+v", active)
	}
	if active[0].ActivationCount != 1 {
		t.Errorf("expected activation counter bump, got %d", active[0].ActivationCount)
	}
	if len(pattern.ActivePrefabs) != 1 || pattern.ActivePrefabs[0] != "q" {
		t.Errorf("active prefab not recorded in pattern: %v", pattern.ActivePrefabs)
	}
}

func TestEvaluateSortsByActivationDesc(t *testing.T) {
	m := NewManager()

	strong := New("strong", "strong", "", map[string]float64{"a": 1.0})
	strong.Threshold = 0.1
	m.Add(strong)

	weak := New("weak", "weak", "", map[string]float64{"a": 1.0, "b": 1.0})
	weak.Threshold = 0.1
	m.Add(weak)

	pattern := network.NewPattern()
	pattern.Add("a", 0.8)

	active := m.Evaluate(pattern)
	if len(active) != 2 {
		t.Fatalf("expected 2 active prefabs, got %d", len(active))
	}
	if active[0].ID != "strong" || active[1].ID != "weak" {
		t.Errorf("wrong ordering: %s, %s", active[0].ID, active[1].ID)
	}
}

func TestCreateFromPatternNoveltyCheck(t *testing.T) {
	m := NewManager()

	created, dup := m.CreateFromPattern("greeting", "general", map[string]float64{
		"hello": 0.9,
		"there": 0.7,
	}, 0.3)
	if created == nil || dup != "" {
		t.Fatalf("first creation should succeed, got dup=%q", dup)
	}

	// Same keys, nearly identical weights: similarity
	// (0.9+0.7)/2 = 0.8 > 0.7, must be skipped.
	skipped, dup := m.CreateFromPattern("greeting-2", "general", map[string]float64{
		"hello": 0.9,
		"there": 0.7,
	}, 0.3)
	if skipped != nil {
		t.Error("duplicate pattern was created")
	}
	if dup != created.ID {
		t.Errorf("expected duplicate report naming %q, got %q", created.ID, dup)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 prefab after skip, got %d", m.Len())
	}

	// Disjoint pattern passes the check.
	other, dup := m.CreateFromPattern("farewell", "general", map[string]float64{
		"good": 0.8,
		"bye":  0.8,
	}, 0.3)
	if other == nil || dup != "" {
		t.Errorf("disjoint pattern should be created, got dup=%q", dup)
	}
}

func TestMergeSimilarCombinesWeights(t *testing.T) {
	m := NewManager()

	a := New("a", "ask-name", "", map[string]float64{"what": 1.0, "name": 0.8})
	b := New("b", "ask-name-2", "", map[string]float64{"what": 0.6, "name": 1.0})
	m.Add(a)
	m.Add(b)

	if n := m.MergeSimilar(0.9); n != 1 {
		t.Fatalf("expected 1 merge, got %d", n)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 prefab after merge, got %d", m.Len())
	}

	survivor := m.All()[0]
	if math.Abs(survivor.Pattern["what"]-0.8) > 1e-9 {
		t.Errorf("merged weight for 'what': got %v, want 0.8", survivor.Pattern["what"])
	}
	if math.Abs(survivor.Pattern["name"]-0.9) > 1e-9 {
		t.Errorf("merged weight for 'name': got %v, want 0.9", survivor.Pattern["name"])
	}
}

func TestMergeSimilarLeavesDistinctAlone(t *testing.T) {
	m := NewManager()
	m.Add(New("a", "a", "", map[string]float64{"x": 1.0}))
	m.Add(New("b", "b", "", map[string]float64{"y": 1.0}))

	if n := m.MergeSimilar(0.5); n != 0 {
		t.Errorf("expected no merges, got %d", n)
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 prefabs, got %d", m.Len())
	}
}
