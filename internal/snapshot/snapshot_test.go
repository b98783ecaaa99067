package snapshot

import (
	"errors"
	"math"
	"testing"

	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
)

func buildFixture(t *testing.T) (*network.Network, *prefab.Manager) {
	t.Helper()
	net := network.New()
	for _, id := range []string{"dog", "animal", "bark"} {
		net.Upsert(id, id, "concept")
	}
	if err := net.Connect("dog", "animal", 0.8, false); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := net.Connect("dog", "bark", 0.6, true); err != nil {
		t.Fatalf("connect: %v", err)
	}

	mgr := prefab.NewManager()
	p := prefab.New("pf-dog", "dog-concept", "definition", map[string]float64{
		"dog": 1.0, "animal": 0.5, "bark": 0.5,
	})
	p.Threshold = 0.4
	mgr.Add(p)
	return net, mgr
}

func TestSnapshotRoundTrip(t *testing.T) {
	net, mgr := buildFixture(t)

	data, err := Encode(Capture(net, mgr))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	net2, mgr2, err := Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if net2.Len() != net.Len() {
		t.Fatalf("ideom count %d, want %d", net2.Len(), net.Len())
	}
	for _, ideom := range net.All() {
		restored, err := net2.Get(ideom.ID)
		if err != nil {
			t.Fatalf("restored network missing %q", ideom.ID)
		}
		if restored.Name != ideom.Name || restored.Category != ideom.Category {
			t.Errorf("ideom %q metadata changed: %+v", ideom.ID, restored)
		}
		for target, w := range ideom.Connections {
			if got := restored.Connections[target]; math.Abs(got-w) > 1e-6 {
				t.Errorf("edge %s->%s weight %.6f, want %.6f", ideom.ID, target, got, w)
			}
		}
		if len(restored.Connections) != len(ideom.Connections) {
			t.Errorf("ideom %q has %d edges, want %d",
				ideom.ID, len(restored.Connections), len(ideom.Connections))
		}
	}

	restored, err := mgr2.Get("pf-dog")
	if err != nil {
		t.Fatalf("restored manager missing prefab: %v", err)
	}
	if math.Abs(restored.Threshold-0.4) > 1e-6 {
		t.Errorf("prefab threshold %.3f, want 0.4", restored.Threshold)
	}
	if math.Abs(restored.Pattern["dog"]-1.0) > 1e-6 {
		t.Errorf("prefab weight %.3f, want 1.0", restored.Pattern["dog"])
	}
}

func TestSnapshotDoesNotPersistActivation(t *testing.T) {
	net, mgr := buildFixture(t)
	net.Activate("dog", 0.9)

	net2, _, err := Restore(Capture(net, mgr))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if a := net2.ActivationOf("dog"); a != 0 {
		t.Errorf("restored activation %.3f, want 0", a)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"version": 2, "ideoms": [], "prefabs": []}`))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestRestoreRejectsVersionMismatch(t *testing.T) {
	net, mgr := buildFixture(t)
	snap := Capture(net, mgr)
	snap.Version = 99

	if _, _, err := Restore(snap); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}

func TestCaptureIsDeterministic(t *testing.T) {
	net, mgr := buildFixture(t)

	first, err := Encode(Capture(net, mgr))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Encode(Capture(net, mgr))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("encoding differs between runs")
		}
	}
}
