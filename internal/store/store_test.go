package store

import (
	"errors"
	"testing"

	"github.com/vthunder/ideonet/internal/network"
	"github.com/vthunder/ideonet/internal/prefab"
	"github.com/vthunder/ideonet/internal/snapshot"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot(t *testing.T, ids ...string) *snapshot.Snapshot {
	t.Helper()
	net := network.New()
	for _, id := range ids {
		net.Upsert(id, id, "concept")
	}
	return snapshot.Capture(net, prefab.NewManager())
}

func TestSaveAndLoadLatest(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Save(testSnapshot(t, "dog")); err != nil {
		t.Fatalf("save: %v", err)
	}
	id2, err := db.Save(testSnapshot(t, "dog", "animal"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id2 != 2 {
		t.Errorf("second save id = %d, want 2", id2)
	}

	snap, err := db.LoadLatest()
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if len(snap.Ideoms) != 2 {
		t.Errorf("latest snapshot has %d ideoms, want 2", len(snap.Ideoms))
	}
}

func TestLoadLatestEmptyStore(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadLatest(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestLoadByID(t *testing.T) {
	db := openTestDB(t)
	id, err := db.Save(testSnapshot(t, "dog"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	db.Save(testSnapshot(t, "dog", "animal"))

	snap, err := db.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Ideoms) != 1 {
		t.Errorf("snapshot %d has %d ideoms, want 1", id, len(snap.Ideoms))
	}
	if _, err := db.Load(999); !errors.Is(err, ErrEmpty) {
		t.Errorf("unknown id err = %v, want ErrEmpty", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	db.Save(testSnapshot(t, "a"))
	db.Save(testSnapshot(t, "a", "b"))

	metas, err := db.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("list returned %d rows, want 2", len(metas))
	}
	if metas[0].ID < metas[1].ID {
		t.Error("list is not newest first")
	}
	if metas[0].Ideoms != 2 {
		t.Errorf("newest meta has %d ideoms, want 2", metas[0].Ideoms)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		db.Save(testSnapshot(t, "a"))
	}

	removed, err := db.Prune(2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("pruned %d rows, want 3", removed)
	}
	metas, err := db.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 2 || metas[0].ID != 5 {
		t.Errorf("unexpected survivors: %+v", metas)
	}
}

func TestCorruptPayloadFailsLoad(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.db.Exec(
		`INSERT INTO snapshots (version, ideom_count, prefab_count, payload) VALUES (2, 0, 0, ?)`,
		[]byte(`{"version": 2}`),
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := db.LoadLatest(); !errors.Is(err, snapshot.ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}
}
