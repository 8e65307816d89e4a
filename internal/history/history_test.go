package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStore_SaveAndGet(t *testing.T) {
	store := openStore(t)

	rec := &Record{
		Direction:  "push",
		Device:     "leaf1",
		LocalPath:  "/tmp/nxos.bin",
		RemotePath: "bootflash:nxos.bin",
		Protocol:   "scp",
		State:      StateCompleted,
		Bytes:      1024,
		MD5:        "d41d8cd98f00b204e9800998ecf8427e",
		Duration:   1500 * time.Millisecond,
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.ID == "" || rec.StartedAt.IsZero() {
		t.Fatalf("Save did not assign ID/start time: %+v", rec)
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RemotePath != rec.RemotePath || got.Bytes != 1024 || got.State != StateCompleted || got.Duration != rec.Duration {
		t.Errorf("Get = %+v", got)
	}

	// Update in place
	rec.State = StateFailed
	rec.Error = "permission denied"
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = store.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateFailed || got.Error != "permission denied" {
		t.Errorf("update not stored: %+v", got)
	}
}

func TestBoltStore_GetMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get("nope"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestBoltStore_ListNewestFirst(t *testing.T) {
	store := openStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		rec := &Record{Direction: "push", State: StateCompleted, Bytes: int64(i)}
		if err := store.Save(rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	all, err := store.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("List returned %d records", len(all))
	}
	for i, rec := range all {
		if rec.ID != ids[len(ids)-1-i] {
			t.Errorf("record %d = %s, want %s", i, rec.ID, ids[len(ids)-1-i])
		}
	}

	two, err := store.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(two) != 2 || two[0].Bytes != 4 {
		t.Errorf("List(2) = %+v", two)
	}
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := &Record{Direction: "pull", State: StateCompleted}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, err := store.Get(rec.ID); err != nil {
		t.Fatalf("record lost after reopen: %v", err)
	}
}
