package state

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"assets", "schema_version"} {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestAssetLifecycle(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertAsset("track-one", "gs://bucket/track-one.wav"); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	asset, err := store.GetAsset("track-one")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if asset == nil {
		t.Fatal("expected asset, got nil")
	}
	if asset.Status != StatusPending {
		t.Errorf("new asset status = %s, want %s", asset.Status, StatusPending)
	}

	if err := store.MarkDone("track-one", 12); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	asset, err = store.GetAsset("track-one")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if asset.Status != StatusDone || asset.Segments != 12 {
		t.Errorf("after MarkDone: status=%s segments=%d", asset.Status, asset.Segments)
	}
}

func TestUpsertKeepsStatus(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertAsset("track-one", "gs://bucket/track-one.wav"); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	if err := store.MarkDone("track-one", 5); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	// re-registering on a resumed run must not reset progress
	if err := store.UpsertAsset("track-one", "gs://bucket/track-one.wav"); err != nil {
		t.Fatalf("repeat UpsertAsset failed: %v", err)
	}

	asset, err := store.GetAsset("track-one")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if asset.Status != StatusDone || asset.Segments != 5 {
		t.Errorf("resume reset progress: status=%s segments=%d", asset.Status, asset.Segments)
	}
}

func TestMarkErrorAndCounts(t *testing.T) {
	store := openTestStore(t)

	tracks := map[string]string{
		"a": "gs://b/a.wav",
		"b": "gs://b/b.wav",
		"c": "gs://b/c.wav",
	}
	for name, uri := range tracks {
		if err := store.UpsertAsset(name, uri); err != nil {
			t.Fatalf("UpsertAsset failed: %v", err)
		}
	}
	if err := store.MarkDone("a", 3); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	if err := store.MarkError("b", "download timed out"); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	counts, err := store.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[StatusDone] != 1 || counts[StatusError] != 1 || counts[StatusPending] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	statuses, err := store.StatusMap()
	if err != nil {
		t.Fatalf("StatusMap failed: %v", err)
	}
	if statuses["b"] != StatusError {
		t.Errorf("status of b = %s", statuses["b"])
	}

	asset, err := store.GetAsset("b")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if asset.Error != "download timed out" {
		t.Errorf("error message = %q", asset.Error)
	}
}

func TestDeleteAsset(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertAsset("gone", "gs://b/gone.wav"); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	if err := store.DeleteAsset("gone"); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}
	asset, err := store.GetAsset("gone")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if asset != nil {
		t.Error("expected nil after delete")
	}
}
