package store

import (
	"context"
	"testing"
)

// newTestStore opens a fresh file-backed store in a per-test temp
// directory. File-based databases exercise the same WAL/locking paths
// as production, unlike a shared :memory: database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, t.TempDir()+"/jobwatch.db")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
	return s
}

func TestOpenBootstrapsSchemaTwice(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/jobwatch.db"

	s1, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close first store: %v", err)
	}

	s2, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	if _, ok, err := s2.CurrentLinks(ctx, "acme"); err != nil || ok {
		t.Fatalf("expected no snapshot on reopened fresh db, got ok=%v err=%v", ok, err)
	}
}

func TestCurrentLinksMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.CurrentLinks(ctx, "acme")
	if err != nil {
		t.Fatalf("CurrentLinks: %v", err)
	}
	if ok {
		t.Fatalf("expected no snapshot for unseen site")
	}
}

func TestUpsertSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	links := []string{"https://acme.example/jobs/1", "https://acme.example/jobs/2"}
	if err := s.UpsertSnapshot(ctx, "acme", links, "hash-1"); err != nil {
		t.Fatalf("UpsertSnapshot: %v", err)
	}

	got, ok, err := s.CurrentLinks(ctx, "acme")
	if err != nil {
		t.Fatalf("CurrentLinks: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to exist")
	}
	if len(got) != 2 || got[0] != links[0] || got[1] != links[1] {
		t.Fatalf("CurrentLinks = %v, want %v", got, links)
	}

	// A second snapshot for the same site replaces current_snapshot but
	// does not remove the first entry from snapshot_history.
	if err := s.UpsertSnapshot(ctx, "acme", []string{links[0]}, "hash-2"); err != nil {
		t.Fatalf("UpsertSnapshot #2: %v", err)
	}
	got, _, err = s.CurrentLinks(ctx, "acme")
	if err != nil {
		t.Fatalf("CurrentLinks #2: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("CurrentLinks #2 = %v, want 1 link", got)
	}
}
