package diffing

import (
	"reflect"
	"testing"
)

func TestDedupePreserveOrder(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	got := DedupePreserveOrder(in)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DedupePreserveOrder(%v) = %v, want %v", in, got, want)
	}
}

func TestDiff(t *testing.T) {
	old := []string{"u1", "u2", "u3"}
	new_ := []string{"u2", "u3", "u4"}

	added, removed := Diff(old, new_)
	if !reflect.DeepEqual(added, []string{"u4"}) {
		t.Fatalf("added = %v, want [u4]", added)
	}
	if !reflect.DeepEqual(removed, []string{"u1"}) {
		t.Fatalf("removed = %v, want [u1]", removed)
	}
}

func TestDiffNoChange(t *testing.T) {
	links := []string{"u1", "u2"}
	added, removed := Diff(links, links)
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("expected no diff for identical lists, got added=%v removed=%v", added, removed)
	}
}

func TestHashIsOrderIndependent(t *testing.T) {
	h1, sorted1 := Hash("acme", []string{"u2", "u1"})
	h2, sorted2 := Hash("acme", []string{"u1", "u2"})
	if h1 != h2 {
		t.Fatalf("Hash should be independent of input order: %q != %q", h1, h2)
	}
	if !reflect.DeepEqual(sorted1, sorted2) {
		t.Fatalf("sorted added_urls should match regardless of input order")
	}
}

func TestHashDiffersBySite(t *testing.T) {
	h1, _ := Hash("acme", []string{"u1"})
	h2, _ := Hash("globex", []string{"u1"})
	if h1 == h2 {
		t.Fatalf("Hash must depend on site, got same hash for acme and globex")
	}
}

func TestSnapshotHashOrderSensitive(t *testing.T) {
	h1, err := SnapshotHash([]string{"u1", "u2"})
	if err != nil {
		t.Fatalf("SnapshotHash: %v", err)
	}
	h2, err := SnapshotHash([]string{"u2", "u1"})
	if err != nil {
		t.Fatalf("SnapshotHash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("SnapshotHash should be order-sensitive (links preserve crawl order)")
	}

	h3, err := SnapshotHash([]string{"u1", "u2"})
	if err != nil {
		t.Fatalf("SnapshotHash: %v", err)
	}
	if h1 != h3 {
		t.Fatalf("SnapshotHash should be deterministic for identical input")
	}
}
