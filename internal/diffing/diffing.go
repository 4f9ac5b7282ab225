// Package diffing computes the added/removed link sets between two
// snapshots of a site and derives the stable hash used to dedupe
// diff_queue rows.
package diffing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// DedupePreserveOrder returns items with duplicates removed, keeping
// the position of each value's first occurrence. Snapshots preserve
// page order, so this is what keeps snapshot hashes stable across
// re-crawls that happen to repeat a link.
func DedupePreserveOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, x := range items {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

// Diff returns the links present in newLinks but not oldLinks (added)
// and the links present in oldLinks but not newLinks (removed).
func Diff(oldLinks, newLinks []string) (added, removed []string) {
	oldSet := toSet(oldLinks)
	newSet := toSet(newLinks)

	for u := range newSet {
		if _, ok := oldSet[u]; !ok {
			added = append(added, u)
		}
	}
	for u := range oldSet {
		if _, ok := newSet[u]; !ok {
			removed = append(removed, u)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, x := range items {
		s[x] = struct{}{}
	}
	return s
}

// Hash computes the diff_hash for a site's added-URL set: SHA-256 of
// the canonical (sorted-key, whitespace-free) JSON encoding of
// {site, added_urls: sorted(added)}. Two diffs with the same site and
// the same added set always hash identically regardless of crawl
// order, which is what makes EnqueueDiff's unique index an effective
// dedupe guard.
func Hash(site string, added []string) (string, []string) {
	sortedAdded := append([]string(nil), added...)
	sort.Strings(sortedAdded)

	canonical, err := canonicalJSON(site, sortedAdded)
	if err != nil {
		// added is always []string and site a string; encoding cannot fail.
		panic("diffing: canonical JSON encode failed: " + err.Error())
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), sortedAdded
}

// canonicalJSON follows the shape of Python's json.dumps(obj,
// sort_keys=True, separators=(",", ":")): keys sorted, no spaces.
// encoding/json already sorts map keys and omits whitespace by
// default. The bytes are identical only for plain ASCII strings:
// encoding/json writes <, > and & as six-character Unicode escapes and
// writes non-ASCII characters unescaped.
func canonicalJSON(site string, addedURLs []string) ([]byte, error) {
	obj := map[string]any{
		"site":       site,
		"added_urls": addedURLs,
	}
	return json.Marshal(obj)
}

// SnapshotHash computes the stable hash for a full ordered link list,
// stored alongside each snapshot. Two lists hash equal only if they
// hold the same links in the same order.
func SnapshotHash(links []string) (string, error) {
	b, err := json.Marshal(links)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
