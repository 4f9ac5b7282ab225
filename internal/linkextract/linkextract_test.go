package linkextract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeNode drops a shell script standing in for `node index.js`
// so tests never depend on a real Node install.
func writeFakeNode(t *testing.T, dir, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body
	path := filepath.Join(dir, "index.js")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake index.js: %v", err)
	}
}

func TestFetchLinksParsesStdoutLines(t *testing.T) {
	dir := t.TempDir()
	writeFakeNode(t, dir, `echo "https://acme.example/jobs/1"
echo ""
echo "https://acme.example/jobs/2"
`)

	c := NewClient("/bin/sh", dir, time.Second)
	res, err := c.FetchLinks(context.Background(), "https://acme.example/careers")
	if err != nil {
		t.Fatalf("FetchLinks: %v", err)
	}
	want := []string{"https://acme.example/jobs/1", "https://acme.example/jobs/2"}
	if len(res.Links) != 2 || res.Links[0] != want[0] || res.Links[1] != want[1] {
		t.Fatalf("Links = %v, want %v", res.Links, want)
	}
}

func TestFetchLinksNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeFakeNode(t, dir, `echo "boom" >&2
exit 1
`)

	c := NewClient("/bin/sh", dir, time.Second)
	_, err := c.FetchLinks(context.Background(), "https://acme.example/careers")
	if err == nil {
		t.Fatalf("expected error on nonzero exit")
	}
}

func TestFetchLinksTimeout(t *testing.T) {
	dir := t.TempDir()
	writeFakeNode(t, dir, `sleep 5
`)

	c := NewClient("/bin/sh", dir, 50*time.Millisecond)
	_, err := c.FetchLinks(context.Background(), "https://acme.example/careers")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
