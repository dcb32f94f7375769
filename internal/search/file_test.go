package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileProvider_MatchesWordsInOrder(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hits.json")
	data := `[
  {"title": "Drug Recalls", "link": "https://www.fda.gov/drugs/recalls", "snippet": "recall list"},
  {"title": "Food Safety", "link": "https://www.fda.gov/food", "snippet": "guidance"},
  {"title": "Device Recalls", "link": "https://www.fda.gov/devices/recalls", "snippet": ""},
  {"title": "No link", "link": "", "snippet": "recall"}
]`
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	f := &FileProvider{Path: p}
	got, err := f.Search(context.Background(), "Recall", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Drug Recalls" || got[1].Title != "Device Recalls" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Source != "file" {
		t.Fatalf("expected source to be set, got %q", got[0].Source)
	}
}

func TestFileProvider_EmptyPath(t *testing.T) {
	f := &FileProvider{}
	got, err := f.Search(context.Background(), "x", 1)
	if err == nil {
		t.Fatalf("expected error for empty path")
	}
	if got == nil {
		t.Fatalf("expected non-nil empty slice")
	}
}
