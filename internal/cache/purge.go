package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PurgeStats counts what Purge removed.
type PurgeStats struct {
	Pages   int
	Answers int
}

// Reset empties dir, creating it if needed.
func Reset(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Purge removes entries older than maxAge relative to now. Pages age from
// their recorded SavedAt, answers from the file modification time. A
// non-positive maxAge purges nothing.
func Purge(dir string, maxAge time.Duration, now time.Time) (PurgeStats, error) {
	var st PurgeStats
	if maxAge <= 0 {
		return st, nil
	}
	cutoff := now.Add(-maxAge)

	err := walkFiles(filepath.Join(dir, pagesDir), ".json", func(path string, _ fs.DirEntry) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var e PageEntry
		if json.Unmarshal(b, &e) != nil || !e.SavedAt.Before(cutoff) {
			return
		}
		if os.Remove(path) == nil {
			st.Pages++
		}
	})
	if err != nil {
		return st, err
	}
	err = walkFiles(filepath.Join(dir, answersDir), ".txt", func(path string, d fs.DirEntry) {
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return
		}
		if os.Remove(path) == nil {
			st.Answers++
		}
	})
	return st, err
}

// walkFiles calls fn for every regular file in dir with the given suffix. A
// missing dir is not an error.
func walkFiles(dir, suffix string, fn func(path string, d fs.DirEntry)) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, d := range entries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			continue
		}
		fn(filepath.Join(dir, d.Name()), d)
	}
	return nil
}
