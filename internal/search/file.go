package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FileProvider loads search results from a local JSON file for offline
// curation and tests. The file is an array of objects:
// {"title": "...", "link": "...", "snippet": "..."}.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

// Search returns entries whose title or snippet contains any of the query's
// words, in file order.
func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	out := []Result{}
	if strings.TrimSpace(f.Path) == "" {
		return out, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return out, err
	}
	var raw []Result
	if err := json.Unmarshal(b, &raw); err != nil {
		return out, err
	}
	words := strings.Fields(strings.ToLower(query))
	for _, r := range raw {
		if r.Link == "" {
			continue
		}
		if len(words) == 0 || matchesAny(r, words) {
			r.Source = f.Name()
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func matchesAny(r Result, words []string) bool {
	hay := strings.ToLower(r.Title + " " + r.Snippet)
	for _, w := range words {
		if strings.Contains(hay, w) {
			return true
		}
	}
	return false
}
