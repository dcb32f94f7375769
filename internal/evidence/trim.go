package evidence

import (
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// TrimReport describes what Trim did.
type TrimReport struct {
	Before int // serialized size before trimming
	After  int // serialized size after trimming
	Steps  int // number of single-item trims applied
	// Exhausted is set when every item's content was emptied and the set is
	// still over budget because of titles, links and snippets alone.
	Exhausted bool
}

// Trim shrinks item contents in place until s serializes to at most budget
// bytes. Each step picks the item with the most characters of content (the
// first one on ties) and keeps its first length-excess characters, where the
// excess is the current overshoot in bytes, or empties it when the content has
// no more characters than the excess. Titles, links and snippets are never
// modified.
func Trim(s Set, budget int) (TrimReport, error) {
	size, err := s.Size()
	if err != nil {
		return TrimReport{}, err
	}
	rep := TrimReport{Before: size, After: size}
	for size > budget {
		idx := longestContent(s)
		if idx < 0 {
			rep.Exhausted = true
			break
		}
		log.Debug().Int("length", size).Int("budget", budget).Int("item", idx).Msg("trimming results")
		excess := size - budget
		content := s[idx].Content
		if n := utf8.RuneCountInString(content); n <= excess {
			s[idx].Content = ""
		} else {
			s[idx].Content = TruncateRunes(content, n-excess)
		}
		rep.Steps++
		if size, err = s.Size(); err != nil {
			return rep, err
		}
		rep.After = size
	}
	return rep, nil
}

// longestContent returns the index of the first item whose content has the
// most characters, or -1 when all contents are empty.
func longestContent(s Set) int {
	idx, longest := -1, 0
	for i := range s {
		if n := utf8.RuneCountInString(s[i].Content); n > longest {
			idx, longest = i, n
		}
	}
	return idx
}

// TruncateRunes returns the first n characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	seen := 0
	for i := range s {
		if seen == n {
			return s[:i]
		}
		seen++
	}
	return s
}
