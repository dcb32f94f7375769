package evidence

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func mustSize(t *testing.T, s Set) int {
	t.Helper()
	n, err := s.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	return n
}

func sampleSet(lengths ...int) Set {
	s := make(Set, len(lengths))
	for i, n := range lengths {
		s[i] = Item{
			Title:   "Title " + string(rune('A'+i)),
			Link:    "https://www.fda.gov/item/" + string(rune('a'+i)),
			Snippet: "snippet",
			Content: strings.Repeat("a", n),
		}
	}
	return s
}

func TestTrim_NoopWhenWithinBudget(t *testing.T) {
	s := sampleSet(100, 50, 10)
	before := append(Set(nil), s...)
	size := mustSize(t, s)
	rep, err := Trim(s, size)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if rep.Steps != 0 || rep.Before != size || rep.After != size {
		t.Fatalf("expected no-op, got %+v", rep)
	}
	for i := range s {
		if s[i] != before[i] {
			t.Fatalf("item %d changed: %+v", i, s[i])
		}
	}
}

func TestTrim_LargestFirstByExactExcess(t *testing.T) {
	s := sampleSet(100, 50, 10)
	budget := mustSize(t, s) - 60
	rep, err := Trim(s, budget)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if rep.Steps != 1 {
		t.Fatalf("expected a single trim step, got %d", rep.Steps)
	}
	if got := len(s[0].Content); got != 40 {
		t.Fatalf("largest item should lose exactly the excess: len=%d, want 40", got)
	}
	if len(s[1].Content) != 50 || len(s[2].Content) != 10 {
		t.Fatalf("other items must be untouched: %d, %d", len(s[1].Content), len(s[2].Content))
	}
	if rep.After != budget {
		t.Fatalf("expected size exactly at budget, got %d want %d", rep.After, budget)
	}
}

func TestTrim_EmptiesWhenContentNotLongerThanExcess(t *testing.T) {
	s := sampleSet(30, 20, 10)
	budget := mustSize(t, s) - 45
	if _, err := Trim(s, budget); err != nil {
		t.Fatalf("trim: %v", err)
	}
	// Step 1 empties the 30-byte item (excess 45). Step 2 removes the
	// remaining 15 bytes of excess from the 20-byte item.
	if s[0].Content != "" {
		t.Fatalf("expected first item emptied, got %d bytes", len(s[0].Content))
	}
	if len(s[1].Content) != 5 {
		t.Fatalf("expected second item trimmed to 5 bytes, got %d", len(s[1].Content))
	}
	if len(s[2].Content) != 10 {
		t.Fatalf("smallest item should be untouched, got %d", len(s[2].Content))
	}
}

func TestTrim_TieBreaksOnLowestIndex(t *testing.T) {
	s := sampleSet(40, 40, 40)
	budget := mustSize(t, s) - 10
	if _, err := Trim(s, budget); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if len(s[0].Content) != 30 || len(s[1].Content) != 40 || len(s[2].Content) != 40 {
		t.Fatalf("expected first of equal items trimmed: %d %d %d", len(s[0].Content), len(s[1].Content), len(s[2].Content))
	}
}

func TestTrim_BoundHoldsWithEscapedContent(t *testing.T) {
	content := strings.Repeat("say \"recall\"\n<b>&</b>\t", 200)
	for _, cut := range []int{1, 7, 99, 1000, 5000} {
		s := Set{
			{Title: "a", Link: "https://www.fda.gov/a", Snippet: "s", Content: content},
			{Title: "b", Link: "https://www.fda.gov/b", Snippet: "s", Content: content[:len(content)/3]},
		}
		budget := mustSize(t, s) - cut
		rep, err := Trim(s, budget)
		if err != nil {
			t.Fatalf("trim: %v", err)
		}
		if rep.After > budget || mustSize(t, s) > budget {
			t.Fatalf("cut %d: size %d exceeds budget %d", cut, rep.After, budget)
		}
	}
}

func TestTrim_NeverAltersMetadata(t *testing.T) {
	s := sampleSet(500, 400, 300)
	meta := make([][3]string, len(s))
	for i, it := range s {
		meta[i] = [3]string{it.Title, it.Link, it.Snippet}
	}
	if _, err := Trim(s, mustSize(t, s)/2); err != nil {
		t.Fatalf("trim: %v", err)
	}
	for i, it := range s {
		if [3]string{it.Title, it.Link, it.Snippet} != meta[i] {
			t.Fatalf("item %d metadata changed: %+v", i, it)
		}
	}
}

func TestTrim_NeverSplitsMultibyteRunes(t *testing.T) {
	s := Set{{Title: "t", Link: "https://fda.gov/x", Snippet: "", Content: strings.Repeat("é", 100)}}
	budget := mustSize(t, s) - 3
	rep, err := Trim(s, budget)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if !utf8.ValidString(s[0].Content) {
		t.Fatalf("content split a rune: %q", s[0].Content)
	}
	if got := utf8.RuneCountInString(s[0].Content); got != 97 {
		t.Fatalf("expected 97 characters kept, got %d", got)
	}
	if rep.After > budget {
		t.Fatalf("size %d over budget %d", rep.After, budget)
	}
}

func TestTrim_ExhaustedWhenMetadataAloneExceedsBudget(t *testing.T) {
	s := sampleSet(100, 100)
	s[0].Title = strings.Repeat("long title ", 50)
	rep, err := Trim(s, 50)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if !rep.Exhausted {
		t.Fatalf("expected exhausted report, got %+v", rep)
	}
	for i := range s {
		if s[i].Content != "" {
			t.Fatalf("item %d content not emptied", i)
		}
	}
	if !strings.HasPrefix(s[0].Title, "long title") {
		t.Fatalf("title must survive")
	}
}

func TestTruncateRunes(t *testing.T) {
	s := "héllo世界"
	cases := []struct {
		n    int
		want string
	}{
		{7, s},
		{100, s},
		{0, ""},
		{-1, ""},
		{1, "h"},
		{2, "hé"},
		{5, "héllo"},
		{6, "héllo世"},
	}
	for _, c := range cases {
		got := TruncateRunes(s, c.n)
		if got != c.want {
			t.Fatalf("TruncateRunes(%d) = %q, want %q", c.n, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("TruncateRunes(%d) produced invalid UTF-8", c.n)
		}
	}
}

func TestTrim_MeasuresContentInCharacters(t *testing.T) {
	// 100 ASCII characters (100 bytes) against 60 CJK characters (180 bytes):
	// the ASCII item has more characters, so it is the one trimmed.
	s := Set{
		{Title: "a", Link: "https://www.fda.gov/a", Snippet: "", Content: strings.Repeat("a", 100)},
		{Title: "b", Link: "https://www.fda.gov/b", Snippet: "", Content: strings.Repeat("日", 60)},
	}
	budget := mustSize(t, s) - 20
	rep, err := Trim(s, budget)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if got := utf8.RuneCountInString(s[0].Content); got != 80 {
		t.Fatalf("ascii item chars = %d, want 80", got)
	}
	if got := utf8.RuneCountInString(s[1].Content); got != 60 {
		t.Fatalf("cjk item chars = %d, want 60", got)
	}
	if rep.Steps != 1 || rep.After != budget {
		t.Fatalf("report = %+v, budget %d", rep, budget)
	}
}

func TestSetMarshal_Shape(t *testing.T) {
	if got := (Set{}).String(); got != EmptySet {
		t.Fatalf("empty set = %q", got)
	}
	var nilSet Set
	if got := nilSet.String(); got != EmptySet {
		t.Fatalf("nil set = %q", got)
	}
	s := Set{{Title: "T & C", Link: "https://www.fda.gov/a?b=1&c=2", Snippet: "<i>x</i>", Content: "é"}}
	want := `[{"title":"T & C","link":"https://www.fda.gov/a?b=1&c=2","snippet":"<i>x</i>","site_content":"é"}]`
	if got := s.String(); got != want {
		t.Fatalf("got %s\nwant %s", got, want)
	}
}
