package app

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/regdataset/internal/dataset"
	"github.com/hyperifyio/regdataset/internal/export"
	"github.com/hyperifyio/regdataset/internal/llm"
	"github.com/hyperifyio/regdataset/internal/llm/llmstub"
	"github.com/hyperifyio/regdataset/internal/regulation"
)

type fakeEvidence struct{ queries []string }

func (f *fakeEvidence) Aggregate(_ context.Context, q string) string {
	f.queries = append(f.queries, q)
	return `[{"title":"T","link":"https://www.fda.gov/x","snippet":"s","site_content":"` + q + `"}]`
}

type fakeRegulation struct {
	queries []string
	fail    bool
}

func (f *fakeRegulation) Search(_ context.Context, q string) regulation.Result {
	f.queries = append(f.queries, q)
	if f.fail {
		return regulation.Result{Text: regulation.FallbackText, Fallback: true, Err: errors.New("503")}
	}
	return regulation.Result{Text: "excerpt for " + q, Hits: 1}
}

type fakeAnswerer struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeAnswerer) Answer(_ context.Context, msgs []llm.Message) (string, error) {
	f.prompts = append(f.prompts, msgs[0].Content)
	return f.reply, f.err
}

type fixture struct {
	app *App
	ev  *fakeEvidence
	reg *fakeRegulation
	ans *fakeAnswerer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := dataset.Open(filepath.Join(t.TempDir(), "app_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	f := fixture{ev: &fakeEvidence{}, reg: &fakeRegulation{}, ans: &fakeAnswerer{reply: "See 21 CFR 807.81."}}
	f.app = &App{cfg: DefaultConfig(), store: store, evidence: f.ev, regulation: f.reg, answerer: f.ans}
	return f
}

func strp(s string) *string { return &s }

func TestAddRecord_PopulatesSearchResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.app.AddRecord(ctx, Edit{
		Question:       strp("When is a 510(k) required?"),
		CFRSearchTerms: strp("premarket notification"),
		FDASearchTerms: strp("510k"),
	})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if r.CFRSearchResults != "excerpt for premarket notification" {
		t.Fatalf("cfr results = %q", r.CFRSearchResults)
	}
	if !strings.Contains(r.FDASearchResults, `"site_content":"510k"`) {
		t.Fatalf("fda results = %q", r.FDASearchResults)
	}
}

func TestUpdateRecord_OnlyChangedTermsSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.app.AddRecord(ctx, Edit{CFRSearchTerms: strp("udi"), FDASearchTerms: strp("udi")})

	if _, err := f.app.UpdateRecord(ctx, r.ID, Edit{CFRSearchTerms: strp("udi"), Question: strp("q2")}); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if len(f.reg.queries) != 1 || len(f.ev.queries) != 1 {
		t.Fatalf("unchanged terms searched again: cfr=%v fda=%v", f.reg.queries, f.ev.queries)
	}

	got, err := f.app.UpdateRecord(ctx, r.ID, Edit{FDASearchTerms: strp("labeling")})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if len(f.ev.queries) != 2 || f.ev.queries[1] != "labeling" {
		t.Fatalf("fda queries = %v", f.ev.queries)
	}
	if got.Question != "q2" || got.CFRSearchResults != "excerpt for udi" {
		t.Fatalf("record = %+v", got)
	}
}

func TestUpdateRecord_BlankTermsClearResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.app.AddRecord(ctx, Edit{FDASearchTerms: strp("udi")})
	got, err := f.app.UpdateRecord(ctx, r.ID, Edit{FDASearchTerms: strp("  ")})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if got.FDASearchResults != "" || len(f.ev.queries) != 1 {
		t.Fatalf("blank terms should clear results without searching: %+v", got)
	}
}

func TestUpdateRecord_RegulationFallbackIsStored(t *testing.T) {
	f := newFixture(t)
	f.reg.fail = true
	r, err := f.app.AddRecord(context.Background(), Edit{CFRSearchTerms: strp("udi")})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if r.CFRSearchResults != regulation.FallbackText {
		t.Fatalf("cfr results = %q", r.CFRSearchResults)
	}
}

func TestRefreshEvidence_RerunsBothSearches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.app.AddRecord(ctx, Edit{CFRSearchTerms: strp("a"), FDASearchTerms: strp("b")})
	if _, err := f.app.RefreshEvidence(ctx, r.ID); err != nil {
		t.Fatalf("RefreshEvidence: %v", err)
	}
	if len(f.reg.queries) != 2 || len(f.ev.queries) != 2 {
		t.Fatalf("cfr=%v fda=%v", f.reg.queries, f.ev.queries)
	}
}

func TestGenerateAnswer_StoresReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.app.AddRecord(ctx, Edit{Question: strp("Do I need a 510(k)?"), FDASearchTerms: strp("510k")})
	got, err := f.app.GenerateAnswer(ctx, r.ID)
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if got.LLMResponse != "See 21 CFR 807.81." {
		t.Fatalf("response = %q", got.LLMResponse)
	}
	prompt := f.ans.prompts[0]
	if !strings.HasPrefix(prompt, "FDA Search Terms: 510k\n") || !strings.HasSuffix(prompt, "\nDo I need a 510(k)?") {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestGenerateAnswer_FailureClearsResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.app.AddRecord(ctx, Edit{Question: strp("q"), LLMResponse: strp("stale")})
	f.ans.err = llm.ErrPollTimeout
	got, err := f.app.GenerateAnswer(ctx, r.ID)
	if !errors.Is(err, llm.ErrPollTimeout) {
		t.Fatalf("err = %v", err)
	}
	if got.LLMResponse != "" {
		t.Fatalf("response = %q, want empty", got.LLMResponse)
	}
}

func TestGenerateAnswer_NotConfigured(t *testing.T) {
	f := newFixture(t)
	f.app.answerer = nil
	r, _ := f.app.AddRecord(context.Background(), Edit{})
	if _, err := f.app.GenerateAnswer(context.Background(), r.ID); !errors.Is(err, ErrLLMNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.app.AddRecord(ctx, Edit{})
	if err := f.app.DeleteRecord(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, err := f.app.GetRecord(ctx, r.ID); !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("GetRecord err = %v", err)
	}
}

func TestExport_CSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.app.AddRecord(ctx, Edit{Question: strp("one")})
	f.app.AddRecord(ctx, Edit{Question: strp("two")})
	var buf bytes.Buffer
	if err := f.app.Export(ctx, export.FormatCSV, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d:\n%s", len(lines), buf.String())
	}
}

func TestNew_WiresStagesFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = filepath.Join(t.TempDir(), "new.db")
	cfg.CacheDir = t.TempDir()
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if a.evidence == nil || a.regulation == nil {
		t.Fatal("search stages not wired")
	}
	if a.answerer != nil {
		t.Fatal("answerer should be nil without assistant id")
	}

	cfg.DatasetPath = filepath.Join(t.TempDir(), "new2.db")
	cfg.AssistantID = "asst_1"
	cfg.LLMAPIKey = "sk-test"
	b, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()
	if b.answerer == nil || b.models == nil {
		t.Fatal("answerer not wired")
	}
}

func newAnsweringApp(t *testing.T, stubURL, cacheDir string, cacheAnswers bool) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DatasetPath = filepath.Join(t.TempDir(), "answers.db")
	cfg.CacheDir = cacheDir
	cfg.CacheAnswers = cacheAnswers
	cfg.LLMBaseURL = stubURL + "/v1"
	cfg.LLMAPIKey = "sk-test"
	cfg.AssistantID = "asst_1"
	cfg.PollInterval = time.Millisecond
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestGenerateAnswer_RepeatStartsNewRun(t *testing.T) {
	stub := &llmstub.Server{}
	srv := httptest.NewServer(stub)
	defer srv.Close()
	cacheDir := t.TempDir()
	ctx := context.Background()

	a := newAnsweringApp(t, srv.URL, cacheDir, false)
	r, err := a.AddRecord(ctx, Edit{Question: strp("Is a UDI required?")})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := a.GenerateAnswer(ctx, r.ID); err != nil {
			t.Fatalf("GenerateAnswer %d: %v", i, err)
		}
	}
	if got := stub.Runs(); got != 2 {
		t.Fatalf("runs = %d, want 2", got)
	}

	cached := newAnsweringApp(t, srv.URL, cacheDir, true)
	r, err = cached.AddRecord(ctx, Edit{Question: strp("Is a UDI required?")})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	for i := 0; i < 2; i++ {
		got, err := cached.GenerateAnswer(ctx, r.ID)
		if err != nil {
			t.Fatalf("GenerateAnswer %d: %v", i, err)
		}
		if got.LLMResponse != "Answer: Is a UDI required?" {
			t.Fatalf("response = %q", got.LLMResponse)
		}
	}
	if got := stub.Runs(); got != 3 {
		t.Fatalf("runs with answer cache = %d, want 3", got)
	}
}
