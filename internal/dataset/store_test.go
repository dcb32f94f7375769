package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dataset_test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stepClock returns a strictly increasing time on every call.
func stepClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func strp(s string) *string { return &s }

func TestCreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("unexpected record %+v", r)
	}
	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != r.ID || got.Question != "" || got.LLMResponse != "" {
		t.Fatalf("Get = %+v", got)
	}
}

func TestListInCreationOrder(t *testing.T) {
	s := newTestStore(t)
	s.now = stepClock()
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		r, err := s.Create(ctx)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, r.ID)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	for i, r := range list {
		if r.ID != ids[i] {
			t.Fatalf("list[%d] = %s, want %s", i, r.ID, ids[i])
		}
	}
}

func TestUpdateOnlyChangesSetFields(t *testing.T) {
	s := newTestStore(t)
	s.now = stepClock()
	ctx := context.Background()
	r, _ := s.Create(ctx)
	if _, err := s.Update(ctx, r.ID, Patch{Question: strp("What is a 510(k)?"), FDASearchTerms: strp("510k clearance")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Update(ctx, r.ID, Patch{LLMResponse: strp("A premarket notification.")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Question != "What is a 510(k)?" || got.FDASearchTerms != "510k clearance" {
		t.Fatalf("earlier fields lost: %+v", got)
	}
	if got.LLMResponse != "A premarket notification." {
		t.Fatalf("response = %q", got.LLMResponse)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at %s not after created_at %s", got.UpdatedAt, got.CreatedAt)
	}
}

func TestUpdateEmptyPatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r, _ := s.Create(ctx)
	got, err := s.Update(ctx, r.ID, Patch{})
	if err != nil || !got.UpdatedAt.Equal(r.UpdatedAt) {
		t.Fatalf("Update(empty) = %+v, %v", got, err)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if _, err := s.Update(ctx, "missing", Patch{Question: strp("q")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update err = %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r, _ := s.Create(ctx)
	if err := s.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 0 {
		t.Fatalf("list after delete = %d", len(list))
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, _ := s.Create(context.Background())
	s.Close()
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(context.Background(), r.ID); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}
