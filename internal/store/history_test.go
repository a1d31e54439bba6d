package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)

func testEntry(traceID, fingerprint string, offset time.Duration) Entry {
	return Entry{
		TraceID:     traceID,
		Query:       "MATCH (p:Person) RETURN p",
		SQL:         `SELECT t0.* FROM "people" t0`,
		Dialect:     "basic",
		Fingerprint: fingerprint,
		CreatedAt:   epoch.Add(offset),
	}
}

func TestRecordAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := testEntry("trace-1", "fp-a", 0)
	want.Cached = true
	if err := s.Record(ctx, want); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	got, err := s.Get(ctx, "trace-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	want.Seq, want.CreatedAt = got.Seq, got.CreatedAt
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestRecord_DuplicateTraceIDIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := testEntry("trace-1", "fp-a", 0)
	second := testEntry("trace-1", "fp-b", time.Second)
	second.SQL = "SELECT 1"

	if err := s.Record(ctx, first); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := s.Record(ctx, second); err != nil {
		t.Fatalf("duplicate Record() should be a no-op, got %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	got, _ := s.Get(ctx, "trace-1")
	if got.SQL != first.SQL {
		t.Errorf("SQL = %q, want first write %q", got.SQL, first.SQL)
	}
}

func TestRecord_RequiresTraceID(t *testing.T) {
	s := createTestStore(t)
	if err := s.Record(context.Background(), Entry{Query: "q"}); err == nil {
		t.Error("Record() without trace ID should fail")
	}
}

func TestRecord_DefaultsCreatedAt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := s.Record(ctx, Entry{TraceID: "t"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	got, err := s.Get(ctx, "t")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want after %v", got.CreatedAt, before)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRecent_NewestFirstAndFiltered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// same timestamp for all: ordering must come from seq
	for _, e := range []Entry{
		testEntry("a", "fp-1", 0),
		testEntry("b", "fp-2", 0),
		testEntry("c", "fp-1", 0),
	} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) failed: %v", e.TraceID, err)
		}
	}

	all, err := s.Recent(ctx, 10, "")
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if got := traceIDs(all); !equal(got, []string{"c", "b", "a"}) {
		t.Errorf("Recent() = %v, want [c b a]", got)
	}

	limited, _ := s.Recent(ctx, 2, "")
	if got := traceIDs(limited); !equal(got, []string{"c", "b"}) {
		t.Errorf("Recent(2) = %v, want [c b]", got)
	}

	filtered, _ := s.Recent(ctx, 10, "fp-1")
	if got := traceIDs(filtered); !equal(got, []string{"c", "a"}) {
		t.Errorf("Recent(fp-1) = %v, want [c a]", got)
	}
}

func TestRecent_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	for _, limit := range []int{0, 5} {
		got, err := s.Recent(context.Background(), limit, "")
		if err != nil {
			t.Fatalf("Recent(%d) failed: %v", limit, err)
		}
		if got == nil {
			t.Errorf("Recent(%d) returned nil, want empty slice", limit)
		}
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s1.Record(ctx, testEntry("persisted", "fp", 0)); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, "persisted"); err != nil {
		t.Errorf("Get() after reopen: %v", err)
	}
}

func traceIDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.TraceID
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
