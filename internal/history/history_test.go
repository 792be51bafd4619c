package history

import (
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := openTestStore(t)

	for i, q := range []string{"perovskite solar cells", "CRISPR delivery", "sparse attention"} {
		if err := s.Add(q, "semanticscholar", i+1); err != nil {
			t.Fatalf("Add(%q): %v", q, err)
		}
	}

	records, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent(): %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Most recent first.
	if records[0].Query != "sparse attention" || records[1].Query != "CRISPR delivery" {
		t.Errorf("order = %q, %q", records[0].Query, records[1].Query)
	}
	if records[0].ResultCount != 3 {
		t.Errorf("ResultCount = %d", records[0].ResultCount)
	}
	if records[0].Timestamp.IsZero() {
		t.Error("timestamp not round-tripped")
	}
}

func TestRetentionCap(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < MaxRecords+20; i++ {
		if err := s.Add(fmt.Sprintf("query %d", i), "semanticscholar", 0); err != nil {
			t.Fatalf("Add(): %v", err)
		}
	}

	records, err := s.Recent(MaxRecords * 2)
	if err != nil {
		t.Fatalf("Recent(): %v", err)
	}
	if len(records) != MaxRecords {
		t.Errorf("got %d records, want cap %d", len(records), MaxRecords)
	}
	// The survivors must be the newest ones.
	if records[0].Query != fmt.Sprintf("query %d", MaxRecords+19) {
		t.Errorf("newest = %q", records[0].Query)
	}
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	for _, q := range []string{"graphene batteries", "solid state batteries", "quantum dots"} {
		if err := s.Add(q, "semanticscholar", 0); err != nil {
			t.Fatalf("Add(): %v", err)
		}
	}

	records, err := s.Search("batteries")
	if err != nil {
		t.Fatalf("Search(): %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Query != "solid state batteries" {
		t.Errorf("order = %q", records[0].Query)
	}

	// LIKE metacharacters in the keyword must match literally.
	if err := s.Add("100% efficiency claims", "semanticscholar", 0); err != nil {
		t.Fatal(err)
	}
	records, err = s.Search("100%")
	if err != nil {
		t.Fatalf("Search(): %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records for escaped keyword, want 1", len(records))
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add("anything", "semanticscholar", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear(): %v", err)
	}
	records, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent(): %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records after Clear()", len(records))
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if err := s.Add("persisted", "semanticscholar", 7); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	records, err := s2.Recent(1)
	if err != nil {
		t.Fatalf("Recent(): %v", err)
	}
	if len(records) != 1 || records[0].Query != "persisted" || records[0].ResultCount != 7 {
		t.Errorf("records = %+v", records)
	}
}
