package store

import (
	"testing"

	"github.com/Jbase16/AraUltra/internal/domain/finding"
	"github.com/Jbase16/AraUltra/internal/domain/issue"
)

func fakeIssue(title, asset string) issue.Issue {
	return issue.Issue{
		Title:    title,
		Type:     "open_port_indicator",
		Severity: finding.SeverityMedium,
		Asset:    asset,
		Target:   asset,
	}
}

func TestIssuesStoreReplaceAllSupersedes(t *testing.T) {
	s := NewIssuesStore()
	s.BulkAdd([]issue.Issue{
		fakeIssue("old issue A", "a.example.com"),
		fakeIssue("old issue B", "b.example.com"),
	})

	notifications := 0
	s.Subscribe(func() { notifications++ })

	s.ReplaceAll([]issue.Issue{fakeIssue("recomputed issue", "a.example.com")})

	got := s.GetAll()
	if len(got) != 1 || got[0].Title != "recomputed issue" {
		t.Errorf("ReplaceAll left %+v, want only the recomputed issue", got)
	}
	if notifications != 1 {
		t.Errorf("ReplaceAll fired %d notifications, want 1", notifications)
	}
}

func TestIssuesStoreReplaceAllWithEmptyClears(t *testing.T) {
	s := NewIssuesStore()
	s.Add(fakeIssue("stale", "a.example.com"))

	s.ReplaceAll(nil)

	if got := s.GetAll(); len(got) != 0 {
		t.Errorf("ReplaceAll(nil) left %d issues, want 0", len(got))
	}
}

func TestIssuesStoreGetByAsset(t *testing.T) {
	s := NewIssuesStore()
	s.BulkAdd([]issue.Issue{
		fakeIssue("issue A", "a.example.com"),
		fakeIssue("issue B", "b.example.com"),
		fakeIssue("issue C", "a.example.com"),
	})

	got := s.GetByAsset("a.example.com")
	if len(got) != 2 {
		t.Fatalf("GetByAsset returned %d issues, want 2", len(got))
	}
	for _, i := range got {
		if i.Asset != "a.example.com" {
			t.Errorf("GetByAsset leaked issue for %q", i.Asset)
		}
	}

	if got := s.GetByAsset("missing.example.com"); len(got) != 0 {
		t.Errorf("GetByAsset for unknown asset returned %d issues, want 0", len(got))
	}
}

func TestIssuesStoreReplaceAllCopiesInput(t *testing.T) {
	s := NewIssuesStore()
	input := []issue.Issue{fakeIssue("original", "a.example.com")}
	s.ReplaceAll(input)

	input[0].Title = "mutated"

	if got := s.GetAll()[0].Title; got != "original" {
		t.Errorf("store aliased caller slice: title = %q", got)
	}
}
