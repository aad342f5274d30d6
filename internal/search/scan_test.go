package search

import (
	"context"
	"testing"

	"peaksuite/api/internal/thread"
)

type fakeLister struct {
	summaries []thread.Summary
}

func (f *fakeLister) List(_ context.Context, _ string, includeArchived bool, _ string) ([]thread.Summary, error) {
	if includeArchived {
		return f.summaries, nil
	}
	var active []thread.Summary
	for _, s := range f.summaries {
		if !s.IsArchived {
			active = append(active, s)
		}
	}
	return active, nil
}

func testSummaries() []thread.Summary {
	return []thread.Summary{
		{ThreadID: "t1", Title: "Q1 Tax Planning", ClientName: "Acme Corp"},
		{ThreadID: "t2", Title: "Payroll question", ClientName: "Globex"},
		{ThreadID: "t3", Title: "Q1 wrap-up", ClientName: "Acme Corp", IsArchived: true},
	}
}

func TestScanMatchesTitleAndClient(t *testing.T) {
	scan := NewScan(&fakeLister{summaries: testSummaries()})
	ctx := context.Background()

	results, total, err := scan.Search(ctx, Query{Text: "q1", Owner: "jane.doe@firm.com", IncludeArchived: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("expected 2 matches, got total=%d len=%d", total, len(results))
	}

	results, _, err = scan.Search(ctx, Query{Text: "acme", Owner: "jane.doe@firm.com", IncludeArchived: false})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ThreadID != "t1" {
		t.Errorf("client-name match failed: %+v", results)
	}
}

func TestScanExcludesArchivedByDefault(t *testing.T) {
	scan := NewScan(&fakeLister{summaries: testSummaries()})

	results, _, err := scan.Search(context.Background(), Query{Text: "q1", Owner: "jane.doe@firm.com"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.IsArchived {
			t.Errorf("archived thread leaked into default search: %+v", r)
		}
	}
}

func TestScanPagination(t *testing.T) {
	scan := NewScan(&fakeLister{summaries: testSummaries()})
	ctx := context.Background()

	results, total, err := scan.Search(ctx, Query{Owner: "jane.doe@firm.com", IncludeArchived: true, Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 3 || len(results) != 2 {
		t.Errorf("limit: expected total=3 len=2, got total=%d len=%d", total, len(results))
	}

	results, _, err = scan.Search(ctx, Query{Owner: "jane.doe@firm.com", IncludeArchived: true, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("offset: expected 1 result, got %d", len(results))
	}

	results, _, err = scan.Search(ctx, Query{Owner: "jane.doe@firm.com", IncludeArchived: true, Offset: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("offset past end: expected 0 results, got %d", len(results))
	}
}

func TestScanClampsNegativePagination(t *testing.T) {
	scan := NewScan(&fakeLister{summaries: testSummaries()})
	ctx := context.Background()

	results, total, err := scan.Search(ctx, Query{Owner: "jane.doe@firm.com", IncludeArchived: true, Offset: -1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 3 || len(results) != 3 {
		t.Errorf("negative offset: expected all 3 results, got total=%d len=%d", total, len(results))
	}

	results, _, err = scan.Search(ctx, Query{Owner: "jane.doe@firm.com", IncludeArchived: true, Limit: -5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("negative limit: expected default page of 3, got %d", len(results))
	}
}
