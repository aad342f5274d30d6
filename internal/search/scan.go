package search

import (
	"context"
	"strings"

	"peaksuite/api/internal/thread"
)

type threadLister interface {
	List(ctx context.Context, owner string, includeArchived bool, clientFilter string) ([]thread.Summary, error)
}

// Scan is the fallback searcher: it lists the owner's threads through the
// repository and substring-matches in memory. Slower than Meilisearch but
// always available, and fine at the per-workspace thread counts we see.
type Scan struct {
	threads threadLister
}

func NewScan(threads threadLister) *Scan {
	return &Scan{threads: threads}
}

func (s *Scan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	summaries, err := s.threads.List(ctx, q.Owner, q.IncludeArchived, "")
	if err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	var matched []Result
	for _, s := range summaries {
		if needle != "" &&
			!strings.Contains(strings.ToLower(s.Title), needle) &&
			!strings.Contains(strings.ToLower(s.ClientName), needle) &&
			!strings.Contains(strings.ToLower(s.ProjectType), needle) {
			continue
		}
		matched = append(matched, Result{
			ThreadID:    s.ThreadID,
			Title:       s.Title,
			ClientName:  s.ClientName,
			ProjectType: s.ProjectType,
			Status:      s.Status,
			Path:        s.Path,
			IsArchived:  s.IsArchived,
		})
	}

	// Query values come straight off the request; negatives must not reach
	// the slice expression.
	total := len(matched)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if offset >= total {
		return []Result{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
