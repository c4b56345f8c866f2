package engine

import (
	"context"
	"fmt"

	"fast-frontend/internal/store"
)

// Page is one window of a listing.
type Page struct {
	Number      int         `json:"number"`
	NumPages    int         `json:"num_pages"`
	Size        int         `json:"size"`
	Total       int         `json:"total"`
	HasPrevious bool        `json:"has_previous"`
	HasNext     bool        `json:"has_next"`
	Previous    int         `json:"previous,omitempty"`
	Next        int         `json:"next,omitempty"`
	Rows        []store.Row `json:"rows"`
}

// Paginate executes the listing and returns page number of size rows.
// Out-of-range page numbers clamp to the first or last page. A size of zero
// or less returns everything on one page.
func (q *Query) Paginate(ctx context.Context, number, size int) (*Page, error) {
	total, err := q.storage.Count(ctx, q.list)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", q.cfg.Entity.Key(), err)
	}

	numPages := 1
	if size > 0 && total > 0 {
		numPages = (total + size - 1) / size
	}
	number = clamp(number, 1, numPages)

	list := q.list.Clone()
	if size > 0 {
		list.Limit = size
		list.Offset = (number - 1) * size
	}
	rs, err := q.storage.Query(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.cfg.Entity.Key(), err)
	}

	rows := rs.Rows
	if rows == nil {
		rows = []store.Row{}
	}
	p := &Page{
		Number:      number,
		NumPages:    numPages,
		Size:        size,
		Total:       total,
		HasPrevious: number > 1,
		HasNext:     number < numPages,
		Rows:        rows,
	}
	if p.HasPrevious {
		p.Previous = number - 1
	}
	if p.HasNext {
		p.Next = number + 1
	}
	return p, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
