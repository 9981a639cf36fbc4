// Package search defines the semantic search gateway the resolver queries.
package search

import "context"

// Match is the top-ranked hit for a query.
type Match struct {
	// SourceURL references the matched document.
	SourceURL string

	// FileName is the document's human-readable file name.
	FileName string

	// DocumentID is the index's identifier for the document.
	DocumentID string

	Score float64

	// Pages lists the 1-based pages of the hit's bounding boxes in index order.
	// Empty when the index reported no location.
	Pages []int
}

// FirstPage returns the first located page, or false if there is none.
func (m Match) FirstPage() (int, bool) {
	for _, p := range m.Pages {
		if p >= 1 {
			return p, true
		}
	}
	return 0, false
}

// Gateway queries a semantic index.
//
// Search returns the top-ranked match. Zero results wrap message.ErrNoMatch;
// transport failures, timeouts and rejected calls wrap
// message.ErrSearchUnavailable.
type Gateway interface {
	Search(ctx context.Context, query string) (Match, error)
}
