// Package searchtest provides an in-memory search gateway for tests.
package searchtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nadzzz/doctech/internal/message"
	"github.com/nadzzz/doctech/internal/search"
)

// Index answers queries containing a registered key with its match.
type Index struct {
	mu      sync.Mutex
	matches map[string]search.Match
	queries []string

	// Err fails every search when set.
	Err error
}

var _ search.Gateway = (*Index)(nil)

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{matches: make(map[string]search.Match)}
}

// Add registers match for queries containing key.
func (i *Index) Add(key string, match search.Match) *Index {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.matches[strings.ToLower(key)] = match
	return i
}

// Search implements search.Gateway.
func (i *Index) Search(ctx context.Context, query string) (search.Match, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.queries = append(i.queries, query)

	if err := ctx.Err(); err != nil {
		return search.Match{}, fmt.Errorf("%w: %w", message.ErrSearchUnavailable, err)
	}
	if i.Err != nil {
		return search.Match{}, i.Err
	}
	q := strings.ToLower(query)
	for key, m := range i.matches {
		if strings.Contains(q, key) {
			return m, nil
		}
	}
	return search.Match{}, fmt.Errorf("no results for %q: %w", query, message.ErrNoMatch)
}

// Queries returns the queries received so far.
func (i *Index) Queries() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.queries...)
}
