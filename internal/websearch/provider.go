// Package websearch provides web search providers that return a plain-text summary of
// the top results for a query.
package websearch

import (
	"context"
	"errors"
)

// ErrNoResults is returned when the provider answered but had nothing usable.
var ErrNoResults = errors.New("websearch: no results")

// Provider searches the web and returns a pre-summarized snippet blob.
type Provider interface {
	Search(ctx context.Context, query string) (string, error)
}
