package source

import (
	"context"

	"github.com/mhagen/holdings-aggregator/pkg/catalog"
)

// FetchRequest asks a source for one sorted page of holdings.
type FetchRequest struct {
	// Sort is the ordering the page must already satisfy.
	Sort catalog.SortSpec

	// Filter narrows the holdings before pagination.
	Filter catalog.Filter

	// Cursor is the source's opaque resume value; empty means start from
	// the source's default position.
	Cursor string

	// Limit is the maximum number of holdings in the page.
	Limit int
}

// FetchResult is one page of a source's holdings.
type FetchResult struct {
	// Holdings is the page, sorted per the request's sort spec.
	Holdings []catalog.Holding

	// NextCursor resumes enumeration after this page. Meaningless when
	// Exhausted is set.
	NextCursor string

	// Exhausted reports the source has no data beyond this page.
	Exhausted bool
}

// Fetcher fetches pages from one catalog source. Implementations make a
// single attempt per call; an error means the source is unavailable for
// the remainder of the request.
type Fetcher interface {
	// SourceID returns the id of the source this fetcher serves.
	SourceID() string

	// Fetch retrieves one page.
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}
