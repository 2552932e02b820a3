package aggregator

import (
	"errors"
	"fmt"

	"github.com/mhagen/holdings-aggregator/pkg/catalog"
)

// ErrInvalidRequest marks requests the caller got wrong: non-positive page
// size, unknown sort field or direction. The transport layer maps it to its
// bad-request response; everything else is an internal failure.
var ErrInvalidRequest = errors.New("invalid request")

// Request is one aggregation call.
type Request struct {
	// PageSize is the maximum number of holdings to return. Required and
	// positive; values above the service maximum are clamped.
	PageSize int `json:"pageSize"`

	// SortField and SortDirection order the merged page. Empty values
	// default to title ascending.
	SortField     catalog.SortField     `json:"sortField,omitempty"`
	SortDirection catalog.SortDirection `json:"sortDirection,omitempty"`

	// Exclude removes sources from this request entirely: they are not
	// fetched and do not appear in the response token, even when a stale
	// resume token still references them.
	Exclude map[string]bool `json:"exclude,omitempty"`

	// Filter narrows holdings at every source.
	Filter catalog.Filter `json:"filter,omitempty"`

	// PageToken resumes a previous aggregation. Absent or malformed
	// tokens restart every source from its default position.
	PageToken string `json:"pageToken,omitempty"`
}

// Response is one merged page.
type Response struct {
	// Holdings is globally sorted and deduplicated, at most PageSize long.
	Holdings []catalog.Holding `json:"holdings"`

	// NextPageToken resumes after this page; absent when every source is
	// exhausted.
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// normalize applies defaults and limits, returning the effective page size
// and sort spec or ErrInvalidRequest.
func (r *Request) normalize(maxPageSize int) (int, catalog.SortSpec, error) {
	if r.PageSize <= 0 {
		return 0, catalog.SortSpec{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidRequest, r.PageSize)
	}
	pageSize := r.PageSize
	if maxPageSize > 0 && pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	spec := catalog.SortSpec{Field: r.SortField, Direction: r.SortDirection}
	if spec.Field == "" {
		spec.Field = catalog.SortByTitle
	}
	if spec.Direction == "" {
		spec.Direction = catalog.Ascending
	}
	if err := spec.Validate(); err != nil {
		return 0, catalog.SortSpec{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return pageSize, spec, nil
}
