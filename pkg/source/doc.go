// Package source describes the catalog sources the aggregator fans out to
// and implements fetching one sorted page from a source over HTTP.
//
// A Registry maps source ids to endpoints; it is loaded once from a YAML
// file at startup and filtered per request by the caller's exclusion flags.
// An excluded source is never fetched and never appears in the response
// token, even when a stale resume token still references it.
//
// Fetcher is the single-page contract the merge engine drives:
//
//	res, err := fetcher.Fetch(ctx, source.FetchRequest{
//		Sort:   catalog.SortSpec{Field: catalog.SortByTitle, Direction: catalog.Ascending},
//		Cursor: "",
//		Limit:  25,
//	})
//
// The returned page is already sorted per the request's sort spec; the
// merge engine never re-sorts within a source. Any fetch error means the
// source is unavailable for the remainder of the request: fetches are
// strictly single-attempt, there is no retry.
package source
