// Package token implements the opaque composite page token that lets a
// caller resume aggregation across independently paginated catalog sources.
//
// A token is a versioned mapping from source id to that source's resume
// cursor, serialized as JSON and base64url-encoded. Callers must treat the
// result as an opaque string: its internal structure is not part of the API
// and may change between releases.
//
// Each cursor carries an explicit three-way state:
//
//   - not_started: the source has never been fetched in this session
//   - resumable:   more data; the opaque upstream cursor plus a skip count
//   - exhausted:   the source has nothing further for this session
//
// Example usage:
//
//	tok, err := token.Encode(map[string]token.Cursor{
//		"central": token.Resumable("offset:40", 3),
//		"east":    token.Exhausted(),
//	})
//
//	cursors, err := token.Decode(tok)
//	if errors.Is(err, token.ErrMalformedToken) {
//		// treat exactly like an absent token: restart from default
//	}
//
// Encode returns the empty string when no source is live; that is the
// no-more-data marker and must be surfaced to callers as an absent token.
package token
