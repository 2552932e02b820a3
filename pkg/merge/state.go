package merge

import (
	"github.com/mhagen/holdings-aggregator/pkg/catalog"
	"github.com/mhagen/holdings-aggregator/pkg/source"
	"github.com/mhagen/holdings-aggregator/pkg/token"
)

// sourceState tracks one source for the lifetime of a single request.
// It is mutated either by its own refill goroutine or by the engine's
// sequential select/consume steps, never both at once: the refill barrier
// separates the two phases, so no locking is needed.
type sourceState struct {
	id      string
	fetcher source.Fetcher

	// buffer holds fetched-but-unemitted holdings of the current chunk,
	// sorted per the request's sort spec.
	buffer []catalog.Holding

	// cursor is the opaque upstream value the current chunk was fetched
	// from; consumed counts its holdings already emitted (including any
	// carried in from a resume token).
	cursor   string
	consumed int

	// next resumes after the current chunk; exhausted means there is no
	// chunk beyond it.
	next      string
	exhausted bool

	fetched bool
	active  bool
	failed  bool

	// initial is the cursor this request started the source from,
	// re-emitted unchanged when the source was never fetched.
	initial token.Cursor
}

func newSourceState(fetcher source.Fetcher, initial token.Cursor) *sourceState {
	s := &sourceState{
		id:      fetcher.SourceID(),
		fetcher: fetcher,
		initial: initial,
		active:  true,
	}
	switch initial.State {
	case token.StateExhausted:
		s.active = false
	case token.StateResumable:
		s.cursor = initial.Value
		s.consumed = initial.Skip
	}
	return s
}

// needsRefill reports whether the next round must fetch for this source.
func (s *sourceState) needsRefill() bool {
	return s.active && len(s.buffer) == 0
}

// fetchCursor returns the upstream cursor for the next fetch.
func (s *sourceState) fetchCursor() string {
	if s.fetched {
		return s.next
	}
	return s.cursor
}

// applyPage installs a freshly fetched chunk. On a resumed chunk the
// holdings already delivered by earlier pages are dropped. Returns false
// when the page was empty yet claimed more data, which would loop forever;
// such a source is treated as exhausted.
func (s *sourceState) applyPage(res *source.FetchResult) bool {
	if s.fetched {
		// Advancing to a new chunk: nothing of it has been emitted yet.
		s.cursor = s.next
		s.consumed = 0
	}
	s.fetched = true

	skip := s.consumed
	if skip > len(res.Holdings) {
		// The source's dataset shrank since the token was minted.
		skip = len(res.Holdings)
	}
	s.buffer = res.Holdings[skip:]
	s.next = res.NextCursor
	s.exhausted = res.Exhausted

	sane := true
	if len(res.Holdings) == 0 && !res.Exhausted {
		s.exhausted = true
		sane = false
	}

	s.retire()
	return sane
}

// pop removes and returns the buffer-front holding.
func (s *sourceState) pop() catalog.Holding {
	h := s.buffer[0]
	s.buffer = s.buffer[1:]
	s.consumed++
	s.retire()
	return h
}

// retire deactivates the source once it is drained with nothing further.
func (s *sourceState) retire() {
	if s.active && s.fetched && s.exhausted && len(s.buffer) == 0 {
		s.active = false
	}
}

// fail removes the source from the request after a fetch error.
func (s *sourceState) fail() {
	s.failed = true
	s.active = false
}

// finalCursor returns the cursor to carry into the response token.
// Failed and exhausted sources are omitted: on a resumed request, absence
// from the token means exhausted.
func (s *sourceState) finalCursor() (token.Cursor, bool) {
	if s.failed {
		return token.Cursor{}, false
	}
	if !s.fetched {
		if !s.active {
			return token.Cursor{}, false
		}
		return s.initial, true
	}
	if !s.active {
		return token.Cursor{}, false
	}
	if len(s.buffer) > 0 {
		return token.Resumable(s.cursor, s.consumed), true
	}
	if s.exhausted {
		return token.Cursor{}, false
	}
	return token.Resumable(s.next, 0), true
}
