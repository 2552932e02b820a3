package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mhagen/holdings-aggregator/pkg/catalog"
	"github.com/mhagen/holdings-aggregator/pkg/source"
	"github.com/mhagen/holdings-aggregator/pkg/token"
)

// Prometheus metrics for merge runs.
var (
	mergeRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_merge_rounds_total",
		Help: "Total refill/select rounds across all merge runs",
	})

	dedupFoldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_dedup_folds_total",
		Help: "Duplicate holdings folded into an existing record",
	})

	sourcesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_sources_dropped_total",
		Help: "Sources dropped mid-request after a fetch failure",
	}, []string{"source"})

	holdingsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_holdings_emitted_total",
		Help: "Distinct holdings emitted across all merge runs",
	})
)

// Params configures one merge run.
type Params struct {
	// Sort orders both the cross-source merge and every source's pages.
	Sort catalog.SortSpec

	// Locale selects the collation for title comparison; empty means
	// English.
	Locale string

	// Filter is forwarded to every source.
	Filter catalog.Filter

	// PageSize is the maximum number of holdings in the output page.
	PageSize int

	// ChunkSize is the page size requested from each source per fetch.
	// Defaults to PageSize.
	ChunkSize int

	// MaxConcurrency caps parallel fetches within a refill round.
	// Zero means unlimited.
	MaxConcurrency int

	// FetchTimeout bounds each individual fetch; zero inherits the
	// caller's deadline.
	FetchTimeout time.Duration

	// Fetchers are the active sources for this request, in registry
	// order. Order decides tie-breaks on equal sort keys.
	Fetchers []source.Fetcher

	// Cursors is the decoded resume token. Empty means a first call: all
	// sources start from default. On a resumed call a source missing
	// from the map is exhausted and sits the request out.
	Cursors map[string]token.Cursor

	Logger zerolog.Logger
}

// Result is one merged output page.
type Result struct {
	// Holdings is globally sorted and deduplicated, at most PageSize long.
	Holdings []catalog.Holding

	// Cursors are the surviving per-source resume positions; failed and
	// exhausted sources are absent. An empty map means the pagination
	// session is over.
	Cursors map[string]token.Cursor
}

// Run drives rounds of parallel refill and sequential merge until the page
// is full or every source is done. Per-source fetch failures drop that
// source and never fail the run: even all sources failing yields an empty
// page and an exhausted token.
func Run(ctx context.Context, p Params) (*Result, error) {
	if p.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", p.PageSize)
	}
	cmp, err := catalog.NewComparer(p.Sort, p.Locale)
	if err != nil {
		return nil, fmt.Errorf("build comparator: %w", err)
	}

	chunk := p.ChunkSize
	if chunk <= 0 {
		chunk = p.PageSize
	}

	firstCall := len(p.Cursors) == 0
	states := make([]*sourceState, 0, len(p.Fetchers))
	for _, f := range p.Fetchers {
		initial := token.NotStarted()
		if !firstCall {
			cur, ok := p.Cursors[f.SourceID()]
			if !ok {
				cur = token.Exhausted()
			}
			initial = cur
		}
		states = append(states, newSourceState(f, initial))
	}

	out := make([]catalog.Holding, 0, p.PageSize)
	index := make(map[string]int, p.PageSize)
	rounds := 0

	for len(out) < p.PageSize && anyActive(states) {
		rounds++
		mergeRoundsTotal.Inc()

		refill(ctx, states, chunk, p)

		// Select: minimal buffer-front across active sources; ties go to
		// the earliest source in registry order.
		best := -1
		for i, s := range states {
			if !s.active || len(s.buffer) == 0 {
				continue
			}
			if best < 0 || cmp.Compare(s.buffer[0], states[best].buffer[0]) < 0 {
				best = i
			}
		}
		if best < 0 {
			// Every buffer is empty; the refill either deactivated the
			// remaining sources or the next round will.
			continue
		}

		// Consume: fold duplicates by identity key, summing copies. The
		// first copy seen keeps its descriptive fields.
		h := states[best].pop()
		if at, seen := index[h.Key()]; seen {
			out[at].Copies += h.Copies
			dedupFoldsTotal.Inc()
		} else {
			index[h.Key()] = len(out)
			out = append(out, h)
			holdingsEmittedTotal.Inc()
		}
	}

	cursors := make(map[string]token.Cursor)
	for _, s := range states {
		if c, ok := s.finalCursor(); ok {
			cursors[s.id] = c
		}
	}

	p.Logger.Debug().
		Int("holdings", len(out)).
		Int("rounds", rounds).
		Int("live_sources", len(cursors)).
		Msg("Merge run complete")

	return &Result{Holdings: out, Cursors: cursors}, nil
}

// refill fetches, in parallel, one chunk for every active source whose
// buffer ran dry. The Wait call is the round barrier: no state is touched
// by the engine until every fetch has settled, and each goroutine touches
// only its own source's state, so the concurrent phase mutates nothing
// shared.
func refill(ctx context.Context, states []*sourceState, chunk int, p Params) {
	g := new(errgroup.Group)
	if p.MaxConcurrency > 0 {
		g.SetLimit(p.MaxConcurrency)
	}

	for _, s := range states {
		if !s.needsRefill() {
			continue
		}
		g.Go(func() error {
			fetchCtx := ctx
			cancel := func() {}
			if p.FetchTimeout > 0 {
				fetchCtx, cancel = context.WithTimeout(ctx, p.FetchTimeout)
			}
			defer cancel()

			res, err := s.fetcher.Fetch(fetchCtx, source.FetchRequest{
				Sort:   p.Sort,
				Filter: p.Filter,
				Cursor: s.fetchCursor(),
				Limit:  chunk,
			})
			if err != nil {
				p.Logger.Warn().
					Err(err).
					Str("source", s.id).
					Msg("Source fetch failed, dropping source for this request")
				sourcesDroppedTotal.WithLabelValues(s.id).Inc()
				s.fail()
				return nil
			}

			if !s.applyPage(res) {
				p.Logger.Warn().
					Str("source", s.id).
					Msg("Source returned empty page with a next cursor, treating as exhausted")
			}
			return nil
		})
	}

	_ = g.Wait()
}

func anyActive(states []*sourceState) bool {
	for _, s := range states {
		if s.active {
			return true
		}
	}
	return false
}
