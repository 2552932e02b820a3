// Package aggregator orchestrates one caller request end to end: decode the
// resume token, resolve active sources, drive the merge engine, re-encode
// the surviving cursors.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mhagen/holdings-aggregator/pkg/merge"
	"github.com/mhagen/holdings-aggregator/pkg/source"
	"github.com/mhagen/holdings-aggregator/pkg/token"
)

// Prometheus metrics for aggregation requests.
var (
	aggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_requests_total",
		Help: "Total aggregation requests by outcome",
	}, []string{"outcome"})

	aggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregator_request_duration_seconds",
		Help:    "Aggregation request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	malformedTokensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_malformed_tokens_total",
		Help: "Resume tokens that failed to decode and were treated as absent",
	})
)

// Config holds the service configuration.
type Config struct {
	// Registry is the static set of known sources. Required.
	Registry *source.Registry

	// NewFetcher builds the fetcher for one source. Defaults to the HTTP
	// fetcher with FetcherConfig.
	NewFetcher func(source.Descriptor) (source.Fetcher, error)

	// FetcherConfig configures the default HTTP fetchers.
	FetcherConfig source.HTTPConfig

	// MaxPageSize clamps caller page sizes.
	MaxPageSize int

	// ChunkSize is the per-source page size requested per fetch; zero
	// uses the caller's page size.
	ChunkSize int

	// MaxConcurrency caps parallel source fetches within a round.
	MaxConcurrency int

	// FetchTimeout bounds each source fetch so one slow source cannot
	// stall the whole aggregation; zero inherits the caller's deadline.
	FetchTimeout time.Duration

	// Locale selects title collation; empty means English.
	Locale string
}

// DefaultConfig returns a safe service configuration.
func DefaultConfig(registry *source.Registry) Config {
	return Config{
		Registry:       registry,
		FetcherConfig:  source.DefaultHTTPConfig(),
		MaxPageSize:    100,
		MaxConcurrency: 5,
		FetchTimeout:   10 * time.Second,
	}
}

// Service aggregates holdings across catalog sources.
type Service struct {
	config   Config
	fetchers map[string]source.Fetcher
	logger   zerolog.Logger
}

// New creates an aggregation service, building one fetcher per registered
// source up front.
func New(cfg Config) (*Service, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("source registry is required")
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}

	newFetcher := cfg.NewFetcher
	if newFetcher == nil {
		newFetcher = func(d source.Descriptor) (source.Fetcher, error) {
			return source.NewHTTPFetcher(d, cfg.FetcherConfig)
		}
	}

	fetchers := make(map[string]source.Fetcher)
	for _, d := range cfg.Registry.Active(nil) {
		f, err := newFetcher(d)
		if err != nil {
			return nil, fmt.Errorf("build fetcher for source %q: %w", d.ID, err)
		}
		fetchers[d.ID] = f
	}

	return &Service{
		config:   cfg,
		fetchers: fetchers,
		logger:   log.With().Str("component", "aggregator").Logger(),
	}, nil
}

// Aggregate produces one merged page. Per-source failures never surface
// here: they only shrink the set of contributing sources. The only errors
// are ErrInvalidRequest and internal failures.
func (s *Service) Aggregate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	defer func() {
		aggregationDuration.Observe(time.Since(start).Seconds())
	}()

	logger := s.logger.With().Str("request_id", uuid.NewString()).Logger()

	pageSize, sortSpec, err := req.normalize(s.config.MaxPageSize)
	if err != nil {
		aggregationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	cursors, err := token.Decode(req.PageToken)
	if err != nil {
		// A corrupt or tampered token never fails the request; it is
		// treated exactly like no token at all.
		logger.Warn().Err(err).Msg("Malformed page token, restarting all sources")
		malformedTokensTotal.Inc()
		cursors = map[string]token.Cursor{}
	}

	active := s.config.Registry.Active(req.Exclude)
	fetchers := make([]source.Fetcher, 0, len(active))
	for _, d := range active {
		fetchers = append(fetchers, s.fetchers[d.ID])
	}

	// Stale cursor entries for excluded or unknown sources are dropped
	// silently; the engine only consults entries for active sources.
	result, err := merge.Run(ctx, merge.Params{
		Sort:           sortSpec,
		Locale:         s.config.Locale,
		Filter:         req.Filter,
		PageSize:       pageSize,
		ChunkSize:      s.config.ChunkSize,
		MaxConcurrency: s.config.MaxConcurrency,
		FetchTimeout:   s.config.FetchTimeout,
		Fetchers:       fetchers,
		Cursors:        cursors,
		Logger:         logger,
	})
	if err != nil {
		aggregationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("merge run: %w", err)
	}

	next, err := token.Encode(result.Cursors)
	if err != nil {
		aggregationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("encode page token: %w", err)
	}

	aggregationsTotal.WithLabelValues("ok").Inc()
	logger.Info().
		Int("holdings", len(result.Holdings)).
		Int("sources_active", len(fetchers)).
		Bool("exhausted", next == "").
		Dur("duration", time.Since(start)).
		Msg("Aggregation complete")

	return &Response{Holdings: result.Holdings, NextPageToken: next}, nil
}

// Sources returns the ids of all registered sources in registry order.
func (s *Service) Sources() []string {
	return s.config.Registry.IDs()
}
