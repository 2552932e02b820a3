package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mhagen/holdings-aggregator/pkg/catalog"
	"github.com/mhagen/holdings-aggregator/pkg/health"
)

// Prometheus metrics for source fetches.
var (
	sourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_fetches_total",
		Help: "Total source page fetches by source and status",
	}, []string{"source", "status"})

	sourceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aggregator_source_fetch_duration_seconds",
		Help:    "Source page fetch duration in seconds by source",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"source"})

	sourceFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_fetch_errors_total",
		Help: "Total source fetch errors by source and class",
	}, []string{"source", "class"})
)

// ErrorClass classifies a failed source fetch.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses from the source.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses from the source.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport-level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassProtocol represents responses that cannot be decoded.
	ErrorClassProtocol ErrorClass = "protocol"

	// ErrorClassCooldown represents fetches skipped because the source is
	// cooling down after repeated failures.
	ErrorClassCooldown ErrorClass = "cooldown"
)

// ErrSourceCoolingDown is returned when the health tracker has the source
// in a cooldown window. The merge engine treats it like any other fetch
// failure: the source sits out the rest of the request.
var ErrSourceCoolingDown = errors.New("source cooling down")

// SourceError describes a failed fetch from one source.
type SourceError struct {
	SourceID   string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s: %s error (status %d): %s: %v",
			e.SourceID, e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("source %s: %s error (status %d): %s",
		e.SourceID, e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// HTTPConfig holds HTTP fetcher settings shared by all sources.
type HTTPConfig struct {
	// HTTPClient overrides the default client (mainly for tests).
	HTTPClient *http.Client

	// Timeout bounds a single page fetch.
	Timeout time.Duration

	// UserAgent identifies the aggregator to sources.
	UserAgent string

	// Health gates fetches while a source cools down. Nil disables
	// health gating.
	Health *health.Tracker
}

// DefaultHTTPConfig returns safe fetcher defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:   10 * time.Second,
		UserAgent: "holdings-aggregator/0.1.0",
	}
}

// HTTPFetcher fetches holdings pages from one source's HTTP API.
//
// Wire contract: GET {base_url}/holdings with sort, direction, limit,
// cursor, and filter query parameters; the source answers
//
//	{"holdings": [...], "nextCursor": "opaque" | null}
//
// where a null or absent nextCursor marks the source exhausted.
type HTTPFetcher struct {
	desc   Descriptor
	client *http.Client
	config HTTPConfig
	logger zerolog.Logger
}

// NewHTTPFetcher creates a fetcher for one source.
func NewHTTPFetcher(desc Descriptor, cfg HTTPConfig) (*HTTPFetcher, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "holdings-aggregator/0.1.0"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPFetcher{
		desc:   desc,
		client: client,
		config: cfg,
		logger: log.With().Str("component", "source-fetcher").Str("source", desc.ID).Logger(),
	}, nil
}

// SourceID returns the id of the source this fetcher serves.
func (f *HTTPFetcher) SourceID() string {
	return f.desc.ID
}

// pageResponse is the wire shape of a source's holdings page.
type pageResponse struct {
	Holdings   []catalog.Holding `json:"holdings"`
	NextCursor *string           `json:"nextCursor"`
}

// Fetch retrieves one page from the source. Single attempt: any failure is
// returned as a *SourceError and the caller drops the source for the rest
// of the request.
func (f *HTTPFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	start := time.Now()
	defer func() {
		sourceFetchDuration.WithLabelValues(f.desc.ID).Observe(time.Since(start).Seconds())
	}()

	if f.config.Health != nil && !f.config.Health.Available(ctx, f.desc.ID) {
		sourceFetchErrorsTotal.WithLabelValues(f.desc.ID, string(ErrorClassCooldown)).Inc()
		return nil, &SourceError{
			SourceID: f.desc.ID,
			Class:    ErrorClassCooldown,
			Message:  "in cooldown",
			Err:      ErrSourceCoolingDown,
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, f.pageURL(req), nil)
	if err != nil {
		return nil, &SourceError{SourceID: f.desc.ID, Class: ErrorClassProtocol, Message: "build request", Err: err}
	}
	httpReq.Header.Set("User-Agent", f.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, f.fail(ErrorClassNetwork, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		class := ErrorClassServer
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			class = ErrorClassClient
		}
		return nil, f.fail(class, resp.StatusCode, resp.Status, nil)
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, f.fail(ErrorClassProtocol, resp.StatusCode, "decode page", err)
	}

	if f.config.Health != nil {
		f.config.Health.RecordSuccess(ctx, f.desc.ID)
	}
	sourceFetchesTotal.WithLabelValues(f.desc.ID, "ok").Inc()

	result := &FetchResult{Holdings: page.Holdings}
	if page.NextCursor == nil || *page.NextCursor == "" {
		result.Exhausted = true
	} else {
		result.NextCursor = *page.NextCursor
	}

	f.logger.Debug().
		Int("holdings", len(result.Holdings)).
		Bool("exhausted", result.Exhausted).
		Dur("duration", time.Since(start)).
		Msg("Fetched source page")

	return result, nil
}

// fail records metrics and health state for a failed fetch and builds the
// returned error.
func (f *HTTPFetcher) fail(class ErrorClass, status int, msg string, err error) error {
	sourceFetchesTotal.WithLabelValues(f.desc.ID, "error").Inc()
	sourceFetchErrorsTotal.WithLabelValues(f.desc.ID, string(class)).Inc()
	if f.config.Health != nil {
		f.config.Health.RecordFailure(context.Background(), f.desc.ID)
	}

	f.logger.Warn().
		Str("class", string(class)).
		Int("status", status).
		Err(err).
		Msg("Source fetch failed")

	return &SourceError{
		SourceID:   f.desc.ID,
		StatusCode: status,
		Class:      class,
		Message:    msg,
		Err:        err,
	}
}

// pageURL builds the holdings page URL for a fetch request.
func (f *HTTPFetcher) pageURL(req FetchRequest) string {
	params := url.Values{}
	params.Set("sort", string(req.Sort.Field))
	params.Set("direction", string(req.Sort.Direction))
	params.Set("limit", strconv.Itoa(req.Limit))
	if req.Cursor != "" {
		params.Set("cursor", req.Cursor)
	}
	if req.Filter.Author != nil {
		params.Set("author", *req.Filter.Author)
	}
	if req.Filter.Language != nil {
		params.Set("language", *req.Filter.Language)
	}
	if req.Filter.YearFrom != nil {
		params.Set("year_from", strconv.Itoa(*req.Filter.YearFrom))
	}
	if req.Filter.YearTo != nil {
		params.Set("year_to", strconv.Itoa(*req.Filter.YearTo))
	}

	return f.desc.BaseURL + "/holdings?" + params.Encode()
}
