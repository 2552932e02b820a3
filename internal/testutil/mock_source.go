// Package testutil provides testing utilities for the holdings aggregator.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mhagen/holdings-aggregator/pkg/catalog"
	"github.com/mhagen/holdings-aggregator/pkg/source"
)

// MockSource is a configurable in-process catalog source for testing. It
// serves the real wire protocol (GET /holdings with sort, filter, cursor,
// and limit parameters) over a fixed dataset, using decimal offsets as its
// opaque cursors.
type MockSource struct {
	id     string
	server *httptest.Server

	mu       sync.Mutex
	holdings []catalog.Holding
	delay    time.Duration

	// failAfter fails every request once RequestCount reaches it; -1
	// never fails.
	failAfter int

	requestCount int
}

// NewMockSource creates a mock source serving the given dataset.
func NewMockSource(id string, holdings []catalog.Holding) *MockSource {
	m := &MockSource{
		id:        id,
		holdings:  holdings,
		failAfter: -1,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Descriptor returns a registry descriptor pointing at the mock server.
func (m *MockSource) Descriptor() source.Descriptor {
	return source.Descriptor{ID: m.id, Name: "Mock " + m.id, BaseURL: m.server.URL}
}

// URL returns the mock server URL.
func (m *MockSource) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// RequestCount returns the number of requests served (or failed) so far.
func (m *MockSource) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// FailAfter makes every request fail with a 500 once n requests have been
// served. FailAfter(0) fails immediately.
func (m *MockSource) FailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// SetDelay adds latency to every response.
func (m *MockSource) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHoldings replaces the dataset.
func (m *MockSource) SetHoldings(holdings []catalog.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = holdings
}

type pageBody struct {
	Holdings   []catalog.Holding `json:"holdings"`
	NextCursor *string           `json:"nextCursor"`
}

func (m *MockSource) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	failNow := m.failAfter >= 0 && m.requestCount >= m.failAfter
	m.requestCount++
	delay := m.delay
	dataset := append([]catalog.Holding(nil), m.holdings...)
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failNow {
		http.Error(w, "mock source down", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()

	spec := catalog.SortSpec{
		Field:     catalog.SortField(query.Get("sort")),
		Direction: catalog.SortDirection(query.Get("direction")),
	}
	cmp, err := catalog.NewComparer(spec, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter, err := filterFromQuery(query.Get("author"), query.Get("language"), query.Get("year_from"), query.Get("year_to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	matched := dataset[:0]
	for _, h := range dataset {
		if filter.Matches(h) {
			matched = append(matched, h)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return cmp.Compare(matched[i], matched[j]) < 0
	})

	offset := 0
	if cursor := query.Get("cursor"); cursor != "" {
		offset, err = strconv.Atoi(cursor)
		if err != nil || offset < 0 {
			http.Error(w, "bad cursor", http.StatusBadRequest)
			return
		}
	}
	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil || limit <= 0 {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	if offset > end {
		offset = end
	}

	body := pageBody{Holdings: matched[offset:end]}
	if end < len(matched) {
		next := strconv.Itoa(end)
		body.NextCursor = &next
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func filterFromQuery(author, language, yearFrom, yearTo string) (catalog.Filter, error) {
	var f catalog.Filter
	if author != "" {
		f.Author = &author
	}
	if language != "" {
		f.Language = &language
	}
	if yearFrom != "" {
		from, err := strconv.Atoi(yearFrom)
		if err != nil {
			return f, err
		}
		f.YearFrom = &from
	}
	if yearTo != "" {
		to, err := strconv.Atoi(yearTo)
		if err != nil {
			return f, err
		}
		f.YearTo = &to
	}
	return f, nil
}
