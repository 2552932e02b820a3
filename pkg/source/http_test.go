package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mhagen/holdings-aggregator/pkg/catalog"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*HTTPFetcher, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher, err := NewHTTPFetcher(
		Descriptor{ID: "central", Name: "Central Library", BaseURL: server.URL},
		DefaultHTTPConfig(),
	)
	if err != nil {
		t.Fatalf("NewHTTPFetcher() error = %v", err)
	}
	return fetcher, server
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotQuery map[string]string

	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}

		next := "offset:2"
		json.NewEncoder(w).Encode(pageResponse{
			Holdings: []catalog.Holding{
				{Title: "Annihilation", Author: "VanderMeer", Year: 2014, Copies: 2},
				{Title: "Borne", Author: "VanderMeer", Year: 2017, Copies: 1},
			},
			NextCursor: &next,
		})
	})

	author := "VanderMeer"
	yearFrom := 2010
	res, err := fetcher.Fetch(context.Background(), FetchRequest{
		Sort:   catalog.SortSpec{Field: catalog.SortByTitle, Direction: catalog.Ascending},
		Filter: catalog.Filter{Author: &author, YearFrom: &yearFrom},
		Cursor: "offset:0",
		Limit:  2,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(res.Holdings) != 2 {
		t.Fatalf("len(Holdings) = %d, want 2", len(res.Holdings))
	}
	if res.Exhausted {
		t.Error("Exhausted = true, want false")
	}
	if res.NextCursor != "offset:2" {
		t.Errorf("NextCursor = %q, want offset:2", res.NextCursor)
	}

	wantQuery := map[string]string{
		"sort":      "title",
		"direction": "asc",
		"limit":     "2",
		"cursor":    "offset:0",
		"author":    "VanderMeer",
		"year_from": "2010",
	}
	for key, want := range wantQuery {
		if gotQuery[key] != want {
			t.Errorf("query %s = %q, want %q", key, gotQuery[key], want)
		}
	}
}

func TestHTTPFetcher_Exhausted(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "null cursor", body: `{"holdings":[{"title":"Solaris","year":1961,"copies":1}],"nextCursor":null}`},
		{name: "absent cursor", body: `{"holdings":[]}`},
		{name: "empty cursor", body: `{"holdings":[],"nextCursor":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			res, err := fetcher.Fetch(context.Background(), FetchRequest{
				Sort:  catalog.SortSpec{Field: catalog.SortByTitle, Direction: catalog.Ascending},
				Limit: 5,
			})
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if !res.Exhausted {
				t.Error("Exhausted = false, want true")
			}
		})
	}
}

func TestHTTPFetcher_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantClass ErrorClass
	}{
		{name: "server error", status: http.StatusInternalServerError, wantClass: ErrorClassServer},
		{name: "client error", status: http.StatusNotFound, wantClass: ErrorClassClient},
		{name: "undecodable body", status: http.StatusOK, body: "not json", wantClass: ErrorClassProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.status != http.StatusOK {
					w.WriteHeader(tt.status)
					return
				}
				w.Write([]byte(tt.body))
			})

			_, err := fetcher.Fetch(context.Background(), FetchRequest{
				Sort:  catalog.SortSpec{Field: catalog.SortByTitle, Direction: catalog.Ascending},
				Limit: 5,
			})

			var srcErr *SourceError
			if !errors.As(err, &srcErr) {
				t.Fatalf("Fetch() error = %v, want *SourceError", err)
			}
			if srcErr.Class != tt.wantClass {
				t.Errorf("error class = %q, want %q", srcErr.Class, tt.wantClass)
			}
			if srcErr.SourceID != "central" {
				t.Errorf("error source = %q, want central", srcErr.SourceID)
			}
		})
	}
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // fetches now fail at the transport level

	fetcher, err := NewHTTPFetcher(
		Descriptor{ID: "central", BaseURL: server.URL},
		DefaultHTTPConfig(),
	)
	if err != nil {
		t.Fatalf("NewHTTPFetcher() error = %v", err)
	}

	_, err = fetcher.Fetch(context.Background(), FetchRequest{
		Sort:  catalog.SortSpec{Field: catalog.SortByTitle, Direction: catalog.Ascending},
		Limit: 5,
	})

	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("Fetch() error = %v, want *SourceError", err)
	}
	if srcErr.Class != ErrorClassNetwork {
		t.Errorf("error class = %q, want %q", srcErr.Class, ErrorClassNetwork)
	}
}

func TestHTTPFetcher_SingleAttempt(t *testing.T) {
	requests := 0
	fetcher, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := fetcher.Fetch(context.Background(), FetchRequest{
		Sort:  catalog.SortSpec{Field: catalog.SortByTitle, Direction: catalog.Ascending},
		Limit: 5,
	}); err == nil {
		t.Fatal("expected fetch error")
	}

	if requests != 1 {
		t.Errorf("source saw %d requests, want exactly 1 (no retries)", requests)
	}
}
