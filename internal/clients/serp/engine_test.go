package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchReturnsHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := []result{
			{URL: "https://example.com/a", Title: "A"},
			{URL: "https://example.com/b", Title: "B"},
		}
		json.NewEncoder(w).Encode(results)
	}))
	defer server.Close()

	e := NewEngine("google", server.URL, WithRateLimit(100))
	hits, err := e.Search(context.Background(), "caffeine reaction time")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].URL != "https://example.com/a" || hits[0].Title != "A" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
}

func TestSearchSkipsResultsWithEmptyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := []result{
			{URL: "", Title: "no url"},
			{URL: "https://example.com/b", Title: "B"},
		}
		json.NewEncoder(w).Encode(results)
	}))
	defer server.Close()

	e := NewEngine("bing", server.URL, WithRateLimit(100))
	hits, err := e.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected empty-URL result to be skipped, got %d hits", len(hits))
	}
}

func TestSearchIncludesAPIKeyWhenConfigured(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		json.NewEncoder(w).Encode([]result{})
	}))
	defer server.Close()

	e := NewEngine("google", server.URL, WithRateLimit(100), WithAPIKey("secret-key"))
	if _, err := e.Search(context.Background(), "q"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("expected api key %q in query, got %q", "secret-key", gotKey)
	}
}

func TestSearchReturnsErrorOnHTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewEngine("google", server.URL, WithRateLimit(100))
	if _, err := e.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestSearchReturnsErrorOnMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	e := NewEngine("google", server.URL, WithRateLimit(100))
	if _, err := e.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected an error for a malformed response body")
	}
}

func TestNameReturnsConfiguredName(t *testing.T) {
	e := NewEngine("duckduckgo", "https://example.com/search")
	if e.Name() != "duckduckgo" {
		t.Errorf("expected Name() to return %q, got %q", "duckduckgo", e.Name())
	}
}
