package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finwatch/expense-importer/internal/ratelimit"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	fetcher := ratelimit.NewFetcher(
		ratelimit.Profile{Name: "test", BatchSize: 5},
		ratelimit.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		zap.NewNop())
	return NewClient(srv.URL, "test-token", 100, fetcher, zap.NewNop()), srv
}

func window() (time.Time, time.Time) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func TestSearchPaginates(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"messages": [{"id": "m1"}, {"id": "m2"}], "nextPageToken": "page2"}`)
		case "page2":
			fmt.Fprint(w, `{"messages": [{"id": "m3"}]}`)
		default:
			t.Errorf("unexpected pageToken %q", r.URL.Query().Get("pageToken"))
		}
	}))

	start, end := window()
	ids, err := client.Search(context.Background(), "alerts@bank.example", start, end)
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	want := []string{"m1", "m2", "m3"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSearchDateFallbackLadder(t *testing.T) {
	var queries []string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		// Only the unqualified query matches anything.
		if strings.Contains(q, "after:") {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `{"messages": [{"id": "m1"}]}`)
	}))

	start, end := window()
	ids, err := client.Search(context.Background(), "alerts@bank.example", start, end)
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if len(ids) != 1 || ids[0] != "m1" {
		t.Fatalf("ids = %v", ids)
	}

	if len(queries) != 3 {
		t.Fatalf("got %d queries, want the 3-step ladder: %v", len(queries), queries)
	}
	if !strings.Contains(queries[0], "after:2024/03/01") || !strings.Contains(queries[0], "before:2024/04/01") {
		t.Errorf("first query = %q, want calendar dates", queries[0])
	}
	if !strings.Contains(queries[1], fmt.Sprintf("after:%d", start.Unix())) {
		t.Errorf("second query = %q, want epoch seconds", queries[1])
	}
	if queries[2] != "from:alerts@bank.example" {
		t.Errorf("third query = %q, want no date qualifier", queries[2])
	}
}

func TestSearchEmptyEverywhere(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))

	start, end := window()
	ids, err := client.Search(context.Background(), "quiet@bank.example", start, end)
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}

func TestSearchRetriesThrottling(t *testing.T) {
	var hits atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"messages": [{"id": "m1"}]}`)
	}))

	start, end := window()
	ids, err := client.Search(context.Background(), "alerts@bank.example", start, end)
	if err != nil {
		t.Fatalf("Search returned %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("ids = %v", ids)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want a single retry", hits.Load())
	}
}

func TestSearchAuthErrorFailsFast(t *testing.T) {
	var hits atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "invalid credentials"}}`)
	}))

	start, end := window()
	_, err := client.Search(context.Background(), "alerts@bank.example", start, end)
	if !ratelimit.IsAuth(err) {
		t.Fatalf("err = %v, want auth classification", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 (no retry on auth)", hits.Load())
	}
}

func TestFetchBodiesPreservesOrder(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/messages/")
		json.NewEncoder(w).Encode(map[string]any{
			"id":       id,
			"threadId": "t-" + id,
			"payload": map[string]any{
				"mimeType": "text/plain",
				"headers":  []map[string]string{{"name": "From", "value": "alerts@bank.example"}},
				"body":     map[string]string{"data": "aGVsbG8"},
			},
		})
	}))

	ids := []string{"m1", "m2", "m3"}
	results := client.FetchBodies(context.Background(), ids)
	if len(results) != 3 {
		t.Fatalf("len = %d", len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("results[%d].Err = %v", i, res.Err)
		}
		if res.Msg.ID != ids[i] {
			t.Errorf("results[%d].Msg.ID = %q, want %q", i, res.Msg.ID, ids[i])
		}
		if res.Msg.Header("From") != "alerts@bank.example" {
			t.Errorf("results[%d] lost payload headers", i)
		}
		if res.Msg.Payload.Data != "aGVsbG8" {
			t.Errorf("results[%d].Payload.Data = %q", i, res.Msg.Payload.Data)
		}
	}
}

func TestFetchBodiesReportsPerMessageErrors(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/m2") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      strings.TrimPrefix(r.URL.Path, "/messages/"),
			"payload": map[string]any{"mimeType": "text/plain", "body": map[string]string{"data": "aGVsbG8"}},
		})
	}))

	results := client.FetchBodies(context.Background(), []string{"m1", "m2", "m3"})
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("good slots carry errors: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("results[1].Err = nil, want the 404")
	}
	if results[1].Msg != nil {
		t.Error("results[1] has both a message and an error")
	}
}

func TestWireMessageNestedParts(t *testing.T) {
	payload := `{
		"id": "m1",
		"threadId": "t1",
		"payload": {
			"mimeType": "multipart/alternative",
			"headers": [{"name": "Date", "value": "Fri, 15 Mar 2024 10:30:00 -0500"}],
			"parts": [
				{"mimeType": "text/plain", "body": {"data": "cGxhaW4"}},
				{"mimeType": "text/html", "body": {"data": "aHRtbA"}}
			]
		}
	}`
	var wire wireMessage
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		t.Fatal(err)
	}
	msg := wire.toRawMessage()
	if msg.ID != "m1" || msg.ThreadID != "t1" {
		t.Errorf("ids = %q/%q", msg.ID, msg.ThreadID)
	}
	if msg.Header("Date") == "" {
		t.Error("payload headers not lifted onto the message")
	}
	if len(msg.Payload.Parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(msg.Payload.Parts))
	}
	if msg.Payload.Parts[1].MimeType != "text/html" || msg.Payload.Parts[1].Data != "aHRtbA" {
		t.Errorf("html part = %+v", msg.Payload.Parts[1])
	}
}
