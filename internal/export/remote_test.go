package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// pagedServer serves a fixed row set through PostgREST-style
// offset/limit windows and records what each request asked for.
func pagedServer(t *testing.T, rows []map[string]any) (*httptest.Server, *[]http.Header) {
	t.Helper()

	var headers []http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/measurements" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		headers = append(headers, r.Header.Clone())

		q := r.URL.Query()
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		page := []map[string]any{}
		if offset < len(rows) {
			end := offset + limit
			if end > len(rows) {
				end = len(rows)
			}
			page = rows[offset:end]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	t.Cleanup(srv.Close)
	return srv, &headers
}

func remoteRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"ts":        fmt.Sprintf("2025-08-30T10:%02d:00Z", i),
			"device_id": 7,
			"value":     float64(i),
		}
	}
	return rows
}

func TestRemoteSourcePagination(t *testing.T) {
	srv, headers := pagedServer(t, remoteRows(5))

	src := newRemoteSource(Options{
		Target: srv.URL,
		Key:    "secret-key",
		Metric: "temperature",
		Batch:  2,
	})
	defer src.Close()

	ctx := context.Background()
	var total int
	var last string
	for {
		chunk, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(chunk) == 0 {
			break
		}
		for _, row := range chunk {
			if row.TS <= last {
				t.Errorf("rows out of order: %s after %s", row.TS, last)
			}
			last = row.TS
			if row.DeviceID != "7" {
				t.Errorf("expected numeric device id rendered as string, got %q", row.DeviceID)
			}
		}
		total += len(chunk)
	}

	if total != 5 {
		t.Fatalf("expected 5 rows, got %d", total)
	}
	// Pages of 2, 2 and 1, plus the empty page that ends the stream.
	if len(*headers) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(*headers))
	}
	for i, h := range *headers {
		if h.Get("apikey") != "secret-key" {
			t.Errorf("request %d: missing apikey header", i)
		}
		if h.Get("Authorization") != "Bearer secret-key" {
			t.Errorf("request %d: missing bearer token", i)
		}
	}
}

func TestRemoteSourceQueryParameters(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	src := newRemoteSource(Options{
		Target:   srv.URL + "/", // trailing slash is trimmed
		Key:      "k",
		Metric:   "distance_ultrasonic",
		DeviceID: "0b7e3f3a-0000-0000-0000-000000000000",
		Batch:    500,
	})
	defer src.Close()

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(queries) != 1 {
		t.Fatalf("expected 1 request, got %d", len(queries))
	}

	q := queries[0]
	for _, want := range []string{
		"select=ts%2Cdevice_id%2Cvalue",
		"metric=eq.distance_ultrasonic",
		"order=ts.asc",
		"device_id=eq.0b7e3f3a-0000-0000-0000-000000000000",
		"offset=0",
		"limit=500",
	} {
		if !containsParam(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}

	// An empty first page ends the stream without another request.
	if chunk, err := src.Next(context.Background()); err != nil || len(chunk) != 0 {
		t.Fatalf("expected terminated stream, got %d rows, err %v", len(chunk), err)
	}
	if len(queries) != 1 {
		t.Fatalf("terminated source must not request again, got %d requests", len(queries))
	}
}

func containsParam(rawQuery, param string) bool {
	for _, part := range strings.Split(rawQuery, "&") {
		if part == param {
			return true
		}
	}
	return false
}

func TestRemoteSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	src := newRemoteSource(Options{Target: srv.URL, Key: "bad", Metric: "temperature", Batch: 10})
	defer src.Close()

	if _, err := src.Next(context.Background()); err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}

func TestStringifyID(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"abc-123", "abc-123"},
		{json.Number("42"), "42"},
		{true, "true"},
		{nil, "<nil>"},
	}
	for _, tt := range tests {
		if got := stringifyID(tt.in); got != tt.want {
			t.Errorf("stringifyID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
