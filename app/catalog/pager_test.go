package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// pageServer serves a fixed set of pages keyed by the page query
// parameter. Unknown pages answer 404, matching the upstream API.
func pageServer(pages map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestPagerRecordsStopsOnShortPage(t *testing.T) {
	server := pageServer(map[string]string{
		"0": `[{"id": 1}, {"id": 2}]`,
		"1": `[{"id": 3}, {"id": 4}]`,
		"2": `[{"id": 5}]`,
		"3": `[{"id": 6}, {"id": 7}]`,
	})
	defer server.Close()

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), testSourceConfig(server.URL))

	var ids []int64
	for record, err := range pager.Records(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, record.ShowID)
	}

	// Page 2 is short and the minimum of 4 records is already met, so
	// page 3 must never be fetched.
	if len(ids) != 5 {
		t.Errorf("Expected 5 records, got %d", len(ids))
	}
	for i, id := range ids {
		if id != int64(i+1) {
			t.Errorf("Expected record %d to have ID %d, got %d", i, i+1, id)
		}
	}

	stats := pager.Stats()
	if stats.PagesFetched != 3 {
		t.Errorf("Expected 3 pages fetched, got %d", stats.PagesFetched)
	}
	if stats.RecordsSeen != 5 {
		t.Errorf("Expected 5 records seen, got %d", stats.RecordsSeen)
	}
}

func TestPagerRecordsShortPageBelowMinimum(t *testing.T) {
	server := pageServer(map[string]string{
		"0": `[{"id": 1}]`,
		"1": `[{"id": 2}]`,
	})
	defer server.Close()

	sourceConfig := testSourceConfig(server.URL)
	sourceConfig.Settings.MinRecords = 10

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), sourceConfig)

	records, err := pager.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Short pages alone must not stop the walk until the minimum is
	// met, so the pager runs into the 404 after page 1.
	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
	if pager.Stats().PagesFetched != 3 {
		t.Errorf("Expected 3 pages fetched, got %d", pager.Stats().PagesFetched)
	}
}

func TestPagerRecordsEmptyFirstPage(t *testing.T) {
	server := pageServer(map[string]string{
		"0": `[]`,
	})
	defer server.Close()

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), testSourceConfig(server.URL))

	records, err := pager.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 0 {
		t.Errorf("Expected 0 records, got %d", len(records))
	}
	if pager.Stats().PagesFetched != 1 {
		t.Errorf("Expected 1 page fetched, got %d", pager.Stats().PagesFetched)
	}
}

func TestPagerRecordsMaxPagesCap(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		fmt.Fprintf(w, `[{"id": %d}, {"id": %d}]`, requestCount*2-1, requestCount*2)
	}))
	defer server.Close()

	sourceConfig := testSourceConfig(server.URL)
	sourceConfig.Settings.MaxPages = 3

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), sourceConfig)

	records, err := pager.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 6 {
		t.Errorf("Expected 6 records, got %d", len(records))
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
}

func TestPagerRecordsSkipsBadRecords(t *testing.T) {
	server := pageServer(map[string]string{
		"0": `[{"id": 1}, {"name": "missing id"}, {"id": 3}]`,
		"1": `[]`,
	})
	defer server.Close()

	sourceConfig := testSourceConfig(server.URL)
	sourceConfig.Settings.PageSize = 3
	sourceConfig.Settings.MinRecords = 10

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), sourceConfig)

	var ids []int64
	recordErrors := 0
	for record, err := range pager.Records(context.Background()) {
		if err != nil {
			var recordErr *RecordError
			if !errors.As(err, &recordErr) {
				t.Fatalf("Expected RecordError, got: %v", err)
			}
			recordErrors++
			continue
		}
		ids = append(ids, record.ShowID)
	}

	if recordErrors != 1 {
		t.Errorf("Expected 1 record error, got %d", recordErrors)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 good records, got %d", len(ids))
	}
	if pager.Stats().RecordsSkipped != 1 {
		t.Errorf("Expected 1 skipped record, got %d", pager.Stats().RecordsSkipped)
	}
}

func TestPagerCollectPartialOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "0" {
			w.Write([]byte(`[{"id": 1}, {"id": 2}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sourceConfig := testSourceConfig(server.URL)
	sourceConfig.Settings.RetryAttempts = 2

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), sourceConfig)

	records, err := pager.Collect(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing page, got none")
	}

	var exhaustedErr *ExhaustedError
	if !errors.As(err, &exhaustedErr) {
		t.Errorf("Expected ExhaustedError, got: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records from the successful page, got %d", len(records))
	}
}

func TestPagerRecordsEarlyBreak(t *testing.T) {
	server := pageServer(map[string]string{
		"0": `[{"id": 1}, {"id": 2}]`,
		"1": `[{"id": 3}]`,
	})
	defer server.Close()

	pager := NewPager(NewClient(server.Client(), "TestAgent/1.0"), testSourceConfig(server.URL))

	consumed := 0
	for _, err := range pager.Records(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		consumed++
		break
	}

	if consumed != 1 {
		t.Errorf("Expected 1 consumed record, got %d", consumed)
	}
}
