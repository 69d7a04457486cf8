package ingest

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/showledger/showledger/app/catalog"
	"github.com/showledger/showledger/app/database"
)

// MockRawShowRepository implements a simple in-memory version log for
// testing
type MockRawShowRepository struct {
	rows        map[int64]database.RawShow // Latest version per show
	inserted    []database.RawShow
	listErr     error
	failShowIDs map[int64]bool
}

var _ database.RawShowRepository = (*MockRawShowRepository)(nil)

func (m *MockRawShowRepository) GetLatest(sourceName string, showID int64) (*database.RawShow, error) {
	if row, ok := m.rows[showID]; ok {
		return &row, nil
	}
	return nil, nil
}

func (m *MockRawShowRepository) GetLatestVersions(sourceName string) (map[int64]database.VersionInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	versions := make(map[int64]database.VersionInfo, len(m.rows))
	for id, row := range m.rows {
		versions[id] = database.VersionInfo{Version: row.Version, Hash: row.PayloadHash}
	}
	return versions, nil
}

func (m *MockRawShowRepository) GetAllLatest(sourceName string) ([]database.RawShow, error) {
	rows := make([]database.RawShow, 0, len(m.rows))
	for _, row := range m.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ShowID < rows[j].ShowID })
	return rows, nil
}

func (m *MockRawShowRepository) GetHistory(sourceName string, showID int64) ([]database.RawShow, error) {
	return nil, nil
}

func (m *MockRawShowRepository) GetVersionCount(sourceName string) (int, error) {
	return len(m.inserted), nil
}

func (m *MockRawShowRepository) GetShowCount(sourceName string) (int, error) {
	return len(m.rows), nil
}

func (m *MockRawShowRepository) InsertVersion(sourceName string, raw database.RawShow) (int, error) {
	if m.failShowIDs[raw.ShowID] {
		return 0, errors.New("insert failed")
	}
	if m.rows == nil {
		m.rows = make(map[int64]database.RawShow)
	}
	raw.Version = 1
	if current, ok := m.rows[raw.ShowID]; ok {
		raw.Version = current.Version + 1
	}
	raw.IsLatest = true
	m.rows[raw.ShowID] = raw
	m.inserted = append(m.inserted, raw)
	return raw.Version, nil
}

func makeRecord(t *testing.T, payload string) catalog.Record {
	t.Helper()
	record, err := catalog.DecodeRecord([]byte(payload))
	if err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	return record
}

func TestReconcilerFirstSeen(t *testing.T) {
	mockRepo := &MockRawShowRepository{}
	reconciler := NewReconciler(mockRepo)

	records := []catalog.Record{
		makeRecord(t, `{"id": 1, "name": "Alpha"}`),
		makeRecord(t, `{"id": 2, "name": "Beta"}`),
	}

	fetchedAt := time.Now().UTC()
	result, err := reconciler.Run("test-source", 7, fetchedAt, records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.New != 2 {
		t.Errorf("Expected 2 new shows, got %d", result.New)
	}
	if result.Changed != 0 || result.Unchanged != 0 || len(result.Failed) != 0 {
		t.Errorf("Expected only new shows, got %+v", result)
	}
	if result.VersionsWritten() != 2 {
		t.Errorf("Expected 2 versions written, got %d", result.VersionsWritten())
	}

	if len(mockRepo.inserted) != 2 {
		t.Fatalf("Expected 2 inserted rows, got %d", len(mockRepo.inserted))
	}
	first := mockRepo.inserted[0]
	if first.Version != 1 {
		t.Errorf("Expected version 1, got %d", first.Version)
	}
	if first.FetchBatchID != 7 {
		t.Errorf("Expected fetch batch id 7, got %d", first.FetchBatchID)
	}
	if first.PayloadHash != records[0].Hash {
		t.Errorf("Expected payload hash %s, got %s", records[0].Hash, first.PayloadHash)
	}
	if string(first.Payload) != string(records[0].Canonical) {
		t.Errorf("Expected canonical payload to be stored, got %s", first.Payload)
	}
}

func TestReconcilerUnchangedSkipsWrite(t *testing.T) {
	record := makeRecord(t, `{"id": 1, "name": "Alpha"}`)

	mockRepo := &MockRawShowRepository{
		rows: map[int64]database.RawShow{
			1: {ShowID: 1, Version: 3, PayloadHash: record.Hash},
		},
	}
	reconciler := NewReconciler(mockRepo)

	result, err := reconciler.Run("test-source", 8, time.Now().UTC(), []catalog.Record{record})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Unchanged != 1 {
		t.Errorf("Expected 1 unchanged show, got %d", result.Unchanged)
	}
	if len(mockRepo.inserted) != 0 {
		t.Errorf("Expected no writes for unchanged payload, got %d", len(mockRepo.inserted))
	}
}

func TestReconcilerChangedAppendsVersion(t *testing.T) {
	mockRepo := &MockRawShowRepository{
		rows: map[int64]database.RawShow{
			1: {ShowID: 1, Version: 3, PayloadHash: "stale-hash"},
		},
	}
	reconciler := NewReconciler(mockRepo)

	record := makeRecord(t, `{"id": 1, "name": "Alpha Renamed"}`)
	result, err := reconciler.Run("test-source", 9, time.Now().UTC(), []catalog.Record{record})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Changed != 1 {
		t.Errorf("Expected 1 changed show, got %d", result.Changed)
	}
	if len(mockRepo.inserted) != 1 {
		t.Fatalf("Expected 1 inserted row, got %d", len(mockRepo.inserted))
	}
	if mockRepo.inserted[0].Version != 4 {
		t.Errorf("Expected version 4, got %d", mockRepo.inserted[0].Version)
	}
}

func TestReconcilerDuplicateWithinBatch(t *testing.T) {
	mockRepo := &MockRawShowRepository{}
	reconciler := NewReconciler(mockRepo)

	// The same show appears twice in one batch: once repeated verbatim
	// and once with a different payload.
	records := []catalog.Record{
		makeRecord(t, `{"id": 1, "name": "Alpha"}`),
		makeRecord(t, `{"id": 1, "name": "Alpha"}`),
		makeRecord(t, `{"id": 1, "name": "Alpha Renamed"}`),
	}

	result, err := reconciler.Run("test-source", 10, time.Now().UTC(), records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.New != 1 {
		t.Errorf("Expected 1 new show, got %d", result.New)
	}
	if result.Unchanged != 1 {
		t.Errorf("Expected 1 unchanged duplicate, got %d", result.Unchanged)
	}
	if result.Changed != 1 {
		t.Errorf("Expected 1 changed duplicate, got %d", result.Changed)
	}
	if len(mockRepo.inserted) != 2 {
		t.Fatalf("Expected 2 inserted rows, got %d", len(mockRepo.inserted))
	}
	if mockRepo.inserted[1].Version != 2 {
		t.Errorf("Expected second write to be version 2, got %d", mockRepo.inserted[1].Version)
	}
}

func TestReconcilerInsertFailureSkipsRecord(t *testing.T) {
	mockRepo := &MockRawShowRepository{
		failShowIDs: map[int64]bool{1: true},
	}
	reconciler := NewReconciler(mockRepo)

	records := []catalog.Record{
		makeRecord(t, `{"id": 1, "name": "Alpha"}`),
		makeRecord(t, `{"id": 2, "name": "Beta"}`),
	}

	result, err := reconciler.Run("test-source", 11, time.Now().UTC(), records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(result.Failed) != 1 || result.Failed[0] != 1 {
		t.Errorf("Expected show 1 to fail, got %v", result.Failed)
	}
	if result.New != 1 {
		t.Errorf("Expected the other show to be written, got %d new", result.New)
	}
}

func TestReconcilerVersionLookupFailure(t *testing.T) {
	mockRepo := &MockRawShowRepository{listErr: errors.New("database down")}
	reconciler := NewReconciler(mockRepo)

	_, err := reconciler.Run("test-source", 12, time.Now().UTC(), nil)
	if err == nil {
		t.Fatal("Expected error when version lookup fails")
	}
}
