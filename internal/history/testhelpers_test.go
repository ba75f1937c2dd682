package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/easypluginz/apphistory/internal/types"
)

// fakeBridge is an in-memory stand-in for the CRM bridge. Only the read
// surface the loader touches is modelled; mutation methods fail loudly if
// a test reaches them unexpectedly.
type fakeBridge struct {
	mu sync.Mutex

	records map[string]types.RawRecord   // "module/id"
	related map[string][]types.RawRecord // "module/id/relation"
	users   []types.OwnerEntry
	current types.OwnerEntry

	queryRecs []types.RawRecord
	queryErr  error

	queries      []string
	relatedCalls []string
	loadCount    int
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		records: map[string]types.RawRecord{},
		related: map[string][]types.RawRecord{},
		users:   []types.OwnerEntry{{ID: "u1", FullName: "Jane Doe", Status: "active"}},
		current: types.OwnerEntry{ID: "u1", FullName: "Jane Doe", Status: "active"},
	}
}

func rawFromJSON(t *testing.T, src string) types.RawRecord {
	t.Helper()
	var raw types.RawRecord
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("raw record fixture: %v", err)
	}
	return raw
}

func (f *fakeBridge) GetRecord(_ context.Context, module, id string) (*types.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[module+"/"+id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeBridge) InsertRecord(context.Context, string, map[string]interface{}) (string, error) {
	return "", fmt.Errorf("fakeBridge: unexpected InsertRecord")
}

func (f *fakeBridge) UpdateRecord(context.Context, string, string, map[string]interface{}) error {
	return fmt.Errorf("fakeBridge: unexpected UpdateRecord")
}

func (f *fakeBridge) DeleteRecord(context.Context, string, string) error {
	return fmt.Errorf("fakeBridge: unexpected DeleteRecord")
}

func (f *fakeBridge) GetRelatedRecords(_ context.Context, module, id, relation string) ([]types.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := module + "/" + id + "/" + relation
	f.relatedCalls = append(f.relatedCalls, key)
	return f.related[key], nil
}

func (f *fakeBridge) SearchByWord(context.Context, string, string) ([]types.RawRecord, error) {
	return nil, nil
}

func (f *fakeBridge) Query(_ context.Context, query string) ([]types.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.loadCount++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRecs, nil
}

func (f *fakeBridge) ListUsers(context.Context) ([]types.OwnerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, nil
}

func (f *fakeBridge) CurrentUser(context.Context) (*types.OwnerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.current
	return &u, nil
}
