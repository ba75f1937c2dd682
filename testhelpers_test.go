package apphistory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/easypluginz/apphistory/internal/types"
	"github.com/easypluginz/apphistory/internal/zoho"
)

// stubBridge is a scriptable in-memory CRM used by the client tests. It
// records every mutation so tests can assert on the exact write traffic.
type stubBridge struct {
	mu sync.Mutex

	records map[string]types.RawRecord   // "module/id"
	related map[string][]types.RawRecord // "module/id/relation"
	users     []types.OwnerEntry
	current   types.OwnerEntry
	usersGate chan struct{} // when set, ListUsers blocks until it closes

	queryRecs [][]types.RawRecord // consumed per call; last entry repeats
	queryErr  error

	nextID  int
	inserts []insertCall
	updates []updateCall
	deletes []string // "module/id"

	failInsertModule string // inserts into this module fail

	attachments   map[string][]types.Attachment // by record id
	uploads       []string                      // "recordId/fileName"
	attachDeletes []string                      // "recordId/attachmentId"

	functions []functionCall

	searchRecs []types.RawRecord
}

type insertCall struct {
	Module string
	Fields map[string]interface{}
	ID     string
}

type updateCall struct {
	Module string
	ID     string
	Fields map[string]interface{}
}

type functionCall struct {
	Name string
	Args map[string]string
}

var _ zoho.Bridge = (*stubBridge)(nil)

func newStubBridge() *stubBridge {
	return &stubBridge{
		records:     map[string]types.RawRecord{},
		related:     map[string][]types.RawRecord{},
		attachments: map[string][]types.Attachment{},
		users:       []types.OwnerEntry{{ID: "u1", FullName: "Jane Doe", Status: "active"}},
		current:     types.OwnerEntry{ID: "u1", FullName: "Jane Doe", Status: "active"},
		nextID:      1000,
	}
}

func stubRaw(t *testing.T, src string) types.RawRecord {
	t.Helper()
	var raw types.RawRecord
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("raw fixture: %v", err)
	}
	return raw
}

// newTestClient builds a client over the stub with a small executor.
func newTestClient(t *testing.T, b *stubBridge) *Client {
	t.Helper()
	c := New("test-token", WithBridge(b))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (s *stubBridge) GetRecord(_ context.Context, module, id string) (*types.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[module+"/"+id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &rec, nil
}

func (s *stubBridge) InsertRecord(_ context.Context, module string, fields map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if module == s.failInsertModule {
		return "", fmt.Errorf("insert record: status 400")
	}
	s.nextID++
	id := fmt.Sprintf("new%d", s.nextID)
	s.inserts = append(s.inserts, insertCall{Module: module, Fields: fields, ID: id})
	return id, nil
}

func (s *stubBridge) UpdateRecord(_ context.Context, module, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, updateCall{Module: module, ID: id, Fields: fields})
	return nil
}

func (s *stubBridge) DeleteRecord(_ context.Context, module, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, module+"/"+id)
	return nil
}

func (s *stubBridge) GetRelatedRecords(_ context.Context, module, id, relation string) ([]types.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.related[module+"/"+id+"/"+relation], nil
}

func (s *stubBridge) SearchByWord(_ context.Context, module, word string) ([]types.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchRecs, nil
}

func (s *stubBridge) Query(_ context.Context, query string) ([]types.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.queryRecs) == 0 {
		return nil, nil
	}
	recs := s.queryRecs[0]
	if len(s.queryRecs) > 1 {
		s.queryRecs = s.queryRecs[1:]
	}
	return recs, nil
}

func (s *stubBridge) ListUsers(ctx context.Context) ([]types.OwnerEntry, error) {
	s.mu.Lock()
	gate := s.usersGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users, nil
}

func (s *stubBridge) setUsersGate(gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usersGate = gate
}

func (s *stubBridge) CurrentUser(context.Context) (*types.OwnerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.current
	return &u, nil
}

func (s *stubBridge) ExecuteFunction(_ context.Context, name string, args map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions = append(s.functions, functionCall{Name: name, Args: args})
	return nil
}

func (s *stubBridge) ListAttachments(_ context.Context, _, id string) ([]types.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments[id], nil
}

func (s *stubBridge) UploadAttachment(_ context.Context, _, id string, up types.AttachmentUpload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, id+"/"+up.FileName)
	return "att1", nil
}

func (s *stubBridge) DeleteAttachment(_ context.Context, _, id, attachmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachDeletes = append(s.attachDeletes, id+"/"+attachmentID)
	return nil
}

func (s *stubBridge) DownloadAttachment(context.Context, string, string, string) ([]byte, string, error) {
	return []byte("binary"), "application/octet-stream", nil
}

func (s *stubBridge) insertedTo(module string) []insertCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []insertCall
	for _, ic := range s.inserts {
		if ic.Module == module {
			out = append(out, ic)
		}
	}
	return out
}
