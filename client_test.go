package apphistory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/types"
)

func seedParent(t *testing.T, b *stubBridge) {
	t.Helper()
	b.records["Applications/app1"] = stubRaw(t, `{
		"id":"app1",
		"Name":"Smith Application",
		"Contact_Name":{"id":"c1","name":"Jane Doe"},
		"Stake_Holder":{"id":"acc1","name":"Acme"}
	}`)
}

func loadClient(t *testing.T, b *stubBridge) *Client {
	t.Helper()
	c := newTestClient(t, b)
	if _, err := c.LoadHistory(context.Background(), "Applications", "app1"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	return c
}

func TestNew_PanicsOnEmptyToken(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New("")
}

func TestLoadHistory_PrimesStoreAndParent(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	b.queryRecs = [][]types.RawRecord{
		{stubRaw(t, `{"id":"h1","Name":"Row","Date":"2026-03-01","History_Type":"Call","Owner":"u1"}`)},
	}

	c := loadClient(t, b)

	rows := c.Rows()
	if len(rows) != 1 || rows[0].OwnerName != "Jane Doe" {
		t.Fatalf("rows = %+v", rows)
	}
	if got := c.TypeCatalog(); len(got) == 0 {
		t.Fatal("empty type catalog")
	}
}

func TestMutationsRequireLoad(t *testing.T) {
	c := newTestClient(t, newStubBridge())
	if _, err := c.CreateHistory(context.Background(), HistoryInput{}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("create err = %v, want ErrNotLoaded", err)
	}
	if err := c.DeleteHistory(context.Background(), "x"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("delete err = %v, want ErrNotLoaded", err)
	}
}

func TestCreateHistory_FullFlow(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	b.queryRecs = [][]types.RawRecord{
		nil, // initial load: no rows yet
		{stubRaw(t, `{"id":"new1001","Name":"Smith Application - Jane Doe","History_Type":"Call"}`)},
	}

	c := loadClient(t, b)

	res, err := c.CreateHistory(context.Background(), HistoryInput{
		Type:       "Call",
		Result:     "Completed",
		Attachment: &AttachmentUpload{FileName: "notes.pdf", Content: []byte("x")},
	})
	if err != nil {
		t.Fatalf("CreateHistory: %v", err)
	}

	mains := b.insertedTo("Applications_History")
	if len(mains) != 1 {
		t.Fatalf("main inserts = %+v", mains)
	}
	fields := mains[0].Fields
	if fields["Name"] != "Smith Application - Jane Doe" {
		t.Errorf("Name = %v", fields["Name"])
	}
	if app, ok := fields["Application"].(map[string]string); !ok || app["id"] != "app1" {
		t.Errorf("Application = %v", fields["Application"])
	}
	if sh, ok := fields["Stakeholder"].(map[string]string); !ok || sh["id"] != "acc1" {
		t.Errorf("Stakeholder = %v (parent fallback expected)", fields["Stakeholder"])
	}
	if fields["Duration_Min"] != nil || fields["Date"] != nil {
		t.Errorf("blank duration/date should write nulls: %v %v", fields["Duration_Min"], fields["Date"])
	}

	// The parent contact becomes the default participant.
	junctions := b.insertedTo("Application_Hstory")
	if len(junctions) != 1 {
		t.Fatalf("junction inserts = %+v", junctions)
	}
	if ct, ok := junctions[0].Fields["Contact"].(map[string]string); !ok || ct["id"] != "c1" {
		t.Errorf("junction contact = %v", junctions[0].Fields["Contact"])
	}
	if res.JunctionsOK != 1 || res.JunctionsFailed != 0 {
		t.Errorf("result = %+v", res)
	}

	if len(b.uploads) != 1 || !strings.HasSuffix(b.uploads[0], "/notes.pdf") {
		t.Errorf("uploads = %v", b.uploads)
	}

	// Optimistic prepend with highlight, confirmed by the background reload.
	if c.Highlighted() != res.ID {
		t.Errorf("highlight = %q, want %q", c.Highlighted(), res.ID)
	}
	if err := c.AwaitIdle(context.Background(), "app1"); err != nil {
		t.Fatalf("AwaitIdle: %v", err)
	}
	rows := c.Rows()
	if len(rows) != 1 || rows[0].ID != "new1001" {
		t.Fatalf("rows after reload = %+v", rows)
	}
}

func TestCreateHistory_JunctionFailureIsSkipped(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	b.failInsertModule = "Application_Hstory"

	c := loadClient(t, b)
	res, err := c.CreateHistory(context.Background(), HistoryInput{
		Type: "Meeting",
		Participants: []Participant{
			{ID: "c1", FullName: "Jane Doe"},
			{ID: "c2", FullName: "John Roe"},
		},
	})
	if err != nil {
		t.Fatalf("CreateHistory: %v", err)
	}
	if res.JunctionsOK != 0 || res.JunctionsFailed != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestUpdateHistory_JunctionDiffAndPreservedStakeholder(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	b.related["Applications_History/h1/Contacts4"] = []types.RawRecord{
		stubRaw(t, `{"id":"j1","Contact_Details":{"id":"c1","name":"Jane Doe"}}`),
		stubRaw(t, `{"id":"j2","Contact_Details":{"id":"c2","name":"John Roe"}}`),
	}
	b.queryRecs = [][]types.RawRecord{
		{stubRaw(t, `{"id":"h1","Name":"Old Name","History_Type":"Call"}`)},
		// The bulk query path cannot return the stakeholder.
		{stubRaw(t, `{"id":"h1","Name":"Smith Application - John Roe, Kim Lee","History_Type":"Call"}`)},
	}

	c := loadClient(t, b)

	_, err := c.UpdateHistory(context.Background(), "h1", HistoryInput{
		Type:        "Call",
		Stakeholder: &StakeholderRef{ID: "accX", Name: "Other Co"},
		Participants: []Participant{
			{ID: "c2", FullName: "John Roe"},
			{ID: "c3", FullName: "Kim Lee"},
		},
	})
	if err != nil {
		t.Fatalf("UpdateHistory: %v", err)
	}

	if len(b.updates) != 1 || b.updates[0].ID != "h1" {
		t.Fatalf("updates = %+v", b.updates)
	}

	// c1 was removed: its junction row goes. c3 is new: a row is added.
	foundDelete := false
	for _, d := range b.deletes {
		if d == "Application_Hstory/j1" {
			foundDelete = true
		}
	}
	if !foundDelete {
		t.Fatalf("junction j1 not deleted: %v", b.deletes)
	}
	adds := b.insertedTo("Application_Hstory")
	if len(adds) != 1 {
		t.Fatalf("junction adds = %+v", adds)
	}
	if ct := adds[0].Fields["Contact"].(map[string]string); ct["id"] != "c3" {
		t.Fatalf("added contact = %v", ct)
	}

	// The reload result has no stakeholder; the hint restores it.
	if err := c.AwaitIdle(context.Background(), "app1"); err != nil {
		t.Fatalf("AwaitIdle: %v", err)
	}
	rows := c.Rows()
	if len(rows) != 1 || rows[0].Stakeholder == nil || rows[0].Stakeholder.ID != "accX" {
		t.Fatalf("stakeholder lost across reload: %+v", rows)
	}
}

func TestDeleteHistory_JunctionsFirst(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	b.related["Applications_History/h1/Contacts4"] = []types.RawRecord{
		stubRaw(t, `{"id":"j1","Contact_Details":{"id":"c1","name":"Jane Doe"}}`),
	}
	b.queryRecs = [][]types.RawRecord{
		{stubRaw(t, `{"id":"h1","Name":"Row"}`)},
		nil,
	}

	c := loadClient(t, b)
	if err := c.DeleteHistory(context.Background(), "h1"); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}

	if len(b.deletes) != 2 || b.deletes[0] != "Application_Hstory/j1" || b.deletes[1] != "Applications_History/h1" {
		t.Fatalf("deletes = %v, want junction row before main record", b.deletes)
	}
	if err := c.AwaitIdle(context.Background(), "app1"); err != nil {
		t.Fatalf("AwaitIdle: %v", err)
	}
	if got := c.Rows(); len(got) != 0 {
		t.Fatalf("rows = %+v", got)
	}
}

func TestMoveHistory(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	b.records["Applications_History/h1"] = stubRaw(t, `{
		"id":"h1","Name":"Old Row","History_Type":"Call","History_Result":"Completed",
		"Regarding":"Loan","History_Details":"Notes","Duration_Min":"30",
		"Date":"2026-03-01T10:00:00+11:00",
		"Stakeholder":{"id":"acc1","name":"Acme"}
	}`)
	b.related["Applications_History/h1/Contacts4"] = []types.RawRecord{
		stubRaw(t, `{"id":"j1","Contact_Details":{"id":"c1","name":"Jane Doe"}}`),
	}

	c := loadClient(t, b)
	res, err := c.MoveHistory(context.Background(), MoveHistoryRequest{
		HistoryID:           "h1",
		TargetApplicationID: "app2",
	})
	if err != nil {
		t.Fatalf("MoveHistory: %v", err)
	}

	mains := b.insertedTo("Applications_History")
	if len(mains) != 1 {
		t.Fatalf("inserts = %+v", mains)
	}
	fields := mains[0].Fields
	if fields["Name"] != "Jane Doe" {
		t.Errorf("Name = %v, want first linked contact", fields["Name"])
	}
	if app := fields["Application"].(map[string]string); app["id"] != "app2" {
		t.Errorf("Application = %v", fields["Application"])
	}
	if sh := fields["Stakeholder"].(map[string]string); sh["id"] != "acc1" {
		t.Errorf("Stakeholder = %v", fields["Stakeholder"])
	}

	junctions := b.insertedTo("Application_Hstory")
	if len(junctions) != 1 {
		t.Fatalf("junction re-links = %+v", junctions)
	}

	if len(b.functions) != 1 || b.functions[0].Name != copyAttachmentsFunction {
		t.Fatalf("functions = %+v", b.functions)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(b.functions[0].Args["arguments"]), &args); err != nil {
		t.Fatalf("arguments payload: %v", err)
	}
	if args["fromID"] != "h1" || args["ToID"] != res.ID || args["toModule"] != "Applications_History" {
		t.Fatalf("arguments = %v", args)
	}

	// The original record and its junction rows are removed last.
	if len(b.deletes) != 2 || b.deletes[0] != "Application_Hstory/j1" || b.deletes[1] != "Applications_History/h1" {
		t.Fatalf("deletes = %v", b.deletes)
	}
}

func TestSearchStakeholders_MapsAccountName(t *testing.T) {
	b := newStubBridge()
	b.searchRecs = []types.RawRecord{
		stubRaw(t, `{"id":"acc1","Account_Name":"Acme Holdings"}`),
	}
	c := newTestClient(t, b)

	refs, err := c.SearchStakeholders(context.Background(), "acme")
	if err != nil {
		t.Fatalf("SearchStakeholders: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "Acme Holdings" {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestSearchStakeholdersDebounced_DropsStaleQueries(t *testing.T) {
	b := newStubBridge()
	b.searchRecs = []types.RawRecord{stubRaw(t, `{"id":"acc1","Account_Name":"Acme"}`)}
	c := New("test-token", WithBridge(b), WithSearchDebounce(10*time.Millisecond))
	t.Cleanup(func() { _ = c.Close() })

	var staleFired, latestFired int32
	c.SearchStakeholdersDebounced(context.Background(), "a", func([]StakeholderRef, error) {
		atomic.StoreInt32(&staleFired, 1)
	})
	c.SearchStakeholdersDebounced(context.Background(), "ac", func(refs []StakeholderRef, err error) {
		if err == nil && len(refs) == 1 {
			atomic.StoreInt32(&latestFired, 1)
		}
	})

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&latestFired) == 0 {
		select {
		case <-deadline:
			t.Fatal("latest search never delivered")
		case <-time.After(time.Millisecond):
		}
	}
	if atomic.LoadInt32(&staleFired) == 1 {
		t.Fatal("stale search delivered")
	}
}

func TestResolveStakeholder(t *testing.T) {
	b := newStubBridge()
	b.records["Accounts/acc1"] = stubRaw(t, `{"id":"acc1","Account_Name":"Acme Holdings"}`)
	c := newTestClient(t, b)

	ref, err := c.ResolveStakeholder(context.Background(), "acc1")
	if err != nil {
		t.Fatalf("ResolveStakeholder: %v", err)
	}
	if ref.Name != "Acme Holdings" {
		t.Fatalf("ref = %+v", ref)
	}
}

func TestOAuthTransport_SetsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken secret" {
			t.Errorf("Authorization = %q", got)
		}
	}))
	defer srv.Close()

	client := &http.Client{Transport: &oauthTransport{base: http.DefaultTransport, token: "secret"}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	_ = resp.Body.Close()
}

func TestClose_Idempotent(t *testing.T) {
	c := newTestClient(t, newStubBridge())
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestScheduleReload_BackPressure(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	c := New("test-token",
		WithBridge(b),
		WithExecutorConfig(shardqueue.Config{
			Shards:         1,
			QueueSize:      1,
			EnqueueTimeout: 20 * time.Millisecond,
			MaxAttempts:    1,
		}))
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.LoadHistory(context.Background(), "Applications", "app1"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	// Block the single worker so the queue fills up.
	release := make(chan struct{})
	b.setUsersGate(release)
	defer close(release)

	var err error
	for i := 0; i < 8; i++ {
		if _, err = c.ScheduleReload(context.Background()); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("queue never filled")
	}
	if !errors.Is(err, ErrBackPressure) {
		t.Fatalf("err = %v, want ErrBackPressure", err)
	}
	if !IsBackPressure(err) {
		t.Fatalf("IsBackPressure(%v) = false", err)
	}
}

func TestScheduleReload_AfterClose(t *testing.T) {
	b := newStubBridge()
	seedParent(t, b)
	c := newTestClient(t, b)
	if _, err := c.LoadHistory(context.Background(), "Applications", "app1"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if err := c.AwaitIdle(context.Background(), "app1"); err != nil {
		t.Fatalf("AwaitIdle: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := c.ScheduleReload(context.Background())
	if !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("err = %v, want ErrExecutorClosed", err)
	}
}
