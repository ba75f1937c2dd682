package history

import (
	"context"
	"testing"
	"time"

	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/types"
)

func newTestReconciler(t *testing.T, f *fakeBridge) *Reconciler {
	t.Helper()
	exec := shardqueue.NewShardExecutor(shardqueue.Config{
		Shards: 2, QueueSize: 16, MaxAttempts: 1, BaseBackoff: time.Millisecond,
	})
	t.Cleanup(exec.Stop)
	return NewReconciler(newTestLoader(f), NewStore(), exec)
}

func TestReconciler_OptimisticCreateThenReload(t *testing.T) {
	t.Parallel()
	f := newFakeBridge()
	f.records["Applications/app1"] = rawFromJSON(t, `{"id":"app1","Name":"Smith Application"}`)
	f.queryRecs = []types.RawRecord{
		rawFromJSON(t, `{"id":"h1","Name":"Confirmed Row","History_Type":"Call"}`),
	}

	r := newTestReconciler(t, f)

	r.ApplyCreate(types.HistoryRow{ID: "h1", Name: "Optimistic Row", Type: "Call"})
	if r.Store().Highlighted() != "h1" {
		t.Fatalf("highlight = %q", r.Store().Highlighted())
	}

	ack, err := r.ScheduleReload(context.Background(), "Applications", "app1", nil)
	if err != nil {
		t.Fatalf("ScheduleReload: %v", err)
	}
	if ack.ParentID != "app1" || ack.Status != "queued" {
		t.Fatalf("ack = %+v", ack)
	}

	if err := r.Flush(context.Background(), "app1"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	rows := r.Store().Snapshot()
	if len(rows) != 1 || rows[0].Name != "Confirmed Row" {
		t.Fatalf("rows after reload = %+v", rows)
	}
}

func TestReconciler_ReloadPreservesStakeholderHint(t *testing.T) {
	t.Parallel()
	f := newFakeBridge()
	f.records["Applications/app1"] = rawFromJSON(t, `{"id":"app1","Name":"Smith Application"}`)
	// The bulk reload cannot return stakeholders.
	f.queryRecs = []types.RawRecord{
		rawFromJSON(t, `{"id":"h1","Name":"Updated Row"}`),
	}

	r := newTestReconciler(t, f)
	sh := &types.StakeholderRef{ID: "acc1", Name: "Acme"}
	r.Store().Replace([]types.HistoryRow{{ID: "h1", Name: "Stale Row", Stakeholder: sh}})

	hint := &PreserveHint{ID: "h1", Stakeholder: sh}
	if _, err := r.ScheduleReload(context.Background(), "Applications", "app1", hint); err != nil {
		t.Fatalf("ScheduleReload: %v", err)
	}
	if err := r.Flush(context.Background(), "app1"); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rows := r.Store().Snapshot()
	if len(rows) != 1 || rows[0].Name != "Updated Row" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Stakeholder == nil || rows[0].Stakeholder.ID != "acc1" {
		t.Fatalf("stakeholder lost across reload: %+v", rows[0])
	}
}

func TestReconciler_FailedReloadKeepsRows(t *testing.T) {
	t.Parallel()
	f := newFakeBridge()
	// No parent record registered: every reload fails at the parent fetch.
	f.queryRecs = nil

	r := newTestReconciler(t, f)
	r.Store().Replace([]types.HistoryRow{{ID: "h1", Name: "Kept Row"}})

	if _, err := r.ScheduleReload(context.Background(), "Applications", "app1", nil); err != nil {
		t.Fatalf("ScheduleReload: %v", err)
	}
	if err := r.Flush(context.Background(), "app1"); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rows := r.Store().Snapshot()
	if len(rows) != 1 || rows[0].Name != "Kept Row" {
		t.Fatalf("rows after failed reload = %+v", rows)
	}
}

func TestReconciler_ApplyDelete(t *testing.T) {
	t.Parallel()
	r := newTestReconciler(t, newFakeBridge())
	r.Store().Replace([]types.HistoryRow{{ID: "a"}, {ID: "b"}})

	r.ApplyDelete("a")
	rows := r.Store().Snapshot()
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("rows = %+v", rows)
	}
}
