package history

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/easypluginz/apphistory/internal/job"
	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/types"
)

// Reconciler pairs the optimistic store with background reloads. After a
// mutation the caller applies the local change immediately, then schedules
// a reload; reloads for the same parent are serialized by the executor so
// an older fetch can never overwrite a newer one.
type Reconciler struct {
	loader *Loader
	store  *Store
	exec   *shardqueue.ShardExecutor
}

func NewReconciler(loader *Loader, store *Store, exec *shardqueue.ShardExecutor) *Reconciler {
	return &Reconciler{loader: loader, store: store, exec: exec}
}

// Store exposes the underlying row store.
func (r *Reconciler) Store() *Store {
	return r.store
}

// ApplyCreate prepends an optimistic row pending confirmation by reload.
func (r *Reconciler) ApplyCreate(row types.HistoryRow) {
	r.store.Prepend(row)
}

// ApplyUpdate patches an optimistic row in place. A miss means the row
// set changed underneath us; the scheduled reload resolves it either way.
func (r *Reconciler) ApplyUpdate(row types.HistoryRow) {
	if !r.store.Patch(row) {
		log.Debug().Str("id", row.ID).Msg("history: optimistic patch missed, awaiting reload")
	}
}

// ApplyDelete removes the row locally.
func (r *Reconciler) ApplyDelete(id string) {
	r.store.Remove(id)
}

// ScheduleReload queues a background refetch for the parent record. The
// ack only confirms the job was accepted; the rows land asynchronously.
// On reload failure the store keeps its current rows.
//
// hint, when non-nil, pins fields on the named row that the bulk query
// path cannot return.
func (r *Reconciler) ScheduleReload(ctx context.Context, module, parentID string, hint *PreserveHint) (types.ReloadAck, error) {
	reload := job.New(func(jctx context.Context) error {
		res, err := r.loader.Load(jctx, module, parentID)
		if err != nil {
			return err
		}
		r.store.ReplacePreserving(res.Rows, hint)
		log.Debug().Str("parentId", parentID).Int("rows", len(res.Rows)).
			Msg("history: background reload applied")
		return nil
	})
	if err := r.exec.Submit(ctx, parentID, reload); err != nil {
		return types.ReloadAck{}, err
	}
	return types.ReloadAck{ParentID: parentID, Status: "queued"}, nil
}

// Flush blocks until every reload queued for the parent has completed.
func (r *Reconciler) Flush(ctx context.Context, parentID string) error {
	return r.exec.Barrier(ctx, parentID)
}
