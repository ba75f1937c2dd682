package apphistory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/easypluginz/apphistory/internal/history"
	"github.com/easypluginz/apphistory/internal/job"
	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/types"
)

// dateFieldLayout is the timestamp format record writes use.
const dateFieldLayout = "2006-01-02T15:04:05-07:00"

// copyAttachmentsFunction is the server-side function that moves files
// between history records; the REST API has no direct equivalent.
const copyAttachmentsFunction = "copy_attachment_form_contact_history_to_applicatio"

// LoadHistory performs the initial fetch for the record the widget is
// embedded in and primes the client's row store. Any failure here is
// fatal; nothing is partially applied.
func (c *Client) LoadHistory(ctx context.Context, module, parentID string) (*LoadResult, error) {
	res, err := c.loader.Load(ctx, module, parentID)
	if err != nil {
		return nil, err
	}
	c.store.Replace(res.Rows)

	c.mu.Lock()
	c.module = module
	c.parentID = parentID
	c.parent = res.Parent
	c.mu.Unlock()

	return res, nil
}

// Rows returns a snapshot of the current row set.
func (c *Client) Rows() []HistoryRow {
	return c.store.Snapshot()
}

// FilterRows applies a filter to the current row set.
func (c *Client) FilterRows(f Filter) []HistoryRow {
	return f.Apply(c.store.Snapshot())
}

// TypeCatalog returns the activity-type vocabulary for the current rows.
func (c *Client) TypeCatalog() []string {
	return history.TypeCatalog(c.store.Snapshot())
}

// Highlighted returns the id of the most recently written row, or "".
func (c *Client) Highlighted() string {
	return c.store.Highlighted()
}

// ClearHighlight resets the highlight marker.
func (c *Client) ClearHighlight() {
	c.store.ClearHighlight()
}

// CreateHistory creates a history record under the loaded parent: the main
// record first, then the attachment and the contact junction rows
// best-effort. The new row is prepended optimistically and a background
// reload confirms it.
func (c *Client) CreateHistory(ctx context.Context, in HistoryInput) (*WriteResult, error) {
	module, parentID, parent, err := c.parentContext()
	if err != nil {
		return nil, err
	}

	participants := resolveParticipants(in, parent)
	fields := buildFields(in, parent, participants, parentID)

	id, err := c.bridge.InsertRecord(ctx, history.HistoryModule, fields)
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	mutationsTotal.WithLabelValues("create").Inc()

	c.uploadAttachmentBestEffort(ctx, id, in.Attachment)
	ok, failed := c.insertJunctions(ctx, id, participants)

	row := optimisticRow(id, in, parent, participants)
	c.recon.ApplyCreate(row)
	if _, err := c.scheduleReload(ctx, module, parentID, nil); err != nil {
		log.Warn().Err(err).Str("parentId", parentID).Msg("apphistory: reload after create not queued")
	}

	return &WriteResult{ID: id, JunctionsOK: ok, JunctionsFailed: failed}, nil
}

// UpdateHistory patches an existing history record, replaces its
// attachment if a new one is supplied, and reconciles the contact junction
// rows against the submitted participant set. The row is patched in place
// optimistically; the background reload carries a preservation hint
// because the bulk query path cannot return the stakeholder.
func (c *Client) UpdateHistory(ctx context.Context, historyID string, in HistoryInput) (*WriteResult, error) {
	module, parentID, parent, err := c.parentContext()
	if err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(historyID, "historyId"); err != nil {
		return nil, err
	}

	participants := resolveParticipants(in, parent)
	fields := buildFields(in, parent, participants, parentID)
	fields["id"] = historyID

	if err := c.bridge.UpdateRecord(ctx, history.HistoryModule, historyID, fields); err != nil {
		return nil, fmt.Errorf("update history: %w", err)
	}
	mutationsTotal.WithLabelValues("update").Inc()

	c.replaceAttachmentBestEffort(ctx, historyID, in.Attachment)
	ok, failed := c.reconcileJunctions(ctx, historyID, participants)

	row := optimisticRow(historyID, in, parent, participants)
	c.recon.ApplyUpdate(row)

	hint := &history.PreserveHint{ID: historyID, Stakeholder: row.Stakeholder}
	if _, err := c.scheduleReload(ctx, module, parentID, hint); err != nil {
		log.Warn().Err(err).Str("parentId", parentID).Msg("apphistory: reload after update not queued")
	}

	return &WriteResult{ID: historyID, JunctionsOK: ok, JunctionsFailed: failed}, nil
}

// DeleteHistory removes a history record and its junction rows, drops the
// row locally and schedules a full reload.
func (c *Client) DeleteHistory(ctx context.Context, historyID string) error {
	module, parentID, _, err := c.parentContext()
	if err != nil {
		return err
	}
	if err := c.deleteWithJunctions(ctx, historyID); err != nil {
		return err
	}
	mutationsTotal.WithLabelValues("delete").Inc()

	c.recon.ApplyDelete(historyID)
	if _, err := c.scheduleReload(ctx, module, parentID, nil); err != nil {
		log.Warn().Err(err).Str("parentId", parentID).Msg("apphistory: reload after delete not queued")
	}
	return nil
}

// MoveHistory re-homes a history record under a different application:
// copy the record there, re-link its contacts, copy attachments
// server-side, then delete the original.
func (c *Client) MoveHistory(ctx context.Context, req MoveHistoryRequest) (*WriteResult, error) {
	module, parentID, _, err := c.parentContext()
	if err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(req.HistoryID, "historyId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(req.TargetApplicationID, "targetApplicationId"); err != nil {
		return nil, err
	}

	raw, err := c.bridge.GetRecord(ctx, history.HistoryModule, req.HistoryID)
	if err != nil {
		return nil, fmt.Errorf("move history: %w", err)
	}
	contacts, err := c.loader.JunctionContacts(ctx, req.HistoryID)
	if err != nil {
		return nil, fmt.Errorf("move history: %w", err)
	}

	fields := map[string]interface{}{
		"Name":            moveName(raw, contacts),
		"Application":     map[string]string{"id": req.TargetApplicationID},
		"History_Details": raw.Details,
		"History_Result":  raw.Result,
		"History_Type":    raw.Type,
		"Regarding":       raw.Regarding,
		"Duration_Min":    raw.DurationMin,
		"Date":            raw.Date,
	}
	if sh := history.ResolveStakeholder(*raw); sh != nil {
		fields["Stakeholder"] = map[string]string{"id": sh.ID, "name": sh.Name}
	}

	newID, err := c.bridge.InsertRecord(ctx, history.HistoryModule, fields)
	if err != nil {
		return nil, fmt.Errorf("move history: %w", err)
	}
	mutationsTotal.WithLabelValues("move").Inc()

	ok, failed := 0, 0
	for _, jc := range contacts {
		if jc.Contact.ID == "" {
			continue
		}
		if err := c.insertJunction(ctx, newID, jc.Contact.ID); err != nil {
			failed++
			continue
		}
		ok++
	}

	args, err := json.Marshal(map[string]string{
		"fromModule": history.LegacyHistoryModule,
		"toModule":   history.HistoryModule,
		"fromID":     req.HistoryID,
		"ToID":       newID,
	})
	if err != nil {
		return nil, err
	}
	if err := c.bridge.ExecuteFunction(ctx, copyAttachmentsFunction, map[string]string{"arguments": string(args)}); err != nil {
		log.Warn().Err(err).Str("historyId", req.HistoryID).Msg("apphistory: attachment copy failed during move")
	}

	if err := c.deleteWithJunctions(ctx, req.HistoryID); err != nil {
		return nil, fmt.Errorf("move history: original not removed: %w", err)
	}

	c.recon.ApplyDelete(req.HistoryID)
	if _, err := c.scheduleReload(ctx, module, parentID, nil); err != nil {
		log.Warn().Err(err).Str("parentId", parentID).Msg("apphistory: reload after move not queued")
	}

	return &WriteResult{ID: newID, JunctionsOK: ok, JunctionsFailed: failed}, nil
}

// ListRelatedApplications returns the applications related to a record,
// used to pick a move target.
func (c *Client) ListRelatedApplications(ctx context.Context, module, recordID string) ([]LookupRef, error) {
	raws, err := c.bridge.GetRelatedRecords(ctx, module, recordID, history.ApplicationsModule)
	if err != nil {
		return nil, fmt.Errorf("list related applications: %w", err)
	}
	out := make([]LookupRef, 0, len(raws))
	for _, raw := range raws {
		out = append(out, LookupRef{ID: raw.ID, Name: raw.Name})
	}
	return out, nil
}

// ScheduleReload queues a background refetch of the loaded parent's rows.
func (c *Client) ScheduleReload(ctx context.Context) (ReloadAck, error) {
	module, parentID, _, err := c.parentContext()
	if err != nil {
		return ReloadAck{}, err
	}
	return c.scheduleReload(ctx, module, parentID, nil)
}

// ------------------------- helpers -------------------------

func (c *Client) parentContext() (module, parentID string, parent *types.ParentRecord, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parent == nil {
		return "", "", nil, ErrNotLoaded
	}
	return c.module, c.parentID, c.parent, nil
}

func (c *Client) scheduleReload(ctx context.Context, module, parentID string, hint *history.PreserveHint) (ReloadAck, error) {
	ack, err := c.recon.ScheduleReload(ctx, module, parentID, hint)
	if err != nil {
		reloadsRejectedTotal.Inc()
		if errors.Is(err, shardqueue.ErrQueueFull) {
			return ack, fmt.Errorf("%w: %v", ErrBackPressure, err)
		}
		return ack, err
	}
	reloadsQueuedTotal.WithLabelValues(job.ShardLabel(parentID)).Inc()
	return ack, nil
}

func (c *Client) insertJunction(ctx context.Context, historyID, contactID string) error {
	_, err := c.bridge.InsertRecord(ctx, history.JunctionModule, map[string]interface{}{
		"Application_Hstory": map[string]string{"id": historyID},
		"Contact":            map[string]string{"id": contactID},
	})
	if err != nil {
		junctionFailuresTotal.Inc()
		log.Warn().Err(err).Str("historyId", historyID).Str("contactId", contactID).
			Msg("apphistory: junction insert failed")
	}
	return err
}

// insertJunctions links each participant to the history record. Failures
// are skipped per contact; the mutation itself already succeeded.
func (c *Client) insertJunctions(ctx context.Context, historyID string, participants []types.Participant) (ok, failed int) {
	for _, p := range participants {
		if p.ID == "" {
			continue
		}
		if err := c.insertJunction(ctx, historyID, p.ID); err != nil {
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}

// reconcileJunctions diffs the stored junction rows against the submitted
// participants: removed contacts get their junction rows deleted, new ones
// get rows inserted. Both directions are best-effort.
func (c *Client) reconcileJunctions(ctx context.Context, historyID string, participants []types.Participant) (ok, failed int) {
	existing, err := c.loader.JunctionContacts(ctx, historyID)
	if err != nil {
		log.Warn().Err(err).Str("historyId", historyID).Msg("apphistory: junction listing failed, links not reconciled")
		return 0, len(participants)
	}

	selected := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.ID != "" {
			selected[p.ID] = true
		}
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, jc := range existing {
		if jc.Contact.ID != "" {
			existingIDs[jc.Contact.ID] = true
		}
	}

	for _, jc := range existing {
		if jc.Contact.ID == "" || selected[jc.Contact.ID] {
			continue
		}
		if err := c.bridge.DeleteRecord(ctx, history.JunctionModule, jc.RowID); err != nil {
			junctionFailuresTotal.Inc()
			log.Warn().Err(err).Str("junctionId", jc.RowID).Msg("apphistory: junction delete failed")
			failed++
			continue
		}
		ok++
	}

	for _, p := range participants {
		if p.ID == "" || existingIDs[p.ID] {
			continue
		}
		if err := c.insertJunction(ctx, historyID, p.ID); err != nil {
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}

// deleteWithJunctions removes a history record's junction rows first, then
// the record itself.
func (c *Client) deleteWithJunctions(ctx context.Context, historyID string) error {
	contacts, err := c.loader.JunctionContacts(ctx, historyID)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	for _, jc := range contacts {
		if err := c.bridge.DeleteRecord(ctx, history.JunctionModule, jc.RowID); err != nil {
			return fmt.Errorf("delete history: junction %s: %w", jc.RowID, err)
		}
	}
	if err := c.bridge.DeleteRecord(ctx, history.HistoryModule, historyID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// resolveParticipants falls back to the parent's primary contact when the
// form supplied nobody, so a history record always names someone.
func resolveParticipants(in types.HistoryInput, parent *types.ParentRecord) []types.Participant {
	if len(in.Participants) > 0 {
		return in.Participants
	}
	if parent.Contact != nil && parent.Contact.ID != "" {
		return []types.Participant{{ID: parent.Contact.ID, FullName: parent.Contact.Name}}
	}
	return nil
}

// buildFields assembles the record payload for create and update. Blank
// duration and date are written as explicit nulls so an update can clear
// them.
func buildFields(in types.HistoryInput, parent *types.ParentRecord, participants []types.Participant, parentID string) map[string]interface{} {
	fields := map[string]interface{}{
		"Name":            history.ComposeName(parent.Name, participants),
		"History_Details": in.Details,
		"Regarding":       in.Regarding,
		"History_Result":  in.Result,
		"History_Type":    in.Type,
		"Application":     map[string]string{"id": parentID},
	}

	if in.Owner != nil {
		fields["Owner"] = map[string]string{"id": in.Owner.ID}
	}
	if sh := effectiveStakeholder(in, parent); sh != nil {
		fields["Stakeholder"] = map[string]string{"id": sh.ID, "name": sh.Name}
	}

	if in.DurationMin != "" {
		fields["Duration_Min"] = in.DurationMin
	} else {
		fields["Duration_Min"] = nil
	}
	if in.Date != nil {
		fields["Date"] = in.Date.Format(dateFieldLayout)
	} else {
		fields["Date"] = nil
	}
	return fields
}

// effectiveStakeholder prefers the form value, falling back to the parent
// record's stakeholder.
func effectiveStakeholder(in types.HistoryInput, parent *types.ParentRecord) *types.StakeholderRef {
	if in.Stakeholder != nil && in.Stakeholder.ID != "" {
		return in.Stakeholder
	}
	if parent.Stakeholder != nil && parent.Stakeholder.ID != "" {
		return parent.Stakeholder
	}
	return nil
}

// optimisticRow is the locally built row shown until the background reload
// confirms it. Display fallbacks match what a reload would produce.
func optimisticRow(id string, in types.HistoryInput, parent *types.ParentRecord, participants []types.Participant) types.HistoryRow {
	row := types.HistoryRow{
		ID:           id,
		Name:         history.ComposeName(parent.Name, participants),
		Date:         in.Date,
		Type:         orFallback(in.Type, history.FallbackType),
		Result:       orFallback(in.Result, history.FallbackResult),
		DurationMin:  orFallback(in.DurationMin, history.FallbackDuration),
		Regarding:    orFallback(in.Regarding, history.FallbackRegarding),
		Details:      orFallback(in.Details, history.FallbackDetails),
		OwnerName:    history.FallbackOwner,
		Stakeholder:  effectiveStakeholder(in, parent),
		Participants: participants,
	}
	if in.Owner != nil && in.Owner.FullName != "" {
		row.OwnerName = in.Owner.FullName
	}
	return row
}

func orFallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// moveName names the copied record after its first linked contact, keeping
// the original name when no contact is linked.
func moveName(raw *types.RawRecord, contacts []types.JunctionContact) string {
	for _, jc := range contacts {
		if jc.Contact.Name != "" {
			return jc.Contact.Name
		}
	}
	if raw.Name != "" {
		return raw.Name
	}
	return history.FallbackName
}
