package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/easypluginz/apphistory/internal/types"
	"github.com/easypluginz/apphistory/internal/zoho"
)

// Module and related-list API names.
const (
	HistoryModule       = "Applications_History"
	JunctionModule      = "Application_Hstory"
	ContactsRelation    = "Contacts4"
	HistoryRelation     = "Application_History"
	AccountsModule      = "Accounts"
	ApplicationsModule  = "Applications"
	DealsModule         = "Deals"
	LegacyHistoryModule = "History1"
)

// bulkLimit caps one COQL page.
const bulkLimit = 2000

// bulkModules lists host modules whose history can be fetched via COQL.
// Anything else goes straight to the related-list path.
var bulkModules = map[string]bool{
	"Applications": true,
	"Application":  true,
	"Deals":        true,
}

// Loader assembles everything the widget needs on open: the normalized
// history rows for one parent record plus the owner directory, current
// user, parent snapshot and type catalog.
//
// Rows load through two paths. COQL is primary for supported host modules
// because it fetches the whole set in one round trip, but it cannot
// traverse to the stakeholder. The related-list path is the fallback and
// the only path for other modules.
type Loader struct {
	Records zoho.RecordAPI
	Queries zoho.QueryAPI
	Users   zoho.UserAPI
}

// NewLoader wires a loader over the bridge.
func NewLoader(b zoho.Bridge) *Loader {
	return &Loader{Records: b, Queries: b, Users: b}
}

// Load performs the full initial fetch. Any error here is fatal to the
// caller; partial results are never returned.
func (l *Loader) Load(ctx context.Context, module, parentID string) (*types.LoadResult, error) {
	if err := types.ValidateModule(module); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(parentID, "parentId"); err != nil {
		return nil, err
	}

	users, err := l.Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	owners, dir := BuildOwnerDirectory(users)

	current, err := l.Users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	parent, err := l.loadParent(ctx, module, parentID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	raws, err := l.FetchRaw(ctx, module, parentID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	rows := NormalizeRecords(raws, dir)
	sortRowsByDateDesc(rows)

	return &types.LoadResult{
		Rows:        rows,
		Owners:      owners,
		CurrentUser: current,
		Parent:      parent,
		TypeCatalog: TypeCatalog(rows),
	}, nil
}

// FetchRaw returns the raw history records for a parent, choosing the
// query path by host module and falling back on COQL failure.
func (l *Loader) FetchRaw(ctx context.Context, module, parentID string) ([]types.RawRecord, error) {
	if bulkModules[module] {
		raws, err := l.Queries.Query(ctx, BulkQuery(parentID, 0, bulkLimit))
		if err == nil {
			return raws, nil
		}
		log.Warn().Err(err).Str("parentId", parentID).
			Msg("history: bulk query failed, falling back to related list")
	}
	return l.Records.GetRelatedRecords(ctx, module, parentID, HistoryRelation)
}

// BulkQuery builds the COQL statement for one page of a parent's history.
func BulkQuery(parentID string, offset, limit int) string {
	return fmt.Sprintf(
		"SELECT Name, id, Date, History_Type, History_Result, Regarding, History_Details, Owner, Duration_Min "+
			"FROM Applications_History WHERE Application = '%s' LIMIT %d, %d",
		parentID, offset, limit)
}

// JunctionContacts fetches the contact junction rows for a history record.
// Each row pairs the junction row id (needed to delete the link) with the
// contact it points at.
func (l *Loader) JunctionContacts(ctx context.Context, historyID string) ([]types.JunctionContact, error) {
	raws, err := l.Records.GetRelatedRecords(ctx, HistoryModule, historyID, ContactsRelation)
	if err != nil {
		return nil, fmt.Errorf("load junction contacts: %w", err)
	}
	out := make([]types.JunctionContact, 0, len(raws))
	for _, raw := range raws {
		jc := types.JunctionContact{RowID: raw.ID}
		if raw.ContactDetails != nil {
			jc.Contact = types.LookupRef{ID: raw.ContactDetails.ID, Name: raw.ContactDetails.DisplayName()}
		}
		out = append(out, jc)
	}
	return out, nil
}

// LoadParticipants resolves the contacts attached to a history record into
// participant form. Junction-shaped rows are unwrapped through
// Contact_Details; rows that carry the contact fields directly decode
// as-is.
func (l *Loader) LoadParticipants(ctx context.Context, historyID string) ([]types.Participant, error) {
	raws, err := l.Records.GetRelatedRecords(ctx, HistoryModule, historyID, ContactsRelation)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	out := make([]types.Participant, 0, len(raws))
	for _, raw := range raws {
		if raw.ContactDetails != nil {
			out = append(out, types.Participant{
				ID:       raw.ContactDetails.ID,
				FullName: raw.ContactDetails.DisplayName(),
			})
			continue
		}
		var p types.Participant
		if err := unmarshalFields(raw, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			p.ID = raw.ID
		}
		out = append(out, p)
	}
	return out, nil
}

func (l *Loader) loadParent(ctx context.Context, module, parentID string) (*types.ParentRecord, error) {
	raw, err := l.Records.GetRecord(ctx, module, parentID)
	if err != nil {
		return nil, err
	}
	var parent types.ParentRecord
	if err := unmarshalFields(*raw, &parent); err != nil {
		return nil, err
	}
	if parent.ID == "" {
		parent.ID = raw.ID
	}
	return &parent, nil
}

// unmarshalFields re-decodes a raw record's retained fields into a typed
// struct.
func unmarshalFields(raw types.RawRecord, dst interface{}) error {
	buf, err := json.Marshal(raw.AllFields)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dst)
}

// sortRowsByDateDesc orders newest first; dateless rows sink to the end in
// stable order.
func sortRowsByDateDesc(rows []types.HistoryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].Date, rows[j].Date
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.After(*dj)
		}
	})
}
