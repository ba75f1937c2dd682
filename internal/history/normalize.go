package history

import (
	"strings"
	"time"

	"github.com/easypluginz/apphistory/internal/types"
)

// Display fallbacks baked into normalized rows. They are presentation
// values only and must never be written back to the backend.
const (
	FallbackName      = "No Name"
	FallbackType      = "Unknown Type"
	FallbackResult    = "No Result"
	FallbackDuration  = "N/A"
	FallbackRegarding = "No Regarding"
	FallbackDetails   = "No Details"
	FallbackOwner     = "Unknown Owner"
)

// dateLayouts covers the timestamp shapes the backend emits across the two
// query paths.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02",
}

// OwnerDirectory maps user id to display name.
type OwnerDirectory map[string]string

// BuildOwnerDirectory filters the raw user list down to usable owners
// (named, with an id, active or with no status at all) and builds the
// id-to-name lookup used during owner resolution.
func BuildOwnerDirectory(users []types.OwnerEntry) ([]types.OwnerEntry, OwnerDirectory) {
	owners := make([]types.OwnerEntry, 0, len(users))
	dir := make(OwnerDirectory, len(users))
	for _, u := range users {
		if u.FullName == "" || u.ID == "" {
			continue
		}
		if u.Status != "" && u.Status != "active" {
			continue
		}
		owners = append(owners, u)
		dir[u.ID] = u.FullName
	}
	return owners, dir
}

// NormalizeRecord converts one raw backend record into the canonical row
// shape, applying display fallbacks and resolving the owner and
// stakeholder references.
func NormalizeRecord(raw types.RawRecord, dir OwnerDirectory) types.HistoryRow {
	return types.HistoryRow{
		ID:          raw.ID,
		Name:        fallback(raw.Name, FallbackName),
		Date:        parseDate(raw.Date),
		Type:        fallback(raw.Type, FallbackType),
		Result:      fallback(raw.Result, FallbackResult),
		DurationMin: fallback(raw.DurationMin, FallbackDuration),
		Regarding:   fallback(raw.Regarding, FallbackRegarding),
		Details:     fallback(raw.Details, FallbackDetails),
		OwnerName:   ResolveOwnerName(raw.Owner, dir),
		Stakeholder: ResolveStakeholder(raw),
	}
}

// NormalizeRecords maps NormalizeRecord over a batch.
func NormalizeRecords(raws []types.RawRecord, dir OwnerDirectory) []types.HistoryRow {
	rows := make([]types.HistoryRow, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, NormalizeRecord(raw, dir))
	}
	return rows
}

// ResolveOwnerName turns whichever owner encoding the backend sent into a
// display name.
//
// A bare id string is looked up in the directory, falling back to the
// literal id so the row still points at someone. An owner object is
// probed name-first (first/last only count as a name when both parts are
// present), then by directory lookup on its id, and only then collapses
// to the unknown fallback.
func ResolveOwnerName(o types.RawOwner, dir OwnerDirectory) string {
	if o.IDOnly != "" {
		if name, ok := dir[o.IDOnly]; ok {
			return name
		}
		return o.IDOnly
	}
	if o.Name != "" {
		return o.Name
	}
	if o.FullName != "" {
		return o.FullName
	}
	if o.FirstName != "" && o.LastName != "" {
		return strings.TrimSpace(o.FirstName + " " + o.LastName)
	}
	if o.ID != "" {
		if name, ok := dir[o.ID]; ok {
			return name
		}
	}
	return FallbackOwner
}

// ResolveStakeholder probes the three stakeholder encodings in priority
// order: flattened dotted columns, the nested lookup object, then the
// junction-sourced reference. The id and the display name resolve through
// independent fall-through chains, so a flat id can still pick up its name
// from the nested object. An id with no resolvable name anywhere keeps an
// empty Name; no id at all means no stakeholder.
func ResolveStakeholder(raw types.RawRecord) *types.StakeholderRef {
	id := raw.FlatStakeholderID
	if id == "" && raw.NestedStakeholder != nil {
		id = raw.NestedStakeholder.ID
	}
	if id == "" && raw.JunctionStakeholder != nil {
		id = raw.JunctionStakeholder.ID
	}
	if id == "" {
		return nil
	}

	name := raw.FlatStakeholderName
	if name == "" && raw.NestedStakeholder != nil {
		name = raw.NestedStakeholder.DisplayName()
	}
	if name == "" && raw.JunctionStakeholder != nil {
		name = raw.JunctionStakeholder.DisplayName()
	}
	return &types.StakeholderRef{ID: id, Name: name}
}

// ComposeName builds the history record name from the parent record and
// the selected participants: "<parent> - <name>, <name>".
func ComposeName(parentName string, participants []types.Participant) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.FullName != "" {
			names = append(names, p.FullName)
		}
	}
	return parentName + " - " + strings.Join(names, ", ")
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func parseDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
