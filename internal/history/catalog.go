// Package history holds the client-side engine behind the Application
// History widget: row normalization, the dual-path loader, the optimistic
// store and its background reconciler, and the filter pipeline.
package history

import (
	"sort"

	"github.com/easypluginz/apphistory/internal/types"
)

// fixedTypes is the baseline activity-type vocabulary. Records can carry
// types outside this list (imports, legacy data), so the catalog merges
// observed types in rather than rejecting them.
var fixedTypes = []string{
	"Meeting",
	"To-Do",
	"Call",
	"Appointment",
	"Boardroom",
	"Call Billing",
	"Email Billing",
	"Initial Consultation",
	"Mail",
	"Meeting Billing",
	"Personal Activity",
	"Room 1",
	"Room 2",
	"Room 3",
	"Todo Billing",
	"Vacation",
}

// TypeCatalog returns the union of the fixed vocabulary and the types
// observed in rows, deduplicated and sorted. Rows whose backend type was
// null carry the FallbackType display sentinel; that is presentation only
// and never joins the vocabulary.
func TypeCatalog(rows []types.HistoryRow) []string {
	seen := make(map[string]struct{}, len(fixedTypes)+len(rows))
	out := make([]string, 0, len(fixedTypes)+4)
	for _, t := range fixedTypes {
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, r := range rows {
		if r.Type == "" || r.Type == FallbackType {
			continue
		}
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		out = append(out, r.Type)
	}
	sort.Strings(out)
	return out
}
