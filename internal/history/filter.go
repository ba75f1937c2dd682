package history

import (
	"strings"
	"time"

	"github.com/easypluginz/apphistory/internal/types"
)

// DateMode selects how the date predicate interprets the filter.
type DateMode int

const (
	// DateAny disables the date predicate.
	DateAny DateMode = iota
	// DateLastN keeps rows whose date is strictly within the last N days.
	DateLastN
	// DateRange keeps rows inside an explicit [start, end] day range.
	DateRange
	// DatePeriod keeps rows between a named period's start and now.
	DatePeriod
)

// Period names the predefined date windows.
type Period string

const (
	PeriodCurrentWeek  Period = "Current Week"
	PeriodCurrentMonth Period = "Current Month"
	PeriodNextWeek     Period = "Next Week"
)

// Filter is the conjunction of up to four predicates over normalized rows.
// Zero-valued members disable their predicate, so a zero Filter passes
// everything through.
type Filter struct {
	// OwnerName matches rows by resolved owner display name.
	OwnerName string

	// Type matches the row's activity type exactly.
	Type string

	// Keyword is matched case-insensitively against name, details and
	// regarding; any of the three suffices.
	Keyword string

	Mode   DateMode
	LastN  int
	Start  time.Time
	End    time.Time
	Period Period

	// Now supplies the clock for relative date math. Defaults to time.Now.
	Now func() time.Time
}

// Apply returns the rows that satisfy every active predicate, preserving
// input order.
func (f Filter) Apply(rows []types.HistoryRow) []types.HistoryRow {
	out := make([]types.HistoryRow, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether one row passes the filter.
func (f Filter) Matches(r types.HistoryRow) bool {
	if f.OwnerName != "" && r.OwnerName != f.OwnerName {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if !f.matchesDate(r) {
		return false
	}
	return f.matchesKeyword(r)
}

func (f Filter) matchesKeyword(r types.HistoryRow) bool {
	kw := strings.ToLower(strings.TrimSpace(f.Keyword))
	if kw == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), kw) ||
		strings.Contains(strings.ToLower(r.Details), kw) ||
		strings.Contains(strings.ToLower(r.Regarding), kw)
}

func (f Filter) matchesDate(r types.HistoryRow) bool {
	switch f.Mode {
	case DateLastN:
		if r.Date == nil {
			return false
		}
		cutoff := f.now().AddDate(0, 0, -f.LastN)
		return r.Date.After(cutoff)

	case DateRange:
		if r.Date == nil {
			return false
		}
		start := startOfDay(f.Start)
		end := endOfDay(f.End)
		return !r.Date.Before(start) && !r.Date.After(end)

	case DatePeriod:
		if r.Date == nil {
			return false
		}
		now := f.now()
		start := PeriodStart(f.Period, now)
		return !r.Date.Before(start) && !r.Date.After(now)

	default:
		return true
	}
}

func (f Filter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// PeriodStart computes the lower bound of a named period relative to now.
// Weeks start on Sunday.
func PeriodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodCurrentWeek:
		return startOfWeek(now)
	case PeriodCurrentMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodNextWeek:
		return startOfWeek(now.AddDate(0, 0, 7))
	default:
		return startOfDay(now)
	}
}

func startOfWeek(t time.Time) time.Time {
	return startOfDay(t.AddDate(0, 0, -int(t.Weekday())))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
