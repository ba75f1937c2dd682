package apphistory

import (
	"github.com/easypluginz/apphistory/internal/history"
	"github.com/easypluginz/apphistory/internal/types"
)

// Public type aliases so SDK consumers can import only this package.

// Domain entities
type (
	HistoryRow      = types.HistoryRow
	StakeholderRef  = types.StakeholderRef
	Participant     = types.Participant
	OwnerEntry      = types.OwnerEntry
	ParentRecord    = types.ParentRecord
	LookupRef       = types.LookupRef
	Attachment      = types.Attachment
	JunctionContact = types.JunctionContact
)

// Requests
type (
	HistoryInput       = types.HistoryInput
	AttachmentUpload   = types.AttachmentUpload
	MoveHistoryRequest = types.MoveHistoryRequest
)

// Responses
type (
	LoadResult  = types.LoadResult
	ReloadAck   = types.ReloadAck
	WriteResult = types.WriteResult
)

// Filtering
type (
	Filter   = history.Filter
	DateMode = history.DateMode
	Period   = history.Period
)

const (
	DateAny    = history.DateAny
	DateLastN  = history.DateLastN
	DateRange  = history.DateRange
	DatePeriod = history.DatePeriod

	PeriodCurrentWeek  = history.PeriodCurrentWeek
	PeriodCurrentMonth = history.PeriodCurrentMonth
	PeriodNextWeek     = history.PeriodNextWeek
)

// Errors re-exported in errors.go
