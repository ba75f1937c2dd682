package types

import "time"

// ------------------------------
// Request Types
// ------------------------------

// HistoryInput carries the form fields for creating or updating a history
// record. Name is composed by the SDK ("<parent> - <participants>"), never
// supplied by callers.
type HistoryInput struct {
	Type         string
	Result       string
	Regarding    string
	Details      string
	DurationMin  string
	Date         *time.Time
	Owner        *OwnerEntry
	Stakeholder  *StakeholderRef
	Participants []Participant

	// Attachment is uploaded best-effort after the record write succeeds.
	Attachment *AttachmentUpload
}

// AttachmentUpload is an in-memory file to attach to a record.
type AttachmentUpload struct {
	FileName string
	Content  []byte
}

// MoveHistoryRequest re-homes an existing history record under a different
// application: copy the record, re-parent the junction contacts, copy
// attachments server-side, then delete the original.
type MoveHistoryRequest struct {
	HistoryID           string
	TargetApplicationID string
}

// SearchRequest holds parameters for a word search against a module.
type SearchRequest struct {
	Module string
	Query  string
}
