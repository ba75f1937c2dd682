package types

import "time"

// ------------------------------
// Core Domain Entities
// ------------------------------

// HistoryRow is the canonical in-memory shape of one Application History
// record, regardless of which query path produced it. Display fallbacks
// ("No Name", "N/A", ...) are baked in at normalization time; they are a
// presentation convenience and must never be written back to the backend.
type HistoryRow struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Date         *time.Time      `json:"date,omitempty"`
	Type         string          `json:"type"`
	Result       string          `json:"result"`
	DurationMin  string          `json:"durationMin"`
	Regarding    string          `json:"regarding"`
	Details      string          `json:"details"`
	OwnerName    string          `json:"ownerName"`
	Stakeholder  *StakeholderRef `json:"stakeholder,omitempty"`
	Participants []Participant   `json:"participants,omitempty"`
}

// StakeholderRef points at an Accounts record. A nil *StakeholderRef means
// "unset"; an ID with an empty Name means the reference is known but the
// display name has not been resolved yet.
type StakeholderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Participant is a contact associated with a history record through the
// junction module.
type Participant struct {
	ID       string `json:"id"`
	FullName string `json:"Full_Name"`
	Email    string `json:"Email,omitempty"`
	Mobile   string `json:"Mobile,omitempty"`
	IDNumber string `json:"ID_Number,omitempty"`
}

// JunctionContact is one row of the contact junction related list: the
// junction row's own id plus the contact it points at.
type JunctionContact struct {
	RowID   string
	Contact LookupRef
}

// OwnerEntry is one row of the CRM user directory.
type OwnerEntry struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Status   string `json:"status,omitempty"`
}

// ParentRecord is the snapshot of the record the widget is embedded in
// (an Application or Deal). Name feeds history-name composition; Contact
// and Stakeholder supply defaults for new history records.
type ParentRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"Name"`
	Contact     *LookupRef      `json:"Contact_Name,omitempty"`
	Stakeholder *StakeholderRef `json:"Stake_Holder,omitempty"`
}

// LookupRef is the generic {id, name} lookup shape the backend uses for
// record references.
type LookupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attachment describes one file attached to a history record.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"File_Name"`
	FileID   string `json:"$file_id,omitempty"`
}
