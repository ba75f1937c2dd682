package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ------------------------------
// Raw backend shapes
// ------------------------------

// RawRecord is a history record as returned by the backend, before
// normalization. The bulk-query path and the related-list path disagree on
// several encodings (flattened dotted columns vs nested objects, owner as a
// bare id vs an object), so everything polymorphic is captured as raw JSON
// and interpreted lazily.
type RawRecord struct {
	ID          string `json:"-"`
	Name        string `json:"-"`
	Date        string `json:"-"`
	Type        string `json:"-"`
	Result      string `json:"-"`
	Regarding   string `json:"-"`
	Details     string `json:"-"`
	DurationMin string `json:"-"`

	Owner RawOwner `json:"-"`

	// Stakeholder encodings, in resolution priority order.
	FlatStakeholderID   string      `json:"-"`
	FlatStakeholderName string      `json:"-"`
	NestedStakeholder   *RawLookup  `json:"-"`
	JunctionStakeholder *RawLookup  `json:"-"`

	// ContactDetails is set on junction related-list rows, where id is the
	// junction row and the contact hides behind this lookup.
	ContactDetails *RawLookup `json:"-"`

	// AllFields keeps the undecoded payload for callers that need columns
	// this SDK does not model.
	AllFields map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes both query-path shapes into one struct. Unknown
// keys are retained in AllFields.
func (r *RawRecord) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	r.AllFields = fields

	r.ID = rawString(fields["id"])
	r.Name = rawString(fields["Name"])
	r.Date = rawString(fields["Date"])
	r.Type = rawString(fields["History_Type"])
	r.Result = rawString(fields["History_Result"])
	r.Regarding = rawString(fields["Regarding"])
	r.Details = rawString(fields["History_Details"])
	r.DurationMin = rawScalar(fields["Duration_Min"])

	if raw, ok := fields["Owner"]; ok {
		if err := json.Unmarshal(raw, &r.Owner); err != nil {
			return err
		}
	}

	r.FlatStakeholderID = rawString(fields["Contact_History_Info.Stakeholder.id"])
	r.FlatStakeholderName = rawString(fields["Contact_History_Info.Stakeholder.Account_Name"])
	r.NestedStakeholder = rawLookup(fields["Contact_History_Info.Stakeholder"])
	r.JunctionStakeholder = rawLookup(fields["Stakeholder"])
	r.ContactDetails = rawLookup(fields["Contact_Details"])
	return nil
}

// RawLookup is a nested record reference whose display name may arrive
// under either Account_Name or name.
type RawLookup struct {
	ID          string `json:"id"`
	AccountName string `json:"Account_Name"`
	Name        string `json:"name"`
}

// DisplayName prefers Account_Name over name, matching the backend's
// stakeholder envelope.
func (l *RawLookup) DisplayName() string {
	if l == nil {
		return ""
	}
	if l.AccountName != "" {
		return l.AccountName
	}
	return l.Name
}

// RawOwner is an owner reference that arrives either as a bare id string or
// as a user object with any of several name fields populated.
type RawOwner struct {
	// IDOnly is set when the backend sent a plain string.
	IDOnly string

	ID        string
	Name      string
	FullName  string
	FirstName string
	LastName  string
}

// IsZero reports whether no owner information was present at all.
func (o RawOwner) IsZero() bool {
	return o.IDOnly == "" && o.ID == "" && o.Name == "" && o.FullName == "" &&
		o.FirstName == "" && o.LastName == ""
}

func (o *RawOwner) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(b, &o.IDOnly)
	}
	var obj struct {
		ID        string `json:"id"`
		AltID     string `json:"Id"`
		Name      string `json:"name"`
		AltName   string `json:"Name"`
		FullName  string `json:"full_name"`
		AltFull   string `json:"Full_Name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	o.ID = obj.ID
	if o.ID == "" {
		o.ID = obj.AltID
	}
	o.Name = obj.Name
	if o.Name == "" {
		o.Name = obj.AltName
	}
	o.FullName = obj.FullName
	if o.FullName == "" {
		o.FullName = obj.AltFull
	}
	o.FirstName = obj.FirstName
	o.LastName = obj.LastName
	return nil
}

func rawLookup(raw json.RawMessage) *RawLookup {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var l RawLookup
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	if l.ID == "" && l.AccountName == "" && l.Name == "" {
		return nil
	}
	return &l
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// rawScalar stringifies a value that may arrive as a JSON string or number
// (Duration_Min does both depending on the query path).
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
