package zoho

import (
	"encoding/json"
)

// Envelope is the response wrapper the CRM API uses. Depending on the
// endpoint (and on whether a middleware connection relayed the call), the
// record payload shows up in one of three places:
//
//  1. a top-level "data" array,
//  2. "details.data",
//  3. "details.statusMessage", which is itself a JSON document (sometimes
//     double-encoded as a string) carrying its own "data" array.
//
// Records and AttachmentRecords probe those locations in the order each
// endpoint family is known to use.
type Envelope struct {
	Data    []json.RawMessage `json:"data"`
	Details *EnvelopeDetails  `json:"details"`
	Status  string            `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
}

// EnvelopeDetails is the nested body used by relayed responses.
type EnvelopeDetails struct {
	Data          []json.RawMessage `json:"data"`
	StatusMessage json.RawMessage   `json:"statusMessage"`
}

// Records returns the record payload for query and record endpoints:
// data, then details.data, then details.statusMessage. A response with no
// payload in any slot yields an empty slice, never an error.
func (e *Envelope) Records() []json.RawMessage {
	if len(e.Data) > 0 {
		return e.Data
	}
	if e.Details != nil {
		if len(e.Details.Data) > 0 {
			return e.Details.Data
		}
		if recs := decodeStatusMessage(e.Details.StatusMessage); len(recs) > 0 {
			return recs
		}
	}
	return nil
}

// AttachmentRecords returns the record payload for attachment listings,
// which relay through the middleware and surface data in statusMessage
// first.
func (e *Envelope) AttachmentRecords() []json.RawMessage {
	if e.Details != nil {
		if recs := decodeStatusMessage(e.Details.StatusMessage); len(recs) > 0 {
			return recs
		}
		if len(e.Details.Data) > 0 {
			return e.Details.Data
		}
	}
	return e.Data
}

// decodeStatusMessage unwraps details.statusMessage, which may be a JSON
// object or a string containing serialized JSON, and extracts its data
// array. Malformed payloads decode to nil rather than erroring; the caller
// treats that as an empty result.
func decodeStatusMessage(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	body := []byte(raw)
	if body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil
		}
		body = []byte(s)
	}
	var inner struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &inner); err != nil {
		return nil
	}
	return inner.Data
}
