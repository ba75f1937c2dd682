package apphistory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/easypluginz/apphistory/internal/history"
	"github.com/easypluginz/apphistory/internal/types"
)

// SearchStakeholders runs a word search over Accounts. Synchronous; use
// SearchStakeholdersDebounced for type-ahead input.
func (c *Client) SearchStakeholders(ctx context.Context, query string) ([]StakeholderRef, error) {
	raws, err := c.bridge.SearchByWord(ctx, history.AccountsModule, query)
	if err != nil {
		return nil, fmt.Errorf("search stakeholders: %w", err)
	}
	out := make([]StakeholderRef, 0, len(raws))
	for _, raw := range raws {
		out = append(out, StakeholderRef{ID: raw.ID, Name: accountName(raw)})
	}
	return out, nil
}

// SearchStakeholdersDebounced schedules a search once typing settles and
// delivers results to fn. Results for superseded queries are dropped, so
// fn only ever observes the latest query's outcome.
func (c *Client) SearchStakeholdersDebounced(ctx context.Context, query string, fn func([]StakeholderRef, error)) {
	c.searchGate.Expect(query)
	c.searchBounce.Do(func() {
		refs, err := c.SearchStakeholders(ctx, query)
		if !c.searchGate.Admit(query) {
			return
		}
		fn(refs, err)
	})
}

// CancelStakeholderSearch drops any pending debounced search.
func (c *Client) CancelStakeholderSearch() {
	c.searchGate.Expect("")
	c.searchBounce.Cancel()
}

// ResolveStakeholder fetches the display name for an id-only stakeholder
// reference.
func (c *Client) ResolveStakeholder(ctx context.Context, id string) (*StakeholderRef, error) {
	raw, err := c.bridge.GetRecord(ctx, history.AccountsModule, id)
	if err != nil {
		return nil, fmt.Errorf("resolve stakeholder: %w", err)
	}
	return &StakeholderRef{ID: raw.ID, Name: accountName(*raw)}, nil
}

// LoadParticipants returns the contacts linked to a history record.
func (c *Client) LoadParticipants(ctx context.Context, historyID string) ([]Participant, error) {
	return c.loader.LoadParticipants(ctx, historyID)
}

// accountName pulls the Accounts display name, which lives under
// Account_Name rather than Name.
func accountName(raw types.RawRecord) string {
	if f, ok := raw.AllFields["Account_Name"]; ok {
		var s string
		if err := json.Unmarshal(f, &s); err == nil && s != "" {
			return s
		}
	}
	return raw.Name
}
