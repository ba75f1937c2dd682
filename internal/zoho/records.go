package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	apperrors "github.com/easypluginz/apphistory/internal/errors"
	"github.com/easypluginz/apphistory/internal/types"
)

// apiPrefix is the REST API version segment shared by all endpoints.
const apiPrefix = "/crm/v8"

// newRequest builds a request with a fresh correlation id so server-side
// logs can be tied back to one SDK call.
func newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// writeResponse is the per-record acknowledgement returned by insert,
// update and delete endpoints.
type writeResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// GetRecord fetches a single record by id.
func GetRecord(ctx context.Context, httpClient *http.Client, baseURL, module, id string) (*types.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateModule(module); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s%s/%s/%s", baseURL, apiPrefix, module, id)
	httpReq, err := newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network("get record", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, types.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "get record")
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	recs := env.Records()
	if len(recs) == 0 {
		return nil, types.ErrNotFound
	}
	var rec types.RawRecord
	if err := json.Unmarshal(recs[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertRecord creates a record with the given fields and returns the new
// id. Workflows are triggered, matching interactive record creation.
func InsertRecord(ctx context.Context, httpClient *http.Client, baseURL, module string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := types.ValidateModule(module); err != nil {
		return "", err
	}
	body, err := json.Marshal(map[string]interface{}{
		"data":    []map[string]interface{}{fields},
		"trigger": []string{"workflow"},
	})
	if err != nil {
		return "", err
	}
	reqURL := fmt.Sprintf("%s%s/%s", baseURL, apiPrefix, module)
	httpReq, err := newRequest(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", apperrors.Network("insert record", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", statusError(resp, "insert record")
	}

	var wr writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", err
	}
	if len(wr.Data) == 0 || wr.Data[0].Details.ID == "" {
		return "", fmt.Errorf("insert record: response carried no id")
	}
	return wr.Data[0].Details.ID, nil
}

// UpdateRecord patches the given fields on an existing record.
func UpdateRecord(ctx context.Context, httpClient *http.Client, baseURL, module, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateModule(module); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return err
	}
	body, err := json.Marshal(map[string]interface{}{
		"data": []map[string]interface{}{fields},
	})
	if err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s%s/%s/%s", baseURL, apiPrefix, module, id)
	httpReq, err := newRequest(ctx, http.MethodPut, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Network("update record", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "update record")
	}
	return nil
}

// DeleteRecord removes a record by id.
func DeleteRecord(ctx context.Context, httpClient *http.Client, baseURL, module, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateModule(module); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s%s/%s/%s", baseURL, apiPrefix, module, id)
	httpReq, err := newRequest(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Network("delete record", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp, "delete record")
	}
	return nil
}

// GetRelatedRecords lists the records of a related list on a parent record.
// An empty related list is a 204, not an error.
func GetRelatedRecords(ctx context.Context, httpClient *http.Client, baseURL, module, id, relation string) ([]types.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateModule(module); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(id, "recordId"); err != nil {
		return nil, err
	}
	if err := types.ValidateIDPresent(relation, "relation"); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s%s/%s/%s/%s", baseURL, apiPrefix, module, id, relation)
	httpReq, err := newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network("get related records", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "get related records")
	}
	return decodeRecordEnvelope(resp.Body)
}

// SearchByWord runs a word search against a module. No matches is a 204.
func SearchByWord(ctx context.Context, httpClient *http.Client, baseURL, module, word string) ([]types.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateModule(module); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s%s/%s/search?word=%s", baseURL, apiPrefix, module, url.QueryEscape(word))
	httpReq, err := newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network("search records", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "search records")
	}
	return decodeRecordEnvelope(resp.Body)
}

func decodeRecordEnvelope(r io.Reader) ([]types.RawRecord, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, err
	}
	raws := env.Records()
	out := make([]types.RawRecord, 0, len(raws))
	for _, raw := range raws {
		var rec types.RawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// statusError reads up to 2 KiB of the failed response body and classifies
// the status for the retry machinery.
func statusError(resp *http.Response, operation string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return apperrors.FromStatus(resp.StatusCode, string(body), operation)
}
