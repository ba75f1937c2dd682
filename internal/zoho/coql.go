package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	apperrors "github.com/easypluginz/apphistory/internal/errors"
	"github.com/easypluginz/apphistory/internal/types"
)

// Query runs a COQL select statement. The endpoint answers 204 when the
// query matches nothing, which decodes to an empty slice.
func Query(ctx context.Context, httpClient *http.Client, baseURL, query string) ([]types.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"select_query": query})
	if err != nil {
		return nil, err
	}
	httpReq, err := newRequest(ctx, http.MethodPost, baseURL+apiPrefix+"/coql", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network("coql query", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "coql query")
	}
	return decodeRecordEnvelope(resp.Body)
}
