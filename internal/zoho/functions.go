package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/easypluginz/apphistory/internal/errors"
	"github.com/easypluginz/apphistory/internal/types"
)

// ExecuteFunction invokes a server-side function by API name with string
// arguments. Used for operations the REST API cannot express directly,
// such as copying attachments between records.
func ExecuteFunction(ctx context.Context, httpClient *http.Client, baseURL, name string, args map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(name, "functionName"); err != nil {
		return err
	}
	q := url.Values{"auth_type": {"oauth"}}
	for k, v := range args {
		q.Set(k, v)
	}
	reqURL := fmt.Sprintf("%s%s/functions/%s/actions/execute?%s", baseURL, apiPrefix, name, q.Encode())
	httpReq, err := newRequest(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Network("execute function", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "execute function")
	}
	return nil
}
