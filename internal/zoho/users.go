package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/easypluginz/apphistory/internal/errors"
	"github.com/easypluginz/apphistory/internal/types"
)

type usersResponse struct {
	Users []types.OwnerEntry `json:"users"`
}

// ListUsers fetches the full org user directory. Filtering down to usable
// owners (active, named) is the loader's job, not the transport's.
func ListUsers(ctx context.Context, httpClient *http.Client, baseURL string) ([]types.OwnerEntry, error) {
	users, err := fetchUsers(ctx, httpClient, baseURL, "AllUsers", "list users")
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CurrentUser fetches the user the session is authenticated as.
func CurrentUser(ctx context.Context, httpClient *http.Client, baseURL string) (*types.OwnerEntry, error) {
	users, err := fetchUsers(ctx, httpClient, baseURL, "CurrentUser", "get current user")
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("get current user: empty response")
	}
	return &users[0], nil
}

func fetchUsers(ctx context.Context, httpClient *http.Client, baseURL, userType, operation string) ([]types.OwnerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s%s/users?type=%s", baseURL, apiPrefix, userType)
	httpReq, err := newRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, operation)
	}

	var ur usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, err
	}
	return ur.Users, nil
}
