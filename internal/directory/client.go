package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPClient talks to the directory/registry sidecar of the surrounding
// application. It implements both Directory and EntityRegistry.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new HTTPClient.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, client: http.DefaultClient}
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory request %s: status code %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

var errNotFound = fmt.Errorf("directory: not found")

// UsersWithRole returns the ids of all users currently holding the role.
func (c *HTTPClient) UsersWithRole(ctx context.Context, roleID string) ([]string, error) {
	var users []string
	err := c.getJSON(ctx, "/roles/"+url.PathEscape(roleID)+"/users", &users)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserExists reports whether the user id is known to the directory.
func (c *HTTPClient) UserExists(ctx context.Context, userID string) (bool, error) {
	var info UserInfo
	err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &info)
	if err == errNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UserDisplayInfo returns display attributes for a user.
func (c *HTTPClient) UserDisplayInfo(ctx context.Context, userID string) (*UserInfo, error) {
	var info UserInfo
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// EntityExists reports whether the entity exists and is visible to the tenant.
func (c *HTTPClient) EntityExists(ctx context.Context, tenantID, entityID string) (bool, error) {
	var entity struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.getJSON(ctx, "/tenants/"+url.PathEscape(tenantID)+"/entities/"+url.PathEscape(entityID), &entity)
	if err == errNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EntityDisplayName returns the display name of an entity.
func (c *HTTPClient) EntityDisplayName(ctx context.Context, entityID string) (string, error) {
	var entity struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "/entities/"+url.PathEscape(entityID), &entity); err != nil {
		return "", err
	}
	return entity.Name, nil
}
