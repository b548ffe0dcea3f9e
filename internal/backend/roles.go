package backend

import (
	"context"
	"net/http"

	"github.com/meridian-hq/meridian-portal/internal/authz"
)

// CreateRoleData carries the fields for role creation. Permission keys are
// passed through untouched; the backend owns their meaning.
type CreateRoleData struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
	Description string   `json:"description,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

// UpdateRoleData carries partial role updates.
type UpdateRoleData struct {
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Description string   `json:"description,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

// UpdatePermissionsData replaces a role's permission list wholesale.
type UpdatePermissionsData struct {
	Permissions []string `json:"permissions"`
}

// ListRoles returns every role.
func (c *Client) ListRoles(ctx context.Context, token string) ([]authz.Role, error) {
	var out []authz.Role
	if err := c.do(ctx, http.MethodGet, "/roles", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRole fetches a role by ID.
func (c *Client) GetRole(ctx context.Context, id, token string) (*authz.Role, error) {
	var out authz.Role
	if err := c.do(ctx, http.MethodGet, "/roles/"+id, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, data CreateRoleData, token string) (*authz.Role, error) {
	var out authz.Role
	if err := c.do(ctx, http.MethodPost, "/roles", token, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRole applies a partial update to a role.
func (c *Client) UpdateRole(ctx context.Context, id string, data UpdateRoleData, token string) (*authz.Role, error) {
	var out authz.Role
	if err := c.do(ctx, http.MethodPatch, "/roles/"+id, token, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRolePermissions replaces the permission list of a role.
func (c *Client) UpdateRolePermissions(ctx context.Context, id string, data UpdatePermissionsData, token string) (*authz.Role, error) {
	var out authz.Role
	if err := c.do(ctx, http.MethodPatch, "/roles/"+id+"/permissions", token, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, id, token string) error {
	return c.do(ctx, http.MethodDelete, "/roles/"+id, token, nil, nil)
}
