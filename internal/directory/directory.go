// Package directory declares the boundary contracts the PPA core consumes
// from the surrounding administrative application: the role/user directory
// and the tenant/entity registry. Neither is implemented here beyond a thin
// HTTP client.
package directory

import "context"

// UserInfo carries the display attributes of a directory user.
type UserInfo struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Directory resolves roles to users and users to display attributes.
type Directory interface {
	// UsersWithRole returns the ids of all users currently holding the role.
	UsersWithRole(ctx context.Context, roleID string) ([]string, error)
	// UserExists reports whether the user id is known to the directory.
	UserExists(ctx context.Context, userID string) (bool, error)
	// UserDisplayInfo returns display attributes for a user.
	UserDisplayInfo(ctx context.Context, userID string) (*UserInfo, error)
}

// EntityRegistry resolves target entities (company/client records).
type EntityRegistry interface {
	// EntityExists reports whether the entity exists and is visible to the tenant.
	EntityExists(ctx context.Context, tenantID, entityID string) (bool, error)
	// EntityDisplayName returns the display name of an entity.
	EntityDisplayName(ctx context.Context, entityID string) (string, error)
}
