package grants

import (
	"context"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/identity"
)

// ClientStore persists client registrations. Lookups return ErrNotFound
// when no row matches; creates fill in ID, BUID, and timestamps.
type ClientStore interface {
	ClientByID(ctx context.Context, id string) (*Client, error)
	ClientByBUID(ctx context.Context, buid string) (*Client, error)
	CreateClient(ctx context.Context, c *Client) error

	// UpdateClient writes every mutable field except the owner columns.
	UpdateClient(ctx context.Context, c *Client) error

	// ReassignOwner moves a client to a new owner and revokes every grant
	// held through it, atomically. Exactly one of the two ids is set.
	ReassignOwner(ctx context.Context, clientID, ownerUserID, ownerOrgID string) error
}

// GrantStore persists the permission sets clients hold for users and teams.
// Replace operations swap the entire set atomically.
type GrantStore interface {
	ReplaceUserGrant(ctx context.Context, clientID, userID string, permissionIDs []string) error
	ReplaceTeamGrant(ctx context.Context, clientID, teamID string, permissionIDs []string) error
	DeleteUserGrant(ctx context.Context, clientID, userID string) error
	DeleteTeamGrant(ctx context.Context, clientID, teamID string) error
	UserGrantPermissions(ctx context.Context, clientID, userID string) ([]string, error)
	TeamGrantPermissions(ctx context.Context, clientID, teamID string) ([]string, error)
}

// IdentityDirectory is the slice of the identity registry the grant engine
// needs. *identity.Registry satisfies it.
type IdentityDirectory interface {
	LookupUser(ctx context.Context, login string) (*identity.User, error)
	AuthorizeOwner(ctx context.Context, acting *identity.User, buid string) (identity.Owner, error)
	TeamByBUID(ctx context.Context, orgID, buid string) (*identity.Team, error)
}

// PermissionSource lists the permissions assignable under a client's owner.
// Both storage backends satisfy it.
type PermissionSource interface {
	PermissionsFor(ctx context.Context, ownerUserID, ownerOrgID string) ([]*catalog.Permission, error)
}
