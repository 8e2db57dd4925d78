package catalog

import (
	"context"

	"github.com/kracekumar/lastuser/internal/identity"
)

// ResourceStore persists resources and their actions. Lookups return
// ErrNotFound when no row matches. Creates fill in ID and timestamps;
// updates refresh UpdatedAt and report ErrNotFound for a missing row.
type ResourceStore interface {
	ResourceByID(ctx context.Context, id string) (*Resource, error)
	ResourceByName(ctx context.Context, name string) (*Resource, error)
	CreateResource(ctx context.Context, res *Resource) error
	UpdateResource(ctx context.Context, res *Resource) error

	ActionByName(ctx context.Context, resourceID, name string) (*ResourceAction, error)
	CreateAction(ctx context.Context, act *ResourceAction) error
	UpdateAction(ctx context.Context, act *ResourceAction) error
}

// PermissionStore persists permissions. The two name lookups implement the
// split namespace: one global, one per owner.
type PermissionStore interface {
	GlobalPermissionByName(ctx context.Context, name string) (*Permission, error)
	OwnedPermissionByName(ctx context.Context, owner identity.Owner, name string) (*Permission, error)
	CreatePermission(ctx context.Context, perm *Permission) error
	UpdatePermission(ctx context.Context, perm *Permission) error

	// PermissionsFor lists the permissions assignable in an owner's
	// editing context: every global permission plus the owner's own.
	// Exactly one of the two ids is set.
	PermissionsFor(ctx context.Context, ownerUserID, ownerOrgID string) ([]*Permission, error)
}

// ContextResolver authorizes a permission context against the acting user.
// *identity.Registry satisfies it.
type ContextResolver interface {
	AuthorizeOwner(ctx context.Context, acting *identity.User, buid string) (identity.Owner, error)
}
