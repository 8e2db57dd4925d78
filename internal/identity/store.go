package identity

import "context"

// Store is the read surface the registry needs. Principal writes (signup,
// org management) belong to the account application, not to this core.
// Lookups return ErrNotFound when no row matches.
type Store interface {
	UserByBUID(ctx context.Context, buid string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)

	OrganizationByBUID(ctx context.Context, buid string) (*Organization, error)
	OrganizationsOwnedBy(ctx context.Context, userID string) ([]*Organization, error)

	TeamsByOrganization(ctx context.Context, orgID string) ([]*Team, error)
}
