package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Registry resolves external identifiers to principals and answers the
// ownership questions the rest of the core depends on.
type Registry struct {
	store Store
}

func NewRegistry(store Store) (*Registry, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	return &Registry{store: store}, nil
}

// Resolve returns the user or organization behind an external identifier.
// Users and organizations share one identifier namespace; users win on the
// (never observed) chance of a collision.
func (r *Registry) Resolve(ctx context.Context, buid string) (Owner, error) {
	buid = strings.TrimSpace(buid)
	if buid == "" {
		return Owner{}, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}
	u, err := r.store.UserByBUID(ctx, buid)
	switch {
	case err == nil:
		return Owner{User: u}, nil
	case !errors.Is(err, ErrNotFound):
		return Owner{}, err
	}
	org, err := r.store.OrganizationByBUID(ctx, buid)
	if err != nil {
		return Owner{}, err
	}
	return Owner{Org: org}, nil
}

// LookupUser finds an active user by username or email address. Logins
// containing "@" are treated as email addresses, everything else as a
// username. Suspended and merged accounts resolve as unknown.
func (r *Registry) LookupUser(ctx context.Context, login string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, fmt.Errorf("%w: empty login", ErrUnknownUser)
	}
	var (
		u   *User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = r.store.UserByEmail(ctx, login)
	} else {
		u, err = r.store.UserByUsername(ctx, login)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, login)
	}
	if err != nil {
		return nil, err
	}
	if u.Status != UserStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, login)
	}
	return u, nil
}

// AuthorizeOwner resolves buid to an owner the acting user controls: the
// acting user themselves, or exactly one organization they own. Anything
// else, including an identifier matching several owned organizations, is
// rejected.
func (r *Registry) AuthorizeOwner(ctx context.Context, acting *User, buid string) (Owner, error) {
	if acting == nil {
		return Owner{}, fmt.Errorf("%w: acting user is required", ErrInvalidOwner)
	}
	buid = strings.TrimSpace(buid)
	if buid == "" {
		return Owner{}, fmt.Errorf("%w: owner is required", ErrInvalidOwner)
	}
	if buid == acting.BUID {
		return Owner{User: acting}, nil
	}
	orgs, err := r.store.OrganizationsOwnedBy(ctx, acting.ID)
	if err != nil {
		return Owner{}, err
	}
	var match []*Organization
	for _, org := range orgs {
		if org.BUID == buid {
			match = append(match, org)
		}
	}
	if len(match) != 1 {
		return Owner{}, fmt.Errorf("%w: %s", ErrInvalidOwner, buid)
	}
	return Owner{Org: match[0]}, nil
}

// TeamByBUID finds a team by external identifier within an organization.
// Exactly one team must match; the lookup never ranges beyond the given
// organization's teams.
func (r *Registry) TeamByBUID(ctx context.Context, orgID, buid string) (*Team, error) {
	orgID = strings.TrimSpace(orgID)
	buid = strings.TrimSpace(buid)
	if orgID == "" || buid == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownTeam)
	}
	teams, err := r.store.TeamsByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var match []*Team
	for _, t := range teams {
		if t.BUID == buid {
			match = append(match, t)
		}
	}
	if len(match) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, buid)
	}
	return match[0], nil
}
