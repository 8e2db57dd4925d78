package grants

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/kracekumar/lastuser/internal/audit"
	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/field"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/obs"
)

// AssignToUser replaces the full permission set a client holds for a user.
// The target is a username or email address; every permission must be
// assignable under the client's owner.
func (s *Service) AssignToUser(ctx context.Context, acting *identity.User, client *Client, login string, permissionIDs []string) (*UserGrant, error) {
	if acting == nil {
		return nil, errors.New("acting user is required")
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}

	var errs field.Errors
	user, err := s.dir.LookupUser(ctx, login)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrUnknownUser):
		errs.Add("user", identity.ErrUnknownUser, "user does not exist")
	default:
		return nil, err
	}
	perms, err := s.checkPermissions(ctx, &errs, client, permissionIDs)
	if err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		rejected("user_grant", errs)
		return nil, err
	}

	if err := s.grants.ReplaceUserGrant(ctx, client.ID, user.ID, perms); err != nil {
		return nil, err
	}
	obs.GrantReplaced("user")
	_ = audit.LogEvent(ctx, "grant.user.replace", map[string]any{
		"actor":       acting.BUID,
		"client":      client.BUID,
		"user":        user.BUID,
		"permissions": len(perms),
	})
	return &UserGrant{ClientID: client.ID, UserID: user.ID, Permissions: perms}, nil
}

// AssignToTeam replaces the full permission set a client holds for a team.
// Only organization-owned clients hold team grants, and the team must
// belong to the owning organization.
func (s *Service) AssignToTeam(ctx context.Context, acting *identity.User, client *Client, teamBUID string, permissionIDs []string) (*TeamGrant, error) {
	if acting == nil {
		return nil, errors.New("acting user is required")
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	if !client.OwnedByOrg() {
		return nil, fmt.Errorf("%w: client is not owned by an organization", ErrInvalidInput)
	}

	var errs field.Errors
	team, err := s.dir.TeamByBUID(ctx, client.OwnerOrgID, teamBUID)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrUnknownTeam):
		errs.Add("team", identity.ErrUnknownTeam, "unknown team")
	default:
		return nil, err
	}
	perms, err := s.checkPermissions(ctx, &errs, client, permissionIDs)
	if err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		rejected("team_grant", errs)
		return nil, err
	}

	if err := s.grants.ReplaceTeamGrant(ctx, client.ID, team.ID, perms); err != nil {
		return nil, err
	}
	obs.GrantReplaced("team")
	_ = audit.LogEvent(ctx, "grant.team.replace", map[string]any{
		"actor":       acting.BUID,
		"client":      client.BUID,
		"team":        team.BUID,
		"permissions": len(perms),
	})
	return &TeamGrant{ClientID: client.ID, TeamID: team.ID, Permissions: perms}, nil
}

// RevokeFromUser removes a client's grant for a user entirely.
func (s *Service) RevokeFromUser(ctx context.Context, acting *identity.User, client *Client, login string) error {
	if acting == nil {
		return errors.New("acting user is required")
	}
	if client == nil {
		return fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	user, err := s.dir.LookupUser(ctx, login)
	if err != nil {
		return err
	}
	if err := s.grants.DeleteUserGrant(ctx, client.ID, user.ID); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "grant.user.revoke", map[string]any{
		"actor":  acting.BUID,
		"client": client.BUID,
		"user":   user.BUID,
	})
	return nil
}

// RevokeFromTeam removes a client's grant for a team entirely.
func (s *Service) RevokeFromTeam(ctx context.Context, acting *identity.User, client *Client, teamBUID string) error {
	if acting == nil {
		return errors.New("acting user is required")
	}
	if client == nil {
		return fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	if !client.OwnedByOrg() {
		return fmt.Errorf("%w: client is not owned by an organization", ErrInvalidInput)
	}
	team, err := s.dir.TeamByBUID(ctx, client.OwnerOrgID, teamBUID)
	if err != nil {
		return err
	}
	if err := s.grants.DeleteTeamGrant(ctx, client.ID, team.ID); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "grant.team.revoke", map[string]any{
		"actor":  acting.BUID,
		"client": client.BUID,
		"team":   team.BUID,
	})
	return nil
}

// GrantedToUser returns the permissions a client currently holds for a
// user, sorted by name. Permissions that left the client's owner context
// since they were granted are filtered out.
func (s *Service) GrantedToUser(ctx context.Context, client *Client, userID string) ([]*catalog.Permission, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	granted, err := s.grants.UserGrantPermissions(ctx, client.ID, userID)
	if err != nil {
		return nil, err
	}
	return s.materialize(ctx, client, granted)
}

// GrantedToTeam returns the permissions a client currently holds for a
// team, sorted by name.
func (s *Service) GrantedToTeam(ctx context.Context, client *Client, teamID string) ([]*catalog.Permission, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	granted, err := s.grants.TeamGrantPermissions(ctx, client.ID, teamID)
	if err != nil {
		return nil, err
	}
	return s.materialize(ctx, client, granted)
}

// checkPermissions normalizes a submitted permission set and verifies every
// entry is assignable under the client's owner. It returns the ids sorted.
func (s *Service) checkPermissions(ctx context.Context, errs *field.Errors, client *Client, permissionIDs []string) ([]string, error) {
	cleaned := lo.Uniq(lo.FilterMap(permissionIDs, func(id string, _ int) (string, bool) {
		id = strings.TrimSpace(id)
		return id, id != ""
	}))
	if len(cleaned) == 0 {
		errs.Add("perms", ErrInvalidInput, "at least one permission is required")
		return nil, nil
	}
	avail, err := s.perms.PermissionsFor(ctx, client.OwnerUserID, client.OwnerOrgID)
	if err != nil {
		return nil, err
	}
	known := lo.SliceToMap(avail, func(p *catalog.Permission) (string, bool) { return p.ID, true })
	for _, id := range cleaned {
		if !known[id] {
			errs.Add("perms", ErrPermissionNotAvailable, "permission %q is not assignable in this context", id)
		}
	}
	sort.Strings(cleaned)
	return cleaned, nil
}

func (s *Service) materialize(ctx context.Context, client *Client, grantedIDs []string) ([]*catalog.Permission, error) {
	if len(grantedIDs) == 0 {
		return nil, nil
	}
	avail, err := s.perms.PermissionsFor(ctx, client.OwnerUserID, client.OwnerOrgID)
	if err != nil {
		return nil, err
	}
	byID := lo.SliceToMap(avail, func(p *catalog.Permission) (string, *catalog.Permission) { return p.ID, p })
	out := make([]*catalog.Permission, 0, len(grantedIDs))
	for _, id := range grantedIDs {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
