package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kracekumar/lastuser/internal/grants"
	"github.com/kracekumar/lastuser/internal/ids"
)

var (
	_ grants.ClientStore      = (*Store)(nil)
	_ grants.GrantStore       = (*Store)(nil)
	_ grants.PermissionSource = (*Store)(nil)
)

func grantKey(clientID, subjectID string) string {
	return clientID + "\x00" + subjectID
}

func (s *Store) ClientByID(_ context.Context, id string) (*grants.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %s", grants.ErrNotFound, id)
	}
	out := *c
	return &out, nil
}

func (s *Store) ClientByBUID(_ context.Context, buid string) (*grants.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.BUID == buid {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: client %s", grants.ErrNotFound, buid)
}

func (s *Store) CreateClient(_ context.Context, c *grants.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = ids.New()
	c.BUID = ids.NewBUID()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.clients[cp.ID] = &cp
	return nil
}

func (s *Store) UpdateClient(_ context.Context, c *grants.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[c.ID]
	if !ok {
		return fmt.Errorf("%w: client %s", grants.ErrNotFound, c.ID)
	}
	cp := *existing
	cp.Title = c.Title
	cp.Description = c.Description
	cp.Website = c.Website
	cp.RedirectURI = c.RedirectURI
	cp.NotificationURI = c.NotificationURI
	cp.IframeURI = c.IframeURI
	cp.ResourceURI = c.ResourceURI
	cp.AllowAnyLogin = c.AllowAnyLogin
	cp.Trusted = c.Trusted
	cp.UpdatedAt = time.Now().UTC()
	s.clients[cp.ID] = &cp
	return nil
}

func (s *Store) ReassignOwner(_ context.Context, clientID, ownerUserID, ownerOrgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[clientID]
	if !ok {
		return fmt.Errorf("%w: client %s", grants.ErrNotFound, clientID)
	}
	cp := *existing
	cp.OwnerUserID = ownerUserID
	cp.OwnerOrgID = ownerOrgID
	cp.UpdatedAt = time.Now().UTC()
	s.clients[cp.ID] = &cp

	prefix := clientID + "\x00"
	for key := range s.userGrants {
		if strings.HasPrefix(key, prefix) {
			delete(s.userGrants, key)
		}
	}
	for key := range s.teamGrants {
		if strings.HasPrefix(key, prefix) {
			delete(s.teamGrants, key)
		}
	}
	return nil
}

func (s *Store) ReplaceUserGrant(_ context.Context, clientID, userID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGrantRefs(clientID, permissionIDs); err != nil {
		return err
	}
	s.userGrants[grantKey(clientID, userID)] = sortedCopy(permissionIDs)
	return nil
}

func (s *Store) ReplaceTeamGrant(_ context.Context, clientID, teamID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkGrantRefs(clientID, permissionIDs); err != nil {
		return err
	}
	s.teamGrants[grantKey(clientID, teamID)] = sortedCopy(permissionIDs)
	return nil
}

func (s *Store) DeleteUserGrant(_ context.Context, clientID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userGrants, grantKey(clientID, userID))
	return nil
}

func (s *Store) DeleteTeamGrant(_ context.Context, clientID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.teamGrants, grantKey(clientID, teamID))
	return nil
}

func (s *Store) UserGrantPermissions(_ context.Context, clientID, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopy(s.userGrants[grantKey(clientID, userID)]), nil
}

func (s *Store) TeamGrantPermissions(_ context.Context, clientID, teamID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopy(s.teamGrants[grantKey(clientID, teamID)]), nil
}

// checkGrantRefs mirrors the foreign keys of the grant tables: the client
// and every referenced permission must exist.
func (s *Store) checkGrantRefs(clientID string, permissionIDs []string) error {
	if _, ok := s.clients[clientID]; !ok {
		return fmt.Errorf("%w: client %s", grants.ErrNotFound, clientID)
	}
	for _, id := range permissionIDs {
		if _, ok := s.perms[id]; !ok {
			return fmt.Errorf("%w: %s", grants.ErrPermissionNotAvailable, id)
		}
	}
	return nil
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
