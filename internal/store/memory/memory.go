// Package memory is an in-process implementation of every store interface
// in the core. It backs tests and local development; its semantics mirror
// the Postgres store, including the uniqueness conflicts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/grants"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/ids"
)

// Store holds everything in maps keyed by storage id. All methods are safe
// for concurrent use.
type Store struct {
	mu sync.RWMutex

	users map[string]*identity.User
	orgs  map[string]*identity.Organization
	teams map[string]*identity.Team

	resources map[string]*catalog.Resource
	actions   map[string]*catalog.ResourceAction
	perms     map[string]*catalog.Permission

	clients    map[string]*grants.Client
	userGrants map[string][]string
	teamGrants map[string][]string
}

func New() *Store {
	return &Store{
		users:      make(map[string]*identity.User),
		orgs:       make(map[string]*identity.Organization),
		teams:      make(map[string]*identity.Team),
		resources:  make(map[string]*catalog.Resource),
		actions:    make(map[string]*catalog.ResourceAction),
		perms:      make(map[string]*catalog.Permission),
		clients:    make(map[string]*grants.Client),
		userGrants: make(map[string][]string),
		teamGrants: make(map[string][]string),
	}
}

var _ identity.Store = (*Store)(nil)

// AddUser seeds a user. Missing identifiers and timestamps are filled in;
// the stored copy is returned.
func (s *Store) AddUser(u identity.User) *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.BUID == "" {
		u.BUID = ids.NewBUID()
	}
	if u.Status == "" {
		u.Status = identity.UserStatusActive
	}
	u.Username = strings.ToLower(u.Username)
	u.Email = strings.ToLower(u.Email)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = &u
	out := u
	return &out
}

// AddOrganization seeds an organization owned by an existing user.
func (s *Store) AddOrganization(org identity.Organization) *identity.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if org.BUID == "" {
		org.BUID = ids.NewBUID()
	}
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	s.orgs[org.ID] = &org
	out := org
	return &out
}

// AddTeam seeds a team inside an existing organization.
func (s *Store) AddTeam(team identity.Team) *identity.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == "" {
		team.ID = ids.New()
	}
	if team.BUID == "" {
		team.BUID = ids.NewBUID()
	}
	now := time.Now().UTC()
	team.CreatedAt, team.UpdatedAt = now, now
	s.teams[team.ID] = &team
	out := team
	return &out
}

func (s *Store) UserByBUID(_ context.Context, buid string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.BUID == buid {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", identity.ErrNotFound, buid)
}

func (s *Store) UserByUsername(_ context.Context, username string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", identity.ErrNotFound, username)
}

func (s *Store) UserByEmail(_ context.Context, email string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", identity.ErrNotFound, email)
}

func (s *Store) OrganizationByBUID(_ context.Context, buid string) (*identity.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.orgs {
		if org.BUID == buid {
			out := *org
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: organization %s", identity.ErrNotFound, buid)
}

func (s *Store) OrganizationsOwnedBy(_ context.Context, userID string) ([]*identity.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*identity.Organization
	for _, org := range s.orgs {
		if org.OwnerUserID == userID {
			cp := *org
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) TeamsByOrganization(_ context.Context, orgID string) ([]*identity.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*identity.Team
	for _, team := range s.teams {
		if team.OrganizationID == orgID {
			cp := *team
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
