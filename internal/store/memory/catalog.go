package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/ids"
)

var (
	_ catalog.ResourceStore   = (*Store)(nil)
	_ catalog.PermissionStore = (*Store)(nil)
)

func (s *Store) ResourceByID(_ context.Context, id string) (*catalog.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", catalog.ErrNotFound, id)
	}
	out := *res
	return &out, nil
}

func (s *Store) ResourceByName(_ context.Context, name string) (*catalog.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, res := range s.resources {
		if res.Name == name {
			out := *res
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: resource %s", catalog.ErrNotFound, name)
}

func (s *Store) CreateResource(_ context.Context, res *catalog.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.resources {
		if existing.Name == res.Name {
			return catalog.ErrDuplicateResource
		}
	}
	res.ID = ids.New()
	now := time.Now().UTC()
	res.CreatedAt, res.UpdatedAt = now, now
	cp := *res
	s.resources[cp.ID] = &cp
	return nil
}

func (s *Store) UpdateResource(_ context.Context, res *catalog.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.resources[res.ID]
	if !ok {
		return fmt.Errorf("%w: resource %s", catalog.ErrNotFound, res.ID)
	}
	for _, other := range s.resources {
		if other.Name == res.Name && other.ID != res.ID {
			return catalog.ErrDuplicateResource
		}
	}
	res.CreatedAt = existing.CreatedAt
	res.UpdatedAt = time.Now().UTC()
	cp := *res
	s.resources[cp.ID] = &cp
	return nil
}

func (s *Store) ActionByName(_ context.Context, resourceID, name string) (*catalog.ResourceAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, act := range s.actions {
		if act.ResourceID == resourceID && act.Name == name {
			out := *act
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: action %s", catalog.ErrNotFound, name)
}

func (s *Store) CreateAction(_ context.Context, act *catalog.ResourceAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[act.ResourceID]; !ok {
		return fmt.Errorf("%w: resource %s", catalog.ErrNotFound, act.ResourceID)
	}
	for _, existing := range s.actions {
		if existing.ResourceID == act.ResourceID && existing.Name == act.Name {
			return catalog.ErrDuplicateAction
		}
	}
	act.ID = ids.New()
	now := time.Now().UTC()
	act.CreatedAt, act.UpdatedAt = now, now
	cp := *act
	s.actions[cp.ID] = &cp
	return nil
}

func (s *Store) UpdateAction(_ context.Context, act *catalog.ResourceAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.actions[act.ID]
	if !ok || existing.ResourceID != act.ResourceID {
		return fmt.Errorf("%w: action %s", catalog.ErrNotFound, act.ID)
	}
	for _, other := range s.actions {
		if other.ResourceID == act.ResourceID && other.Name == act.Name && other.ID != act.ID {
			return catalog.ErrDuplicateAction
		}
	}
	act.CreatedAt = existing.CreatedAt
	act.UpdatedAt = time.Now().UTC()
	cp := *act
	s.actions[cp.ID] = &cp
	return nil
}

func (s *Store) GlobalPermissionByName(_ context.Context, name string) (*catalog.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, perm := range s.perms {
		if perm.AllUsers && perm.Name == name {
			out := *perm
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: permission %s", catalog.ErrNotFound, name)
}

func (s *Store) OwnedPermissionByName(_ context.Context, owner identity.Owner, name string) (*catalog.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, perm := range s.perms {
		if perm.AllUsers || perm.Name != name {
			continue
		}
		if matchesOwner(perm, owner) {
			out := *perm
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: permission %s", catalog.ErrNotFound, name)
}

func (s *Store) CreatePermission(_ context.Context, perm *catalog.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPermissionConflict(perm, ""); err != nil {
		return err
	}
	perm.ID = ids.New()
	now := time.Now().UTC()
	perm.CreatedAt, perm.UpdatedAt = now, now
	cp := *perm
	s.perms[cp.ID] = &cp
	return nil
}

func (s *Store) UpdatePermission(_ context.Context, perm *catalog.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.perms[perm.ID]
	if !ok {
		return fmt.Errorf("%w: permission %s", catalog.ErrNotFound, perm.ID)
	}
	if err := s.checkPermissionConflict(perm, perm.ID); err != nil {
		return err
	}
	perm.CreatedAt = existing.CreatedAt
	perm.UpdatedAt = time.Now().UTC()
	cp := *perm
	s.perms[cp.ID] = &cp
	return nil
}

func (s *Store) PermissionsFor(_ context.Context, ownerUserID, ownerOrgID string) ([]*catalog.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*catalog.Permission
	for _, perm := range s.perms {
		if perm.AllUsers ||
			(ownerUserID != "" && perm.OwnerUserID == ownerUserID) ||
			(ownerOrgID != "" && perm.OwnerOrgID == ownerOrgID) {
			cp := *perm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// checkPermissionConflict mirrors the partial unique indexes of the
// Postgres schema: one namespace for global names, one per owner.
func (s *Store) checkPermissionConflict(perm *catalog.Permission, selfID string) error {
	for _, other := range s.perms {
		if other.ID == selfID || other.Name != perm.Name {
			continue
		}
		switch {
		case perm.AllUsers && other.AllUsers:
			return catalog.ErrDuplicateGlobalPermission
		case !perm.AllUsers && !other.AllUsers &&
			((perm.OwnerUserID != "" && other.OwnerUserID == perm.OwnerUserID) ||
				(perm.OwnerOrgID != "" && other.OwnerOrgID == perm.OwnerOrgID)):
			return catalog.ErrDuplicateScopedPermission
		}
	}
	return nil
}

func matchesOwner(perm *catalog.Permission, owner identity.Owner) bool {
	if owner.IsOrg() {
		return perm.OwnerOrgID == owner.Org.ID
	}
	if owner.User != nil {
		return perm.OwnerUserID == owner.User.ID
	}
	return false
}
