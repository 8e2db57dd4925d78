package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/kracekumar/lastuser/internal/audit"
	"github.com/kracekumar/lastuser/internal/field"
	"github.com/kracekumar/lastuser/internal/identity"
)

// DefinePermission creates a permission under an owner the acting user
// controls, or updates the one named by editingID. The name must clear both
// namespaces: it may not shadow a global permission, and it must be unique
// within the resolved owner's own namespace.
//
// The global-name check needs only the name, so it runs even when the
// context is rejected; the scoped check waits for a resolved context.
func (s *Service) DefinePermission(ctx context.Context, acting *identity.User, in PermissionInput, editingID string) (*Permission, error) {
	if acting == nil {
		return nil, errors.New("acting user is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Context = strings.TrimSpace(in.Context)
	editingID = strings.TrimSpace(editingID)

	var errs field.Errors
	nameOK := checkName(&errs, in.Name)
	if in.Title == "" {
		errs.Add("title", ErrInvalidInput, "title is required")
	}

	var owner identity.Owner
	ownerOK := false
	ownerResolved, err := s.resolver.AuthorizeOwner(ctx, acting, in.Context)
	switch {
	case err == nil:
		owner = ownerResolved
		ownerOK = true
	case errors.Is(err, identity.ErrInvalidOwner):
		errs.Add("context", ErrInvalidContext, "context is not the acting user or an organization they own")
	default:
		return nil, err
	}

	if nameOK {
		existing, err := s.perms.GlobalPermissionByName(ctx, in.Name)
		switch {
		case err == nil:
			if existing.ID != editingID {
				errs.Add("name", ErrDuplicateGlobalPermission, "a global permission named %q already exists", in.Name)
				nameOK = false
			}
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if nameOK && ownerOK {
		existing, err := s.perms.OwnedPermissionByName(ctx, owner, in.Name)
		switch {
		case err == nil:
			if existing.ID != editingID {
				errs.Add("name", ErrDuplicateScopedPermission, "a permission named %q already exists for this owner", in.Name)
			}
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		rejected("permission", errs)
		return nil, err
	}

	perm := &Permission{
		ID:          editingID,
		Name:        in.Name,
		Title:       in.Title,
		Description: in.Description,
	}
	if owner.IsOrg() {
		perm.OwnerOrgID = owner.Org.ID
	} else {
		perm.OwnerUserID = owner.User.ID
	}
	if editingID == "" {
		if err := s.perms.CreatePermission(ctx, perm); err != nil {
			return nil, err
		}
	} else {
		if err := s.perms.UpdatePermission(ctx, perm); err != nil {
			return nil, err
		}
	}
	_ = audit.LogEvent(ctx, "permission.define", map[string]any{
		"actor":   acting.BUID,
		"name":    perm.Name,
		"id":      perm.ID,
		"context": owner.BUID(),
		"edited":  editingID != "",
	})
	return perm, nil
}

// DefineGlobalPermission creates a site-wide permission, or updates the one
// named by editingID. Global names share a single namespace.
func (s *Service) DefineGlobalPermission(ctx context.Context, acting *identity.User, in GlobalPermissionInput, editingID string) (*Permission, error) {
	if acting == nil {
		return nil, errors.New("acting user is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	editingID = strings.TrimSpace(editingID)

	var errs field.Errors
	nameOK := checkName(&errs, in.Name)
	if in.Title == "" {
		errs.Add("title", ErrInvalidInput, "title is required")
	}
	if nameOK {
		existing, err := s.perms.GlobalPermissionByName(ctx, in.Name)
		switch {
		case err == nil:
			if existing.ID != editingID {
				errs.Add("name", ErrDuplicateGlobalPermission, "a global permission named %q already exists", in.Name)
			}
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		rejected("permission", errs)
		return nil, err
	}

	perm := &Permission{
		ID:          editingID,
		Name:        in.Name,
		Title:       in.Title,
		Description: in.Description,
		AllUsers:    true,
	}
	if editingID == "" {
		if err := s.perms.CreatePermission(ctx, perm); err != nil {
			return nil, err
		}
	} else {
		if err := s.perms.UpdatePermission(ctx, perm); err != nil {
			return nil, err
		}
	}
	_ = audit.LogEvent(ctx, "permission.define_global", map[string]any{
		"actor":  acting.BUID,
		"name":   perm.Name,
		"id":     perm.ID,
		"edited": editingID != "",
	})
	return perm, nil
}

// PermissionsFor lists the permissions assignable in an owner's editing
// context: every global permission plus the owner's own.
func (s *Service) PermissionsFor(ctx context.Context, owner identity.Owner) ([]*Permission, error) {
	if owner.IsZero() {
		return nil, errors.New("owner is required")
	}
	if owner.IsOrg() {
		return s.perms.PermissionsFor(ctx, "", owner.Org.ID)
	}
	return s.perms.PermissionsFor(ctx, owner.User.ID, "")
}
