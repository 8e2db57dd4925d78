package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/kracekumar/lastuser/internal/audit"
	"github.com/kracekumar/lastuser/internal/field"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/obs"
)

// ReservedActionName is implied for every resource and can never be
// registered explicitly.
const ReservedActionName = "read"

// Service validates and persists catalog definitions. Validation walks every
// field before giving up, so a submission's problems surface together; rules
// for a single field run in order and stop at the first failure.
type Service struct {
	resources ResourceStore
	perms     PermissionStore
	resolver  ContextResolver
}

func NewService(resources ResourceStore, perms PermissionStore, resolver ContextResolver) (*Service, error) {
	if resources == nil {
		return nil, errors.New("resource store is required")
	}
	if perms == nil {
		return nil, errors.New("permission store is required")
	}
	if resolver == nil {
		return nil, errors.New("context resolver is required")
	}
	return &Service{resources: resources, perms: perms, resolver: resolver}, nil
}

// DefineResource creates a resource, or updates the one named by editingID.
// Resource names are globally unique; the record under edit never conflicts
// with itself.
func (s *Service) DefineResource(ctx context.Context, in ResourceInput, editingID string) (*Resource, error) {
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
		existing, err := s.resources.ResourceByName(ctx, in.Name)
		switch {
		case err == nil:
			if existing.ID != editingID {
				errs.Add("name", ErrDuplicateResource, "a resource named %q already exists", in.Name)
			}
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		rejected("resource", errs)
		return nil, err
	}

	res := &Resource{
		ID:           editingID,
		Name:         in.Name,
		Title:        in.Title,
		Description:  in.Description,
		SiteResource: in.SiteResource,
		Trusted:      in.Trusted,
	}
	if editingID == "" {
		if err := s.resources.CreateResource(ctx, res); err != nil {
			return nil, err
		}
	} else {
		if err := s.resources.UpdateResource(ctx, res); err != nil {
			return nil, err
		}
	}
	_ = audit.LogEvent(ctx, "resource.define", map[string]any{
		"resource": res.Name,
		"id":       res.ID,
		"trusted":  res.Trusted,
		"edited":   editingID != "",
	})
	return res, nil
}

// DefineAction creates an action on a resource, or updates the one named by
// editingID. Action names are unique per resource, and the implicit read
// action stays unregistrable.
func (s *Service) DefineAction(ctx context.Context, resourceID string, in ActionInput, editingID string) (*ResourceAction, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, errors.New("resource id is required")
	}
	res, err := s.resources.ResourceByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	editingID = strings.TrimSpace(editingID)

	var errs field.Errors
	nameOK := checkName(&errs, in.Name)
	if nameOK && in.Name == ReservedActionName {
		errs.Add("name", ErrReservedAction, "%q is implied for every resource", ReservedActionName)
		nameOK = false
	}
	if in.Title == "" {
		errs.Add("title", ErrInvalidInput, "title is required")
	}
	if nameOK {
		existing, err := s.resources.ActionByName(ctx, res.ID, in.Name)
		switch {
		case err == nil:
			if existing.ID != editingID {
				errs.Add("name", ErrDuplicateAction, "an action named %q already exists on %q", in.Name, res.Name)
			}
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		rejected("resource_action", errs)
		return nil, err
	}

	act := &ResourceAction{
		ID:          editingID,
		ResourceID:  res.ID,
		Name:        in.Name,
		Title:       in.Title,
		Description: in.Description,
	}
	if editingID == "" {
		if err := s.resources.CreateAction(ctx, act); err != nil {
			return nil, err
		}
	} else {
		if err := s.resources.UpdateAction(ctx, act); err != nil {
			return nil, err
		}
	}
	_ = audit.LogEvent(ctx, "resource_action.define", map[string]any{
		"resource": res.Name,
		"action":   act.Name,
		"id":       act.ID,
		"edited":   editingID != "",
	})
	return act, nil
}

// checkName runs the shared first-two rules for catalog names: presence,
// then charset. It reports whether later rules for the name field may run.
func checkName(errs *field.Errors, name string) bool {
	switch {
	case name == "":
		errs.Add("name", ErrInvalidInput, "name is required")
		return false
	case !identity.ValidName(name):
		errs.Add("name", identity.ErrInvalidName, "name may only use lowercase letters, digits, and interior hyphens")
		return false
	}
	return true
}

func rejected(entity string, errs field.Errors) {
	for _, f := range errs.Fields() {
		obs.ValidationRejected(entity, f)
	}
}
