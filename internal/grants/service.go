package grants

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kracekumar/lastuser/internal/audit"
	"github.com/kracekumar/lastuser/internal/field"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/ids"
	"github.com/kracekumar/lastuser/internal/obs"
)

// Service validates and persists client registrations and grants. It trusts
// its callers to have authenticated the acting user; what it enforces is
// ownership, target resolution, and permission availability.
type Service struct {
	clients ClientStore
	grants  GrantStore
	dir     IdentityDirectory
	perms   PermissionSource
}

func NewService(clients ClientStore, grants GrantStore, dir IdentityDirectory, perms PermissionSource) (*Service, error) {
	if clients == nil {
		return nil, errors.New("client store is required")
	}
	if grants == nil {
		return nil, errors.New("grant store is required")
	}
	if dir == nil {
		return nil, errors.New("identity directory is required")
	}
	if perms == nil {
		return nil, errors.New("permission source is required")
	}
	return &Service{clients: clients, grants: grants, dir: dir, perms: perms}, nil
}

// RegisterClient records a new application under an owner the acting user
// controls. It returns the client and the plaintext secret; the secret is
// stored only as a hash and never shown again.
func (s *Service) RegisterClient(ctx context.Context, acting *identity.User, in ClientInput) (*Client, string, error) {
	if acting == nil {
		return nil, "", errors.New("acting user is required")
	}
	in, owner, err := s.validateClient(ctx, acting, in)
	if err != nil {
		return nil, "", err
	}

	secret := ids.NewSecret()
	hash, err := identity.HashPassword(secret)
	if err != nil {
		return nil, "", err
	}
	c := &Client{
		SecretHash:      hash,
		Title:           in.Title,
		Description:     in.Description,
		Website:         in.Website,
		RedirectURI:     in.RedirectURI,
		NotificationURI: in.NotificationURI,
		IframeURI:       in.IframeURI,
		ResourceURI:     in.ResourceURI,
		AllowAnyLogin:   in.AllowAnyLogin,
	}
	if owner.IsOrg() {
		c.OwnerOrgID = owner.Org.ID
	} else {
		c.OwnerUserID = owner.User.ID
	}
	if err := s.clients.CreateClient(ctx, c); err != nil {
		return nil, "", err
	}
	_ = audit.LogEvent(ctx, "client.register", map[string]any{
		"actor":  acting.BUID,
		"client": c.BUID,
		"owner":  owner.BUID(),
	})
	return c, secret, nil
}

// UpdateClient rewrites a client's registration. Moving the client to a
// different owner revokes every grant held through it; permissions assigned
// under one owner never survive into another's context.
func (s *Service) UpdateClient(ctx context.Context, acting *identity.User, clientID string, in ClientInput) (*Client, error) {
	if acting == nil {
		return nil, errors.New("acting user is required")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	existing, err := s.clients.ClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	in, owner, err := s.validateClient(ctx, acting, in)
	if err != nil {
		return nil, err
	}

	ownerChanged := owner.IsOrg() != existing.OwnedByOrg() ||
		(owner.IsOrg() && owner.Org.ID != existing.OwnerOrgID) ||
		(!owner.IsOrg() && owner.User.ID != existing.OwnerUserID)

	updated := *existing
	updated.Title = in.Title
	updated.Description = in.Description
	updated.Website = in.Website
	updated.RedirectURI = in.RedirectURI
	updated.NotificationURI = in.NotificationURI
	updated.IframeURI = in.IframeURI
	updated.ResourceURI = in.ResourceURI
	updated.AllowAnyLogin = in.AllowAnyLogin
	if err := s.clients.UpdateClient(ctx, &updated); err != nil {
		return nil, err
	}
	if ownerChanged {
		var userID, orgID string
		if owner.IsOrg() {
			orgID = owner.Org.ID
		} else {
			userID = owner.User.ID
		}
		if err := s.clients.ReassignOwner(ctx, updated.ID, userID, orgID); err != nil {
			return nil, err
		}
		updated.OwnerUserID, updated.OwnerOrgID = userID, orgID
		obs.OwnerReassigned()
		_ = audit.LogEvent(ctx, "client.owner_change", map[string]any{
			"actor":  acting.BUID,
			"client": updated.BUID,
			"owner":  owner.BUID(),
		})
	}
	_ = audit.LogEvent(ctx, "client.update", map[string]any{
		"actor":  acting.BUID,
		"client": updated.BUID,
	})
	return &updated, nil
}

// ClientByBUID returns the client behind a public client key.
func (s *Service) ClientByBUID(ctx context.Context, buid string) (*Client, error) {
	buid = strings.TrimSpace(buid)
	if buid == "" {
		return nil, fmt.Errorf("%w: empty client key", ErrNotFound)
	}
	return s.clients.ClientByBUID(ctx, buid)
}

// VerifySecret checks a presented client secret against the stored hash.
func (s *Service) VerifySecret(client *Client, secret string) error {
	if client == nil {
		return fmt.Errorf("%w: client is required", ErrInvalidInput)
	}
	if identity.VerifyPassword(client.SecretHash, secret) != nil {
		return ErrInvalidSecret
	}
	return nil
}

// validateClient normalizes a submission and resolves its owner. Field
// problems are collected so a submission's rejections surface together.
func (s *Service) validateClient(ctx context.Context, acting *identity.User, in ClientInput) (ClientInput, identity.Owner, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Owner = strings.TrimSpace(in.Owner)
	in.Website = strings.TrimSpace(in.Website)
	in.RedirectURI = strings.TrimSpace(in.RedirectURI)
	in.NotificationURI = strings.TrimSpace(in.NotificationURI)
	in.IframeURI = strings.TrimSpace(in.IframeURI)
	in.ResourceURI = strings.TrimSpace(in.ResourceURI)

	var errs field.Errors
	if in.Title == "" {
		errs.Add("title", ErrInvalidInput, "title is required")
	}
	if in.Description == "" {
		errs.Add("description", ErrInvalidInput, "description is required")
	}

	var owner identity.Owner
	resolved, err := s.dir.AuthorizeOwner(ctx, acting, in.Owner)
	switch {
	case err == nil:
		owner = resolved
	case errors.Is(err, identity.ErrInvalidOwner):
		errs.Add("owner", identity.ErrInvalidOwner, "owner is not the acting user or an organization they own")
	default:
		return in, identity.Owner{}, err
	}

	checkURI(&errs, "website", in.Website)
	checkURI(&errs, "redirect_uri", in.RedirectURI)
	checkURI(&errs, "notification_uri", in.NotificationURI)
	checkURI(&errs, "iframe_uri", in.IframeURI)
	checkURI(&errs, "resource_uri", in.ResourceURI)

	if err := errs.Err(); err != nil {
		rejected("client", errs)
		return in, identity.Owner{}, err
	}
	return in, owner, nil
}

// checkURI validates an optional URL field. Blank is fine; anything else
// must parse as an absolute URL.
func checkURI(errs *field.Errors, name, value string) {
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add(name, ErrMalformedURI, "%s must be an absolute URL", name)
	}
}

func rejected(entity string, errs field.Errors) {
	for _, f := range errs.Fields() {
		obs.ValidationRejected(entity, f)
	}
}
