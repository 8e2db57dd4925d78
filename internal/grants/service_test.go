package grants

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/field"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/obs"
)

func TestMain(m *testing.M) {
	obs.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

var acting = &identity.User{ID: "u1", BUID: "user-buid", Username: "alice", Email: "alice@example.com", Status: identity.UserStatusActive}

type stubClientStore struct {
	clientByID    func(ctx context.Context, id string) (*Client, error)
	clientByBUID  func(ctx context.Context, buid string) (*Client, error)
	createClient  func(ctx context.Context, c *Client) error
	updateClient  func(ctx context.Context, c *Client) error
	reassignOwner func(ctx context.Context, clientID, ownerUserID, ownerOrgID string) error
}

func (s *stubClientStore) ClientByID(ctx context.Context, id string) (*Client, error) {
	if s.clientByID != nil {
		return s.clientByID(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *stubClientStore) ClientByBUID(ctx context.Context, buid string) (*Client, error) {
	if s.clientByBUID != nil {
		return s.clientByBUID(ctx, buid)
	}
	return nil, ErrNotFound
}

func (s *stubClientStore) CreateClient(ctx context.Context, c *Client) error {
	if s.createClient != nil {
		return s.createClient(ctx, c)
	}
	return nil
}

func (s *stubClientStore) UpdateClient(ctx context.Context, c *Client) error {
	if s.updateClient != nil {
		return s.updateClient(ctx, c)
	}
	return nil
}

func (s *stubClientStore) ReassignOwner(ctx context.Context, clientID, ownerUserID, ownerOrgID string) error {
	if s.reassignOwner != nil {
		return s.reassignOwner(ctx, clientID, ownerUserID, ownerOrgID)
	}
	return nil
}

type stubGrantStore struct {
	replaceUserGrant func(ctx context.Context, clientID, userID string, permissionIDs []string) error
	replaceTeamGrant func(ctx context.Context, clientID, teamID string, permissionIDs []string) error
	deleteUserGrant  func(ctx context.Context, clientID, userID string) error
	deleteTeamGrant  func(ctx context.Context, clientID, teamID string) error
	userGrantPerms   func(ctx context.Context, clientID, userID string) ([]string, error)
	teamGrantPerms   func(ctx context.Context, clientID, teamID string) ([]string, error)
}

func (s *stubGrantStore) ReplaceUserGrant(ctx context.Context, clientID, userID string, permissionIDs []string) error {
	if s.replaceUserGrant != nil {
		return s.replaceUserGrant(ctx, clientID, userID, permissionIDs)
	}
	return nil
}

func (s *stubGrantStore) ReplaceTeamGrant(ctx context.Context, clientID, teamID string, permissionIDs []string) error {
	if s.replaceTeamGrant != nil {
		return s.replaceTeamGrant(ctx, clientID, teamID, permissionIDs)
	}
	return nil
}

func (s *stubGrantStore) DeleteUserGrant(ctx context.Context, clientID, userID string) error {
	if s.deleteUserGrant != nil {
		return s.deleteUserGrant(ctx, clientID, userID)
	}
	return nil
}

func (s *stubGrantStore) DeleteTeamGrant(ctx context.Context, clientID, teamID string) error {
	if s.deleteTeamGrant != nil {
		return s.deleteTeamGrant(ctx, clientID, teamID)
	}
	return nil
}

func (s *stubGrantStore) UserGrantPermissions(ctx context.Context, clientID, userID string) ([]string, error) {
	if s.userGrantPerms != nil {
		return s.userGrantPerms(ctx, clientID, userID)
	}
	return nil, nil
}

func (s *stubGrantStore) TeamGrantPermissions(ctx context.Context, clientID, teamID string) ([]string, error) {
	if s.teamGrantPerms != nil {
		return s.teamGrantPerms(ctx, clientID, teamID)
	}
	return nil, nil
}

// stubDirectory accepts the acting user's own identifier as owner and knows
// no users or teams unless overridden.
type stubDirectory struct {
	lookupUser     func(ctx context.Context, login string) (*identity.User, error)
	authorizeOwner func(ctx context.Context, acting *identity.User, buid string) (identity.Owner, error)
	teamByBUID     func(ctx context.Context, orgID, buid string) (*identity.Team, error)
}

func (s *stubDirectory) LookupUser(ctx context.Context, login string) (*identity.User, error) {
	if s.lookupUser != nil {
		return s.lookupUser(ctx, login)
	}
	return nil, identity.ErrUnknownUser
}

func (s *stubDirectory) AuthorizeOwner(ctx context.Context, acting *identity.User, buid string) (identity.Owner, error) {
	if s.authorizeOwner != nil {
		return s.authorizeOwner(ctx, acting, buid)
	}
	if acting != nil && buid == acting.BUID {
		return identity.Owner{User: acting}, nil
	}
	return identity.Owner{}, identity.ErrInvalidOwner
}

func (s *stubDirectory) TeamByBUID(ctx context.Context, orgID, buid string) (*identity.Team, error) {
	if s.teamByBUID != nil {
		return s.teamByBUID(ctx, orgID, buid)
	}
	return nil, identity.ErrUnknownTeam
}

type stubPerms struct {
	permissionsFor func(ctx context.Context, ownerUserID, ownerOrgID string) ([]*catalog.Permission, error)
}

func (s *stubPerms) PermissionsFor(ctx context.Context, ownerUserID, ownerOrgID string) ([]*catalog.Permission, error) {
	if s.permissionsFor != nil {
		return s.permissionsFor(ctx, ownerUserID, ownerOrgID)
	}
	return nil, nil
}

func newTestGrantService(t *testing.T, cs ClientStore, gs GrantStore, dir IdentityDirectory, perms PermissionSource) *Service {
	t.Helper()
	if cs == nil {
		cs = &stubClientStore{}
	}
	if gs == nil {
		gs = &stubGrantStore{}
	}
	if dir == nil {
		dir = &stubDirectory{}
	}
	if perms == nil {
		perms = &stubPerms{}
	}
	svc, err := NewService(cs, gs, dir, perms)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterClientReturnsSecretOnce(t *testing.T) {
	var created *Client
	cs := &stubClientStore{
		createClient: func(_ context.Context, c *Client) error {
			c.ID = "c1"
			c.BUID = "client-buid"
			created = c
			return nil
		},
	}
	svc := newTestGrantService(t, cs, nil, nil, nil)

	client, secret, err := svc.RegisterClient(context.Background(), acting, ClientInput{
		Title:       "  Hasjob  ",
		Description: "Job board",
		Owner:       "user-buid",
		Website:     "https://hasjob.example.com",
		RedirectURI: "http://localhost:8000/callback",
	})
	if err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}
	if created == nil || client.ID != "c1" {
		t.Fatalf("create was not called, got %+v", client)
	}
	if client.Title != "Hasjob" || client.OwnerUserID != "u1" || client.OwnerOrgID != "" {
		t.Fatalf("unexpected client %+v", client)
	}
	if len(secret) != 64 {
		t.Fatalf("secret length = %d, want 64", len(secret))
	}
	if strings.Contains(client.SecretHash, secret) {
		t.Fatal("plaintext secret must not appear in the stored hash")
	}
	if err := svc.VerifySecret(client, secret); err != nil {
		t.Fatalf("VerifySecret: %v", err)
	}
	if err := svc.VerifySecret(client, "wrong"); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}
}

func TestRegisterClientCollectsRejections(t *testing.T) {
	svc := newTestGrantService(t, nil, nil, nil, nil)

	_, _, err := svc.RegisterClient(context.Background(), acting, ClientInput{
		Owner:   "someone-else",
		Website: "not a url",
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing title, got %v", err)
	}
	if !errors.Is(err, identity.ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
	if !errors.Is(err, ErrMalformedURI) {
		t.Fatalf("expected ErrMalformedURI, got %v", err)
	}
	var fe field.Errors
	if !errors.As(err, &fe) {
		t.Fatalf("expected field.Errors, got %T", err)
	}
	got := fe.Fields()
	want := []string{"description", "owner", "title", "website"}
	if len(got) != len(want) {
		t.Fatalf("rejected fields %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rejected fields %v, want %v", got, want)
		}
	}
}

func TestRegisterClientURLRules(t *testing.T) {
	cs := &stubClientStore{}
	svc := newTestGrantService(t, cs, nil, nil, nil)

	base := ClientInput{Title: "App", Description: "Test app", Owner: "user-buid"}

	for _, bad := range []string{"not a url", "www.example.com", "/relative/path", "http://"} {
		in := base
		in.RedirectURI = bad
		if _, _, err := svc.RegisterClient(context.Background(), acting, in); !errors.Is(err, ErrMalformedURI) {
			t.Fatalf("RedirectURI=%q: expected ErrMalformedURI, got %v", bad, err)
		}
	}
	for _, ok := range []string{"", "http://localhost", "https://example.com/cb?x=1"} {
		in := base
		in.RedirectURI = ok
		if _, _, err := svc.RegisterClient(context.Background(), acting, in); err != nil {
			t.Fatalf("RedirectURI=%q: unexpected error %v", ok, err)
		}
	}
}

func TestUpdateClientKeepsOwner(t *testing.T) {
	existing := &Client{ID: "c1", BUID: "client-buid", Title: "Old", Description: "Old", OwnerUserID: "u1"}
	updated := false
	cs := &stubClientStore{
		clientByID: func(_ context.Context, id string) (*Client, error) {
			if id == "c1" {
				return existing, nil
			}
			return nil, ErrNotFound
		},
		updateClient: func(_ context.Context, c *Client) error {
			updated = true
			if c.Title != "New title" {
				t.Fatalf("update carried %q", c.Title)
			}
			return nil
		},
		reassignOwner: func(context.Context, string, string, string) error {
			t.Fatal("owner must not be reassigned")
			return nil
		},
	}
	svc := newTestGrantService(t, cs, nil, nil, nil)

	client, err := svc.UpdateClient(context.Background(), acting, "c1", ClientInput{
		Title:       "New title",
		Description: "New description",
		Owner:       "user-buid",
	})
	if err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	if !updated || client.OwnerUserID != "u1" {
		t.Fatalf("unexpected result %+v", client)
	}
}

func TestUpdateClientOwnerChangeRevokesGrants(t *testing.T) {
	existing := &Client{ID: "c1", BUID: "client-buid", Title: "App", Description: "App", OwnerUserID: "u1"}
	org := &identity.Organization{ID: "o1", BUID: "org-buid", Name: "acme"}
	dir := &stubDirectory{
		authorizeOwner: func(_ context.Context, _ *identity.User, buid string) (identity.Owner, error) {
			if buid == "org-buid" {
				return identity.Owner{Org: org}, nil
			}
			return identity.Owner{}, identity.ErrInvalidOwner
		},
	}
	reassigned := false
	cs := &stubClientStore{
		clientByID: func(context.Context, string) (*Client, error) { return existing, nil },
		reassignOwner: func(_ context.Context, clientID, ownerUserID, ownerOrgID string) error {
			reassigned = true
			if clientID != "c1" || ownerUserID != "" || ownerOrgID != "o1" {
				t.Fatalf("reassign got (%q,%q,%q)", clientID, ownerUserID, ownerOrgID)
			}
			return nil
		},
	}
	svc := newTestGrantService(t, cs, nil, dir, nil)

	client, err := svc.UpdateClient(context.Background(), acting, "c1", ClientInput{
		Title:       "App",
		Description: "App",
		Owner:       "org-buid",
	})
	if err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	if !reassigned {
		t.Fatal("expected owner reassignment")
	}
	if client.OwnerOrgID != "o1" || client.OwnerUserID != "" {
		t.Fatalf("owner columns not updated: %+v", client)
	}
}

func TestUpdateClientUnknown(t *testing.T) {
	svc := newTestGrantService(t, nil, nil, nil, nil)
	if _, err := svc.UpdateClient(context.Background(), acting, "missing", ClientInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientByBUID(t *testing.T) {
	cs := &stubClientStore{
		clientByBUID: func(_ context.Context, buid string) (*Client, error) {
			if buid == "client-buid" {
				return &Client{ID: "c1", BUID: buid}, nil
			}
			return nil, ErrNotFound
		},
	}
	svc := newTestGrantService(t, cs, nil, nil, nil)

	c, err := svc.ClientByBUID(context.Background(), " client-buid ")
	if err != nil || c.ID != "c1" {
		t.Fatalf("ClientByBUID: %v %+v", err, c)
	}
	if _, err := svc.ClientByBUID(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty key, got %v", err)
	}
}
