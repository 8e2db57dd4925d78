// Smoke-tests the authorization core end to end over the in-memory store:
// principal resolution, catalog definitions, client registration, grants,
// scope resolution, tokens, and the owner-change cascade.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/grants"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/ids"
	"github.com/kracekumar/lastuser/internal/obs"
	"github.com/kracekumar/lastuser/internal/store/memory"
	"github.com/kracekumar/lastuser/internal/token"
)

func main() {
	obs.SetLogger(zap.NewNop())
	if os.Getenv("LASTUSER_AUTH_SECRET") == "" {
		_ = os.Setenv("LASTUSER_AUTH_SECRET", ids.NewSecret())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := memory.New()
	reg, err := identity.NewRegistry(st)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	cat, err := catalog.NewService(st, st, reg)
	if err != nil {
		log.Fatalf("catalog service: %v", err)
	}
	gr, err := grants.NewService(st, st, reg, st)
	if err != nil {
		log.Fatalf("grants service: %v", err)
	}

	alice := st.AddUser(identity.User{Username: "alice", Email: "alice@example.com"})
	bob := st.AddUser(identity.User{Username: "bob", Email: "bob@example.com"})
	acme := st.AddOrganization(identity.Organization{Name: "acme", Title: "Acme", OwnerUserID: alice.ID})

	// Catalog: one open resource with a named action, one trusted resource.
	if _, err := cat.DefineResource(ctx, catalog.ResourceInput{Name: "notes", Title: "Notes"}, ""); err != nil {
		log.Fatalf("define resource: %v", err)
	}
	notes, err := cat.ResolveScope(ctx, "notes", false)
	if err != nil || notes.Action != nil {
		log.Fatalf("implicit read resolution: %v %+v", err, notes)
	}
	if _, err := cat.DefineAction(ctx, notes.Resource.ID, catalog.ActionInput{Name: "write", Title: "Write"}, ""); err != nil {
		log.Fatalf("define action: %v", err)
	}
	if _, err := cat.DefineResource(ctx, catalog.ResourceInput{Name: "vault", Title: "Vault", Trusted: true}, ""); err != nil {
		log.Fatalf("define trusted resource: %v", err)
	}
	if _, err := cat.ResolveScope(ctx, "vault", false); !errors.Is(err, catalog.ErrRestrictedResource) {
		log.Fatalf("trusted gate missing: %v", err)
	}
	if _, err := cat.ResolveScope(ctx, "vault", true); err != nil {
		log.Fatalf("trusted client rejected: %v", err)
	}

	// Permissions: one global, one under each owner kind.
	siteadmin, err := cat.DefineGlobalPermission(ctx, alice, catalog.GlobalPermissionInput{Name: "siteadmin", Title: "Site admin"}, "")
	if err != nil {
		log.Fatalf("define global permission: %v", err)
	}
	edit, err := cat.DefinePermission(ctx, alice, catalog.PermissionInput{Name: "edit", Title: "Edit", Context: alice.BUID}, "")
	if err != nil {
		log.Fatalf("define scoped permission: %v", err)
	}
	if _, err := cat.DefinePermission(ctx, alice, catalog.PermissionInput{Name: "publish", Title: "Publish", Context: acme.BUID}, ""); err != nil {
		log.Fatalf("define org permission: %v", err)
	}

	// Client under alice, with a working secret.
	client, secret, err := gr.RegisterClient(ctx, alice, grants.ClientInput{
		Title:       "Smoke",
		Description: "Smoke test app",
		Owner:       alice.BUID,
		Website:     "https://example.com",
	})
	if err != nil {
		log.Fatalf("register client: %v", err)
	}
	if err := gr.VerifySecret(client, secret); err != nil {
		log.Fatalf("verify secret: %v", err)
	}
	if err := gr.VerifySecret(client, "wrong"); !errors.Is(err, grants.ErrInvalidSecret) {
		log.Fatalf("bad secret accepted: %v", err)
	}

	// Grant bob both assignable permissions; the granted set comes back
	// name-sorted.
	if _, err := gr.AssignToUser(ctx, alice, client, "bob", []string{siteadmin.ID, edit.ID}); err != nil {
		log.Fatalf("assign to user: %v", err)
	}
	granted, err := gr.GrantedToUser(ctx, client, bob.ID)
	if err != nil || len(granted) != 2 || granted[0].Name != "edit" || granted[1].Name != "siteadmin" {
		log.Fatalf("granted set wrong: %v %+v", err, granted)
	}

	// Token round-trip carrying the granted scope.
	raw, err := token.Issue(bob.BUID, client.BUID, []string{"notes/write", "notes"}, time.Minute)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	claims, err := token.ParseAndValidate(raw)
	if err != nil || claims.Subject != bob.BUID || claims.ClientID != client.BUID {
		log.Fatalf("parse token: %v %+v", err, claims)
	}

	// Owner change must revoke everything granted through the client.
	if _, err := gr.UpdateClient(ctx, alice, client.ID, grants.ClientInput{
		Title:       "Smoke",
		Description: "Smoke test app",
		Owner:       acme.BUID,
		Website:     "https://example.com",
	}); err != nil {
		log.Fatalf("move client owner: %v", err)
	}
	granted, err = gr.GrantedToUser(ctx, client, bob.ID)
	if err != nil || len(granted) != 0 {
		log.Fatalf("cascade failed, grants remain: %v %+v", err, granted)
	}

	fmt.Printf("✅ lastuser smoke test passed: client=%s\n", client.BUID)
}
