package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/grants"
	"github.com/kracekumar/lastuser/internal/identity"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestUserLookup(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "buid", "username", "fullname", "email", "password_hash", "status", "created_at", "updated_at"}
	mock.ExpectQuery("select id, buid, username.*from users").WithArgs("buid-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("u1", "buid-1", "alice", "Alice", "alice@example.com", "hash", identity.UserStatusActive, now, now))

	u, err := s.UserByBUID(context.Background(), "buid-1")
	if err != nil {
		t.Fatalf("UserByBUID: %v", err)
	}
	if u.ID != "u1" || u.Username != "alice" || u.Status != identity.UserStatusActive {
		t.Fatalf("unexpected user %+v", u)
	}

	mock.ExpectQuery("select id, buid, username.*from users").WithArgs("missing").WillReturnError(sql.ErrNoRows)
	if _, err := s.UserByUsername(context.Background(), "missing"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateResourceMapsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("insert into resources").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "resources_name_key"})

	err := s.CreateResource(context.Background(), &catalog.Resource{Name: "docs", Title: "Docs"})
	if !errors.Is(err, catalog.ErrDuplicateResource) {
		t.Fatalf("expected ErrDuplicateResource, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateActionMapsErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("insert into resource_actions").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "resource_actions_resource_name_key"})
	err := s.CreateAction(context.Background(), &catalog.ResourceAction{ResourceID: "r1", Name: "write", Title: "Write"})
	if !errors.Is(err, catalog.ErrDuplicateAction) {
		t.Fatalf("expected ErrDuplicateAction, got %v", err)
	}

	// A dangling resource id surfaces as not found, not as a raw pg error.
	mock.ExpectQuery("insert into resource_actions").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "resource_actions_resource_id_fkey"})
	err = s.CreateAction(context.Background(), &catalog.ResourceAction{ResourceID: "gone", Name: "write", Title: "Write"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePermissionMapsNamespaceConflicts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("insert into permissions").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "permissions_global_name_key"})
	err := s.CreatePermission(context.Background(), &catalog.Permission{Name: "admin", Title: "Admin", AllUsers: true})
	if !errors.Is(err, catalog.ErrDuplicateGlobalPermission) {
		t.Fatalf("expected ErrDuplicateGlobalPermission, got %v", err)
	}

	mock.ExpectQuery("insert into permissions").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "permissions_user_name_key"})
	err = s.CreatePermission(context.Background(), &catalog.Permission{Name: "edit", Title: "Edit", OwnerUserID: "u1"})
	if !errors.Is(err, catalog.ErrDuplicateScopedPermission) {
		t.Fatalf("expected ErrDuplicateScopedPermission, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateClientAssignsIdentifiers(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("insert into clients").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	c := &grants.Client{SecretHash: "hash", Title: "App", Description: "Test app", OwnerUserID: "u1"}
	if err := s.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if c.ID == "" || c.BUID == "" {
		t.Fatalf("expected generated identifiers, got %+v", c)
	}
	if !c.CreatedAt.Equal(now) || !c.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not taken from the row: %+v", c)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceUserGrant(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from clients").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("delete from user_grants").WithArgs("c1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_grants").WithArgs("c1", "u1", "p1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into user_grants").WithArgs("c1", "u1", "p2").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := s.ReplaceUserGrant(context.Background(), "c1", "u1", []string{"p1", "p2"}); err != nil {
		t.Fatalf("ReplaceUserGrant: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceUserGrantDanglingPermission(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from clients").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("delete from user_grants").WithArgs("c1", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into user_grants").WithArgs("c1", "u1", "p-gone").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "user_grants_permission_id_fkey"})
	mock.ExpectRollback()

	err := s.ReplaceUserGrant(context.Background(), "c1", "u1", []string{"p-gone"})
	if !errors.Is(err, grants.ErrPermissionNotAvailable) {
		t.Fatalf("expected ErrPermissionNotAvailable, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReassignOwnerRevokesGrants(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("update clients").WithArgs("c1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from user_grants").WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("delete from team_grants").WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := s.ReassignOwner(context.Background(), "c1", "", "o1"); err != nil {
		t.Fatalf("ReassignOwner: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("update clients").WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := s.ReassignOwner(context.Background(), "missing", "u1", ""); !errors.Is(err, grants.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPermissionsForMapsRows(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "name", "title", "description", "allusers", "owner_user_id", "owner_org_id", "created_at", "updated_at"}
	mock.ExpectQuery("select id, name, title.*from permissions").WithArgs("u1", "").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "admin", "Admin", "", true, nil, nil, now, now).
			AddRow("p2", "edit", "Edit", "", false, "u1", nil, now, now))

	perms, err := s.PermissionsFor(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("PermissionsFor: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}
	if !perms[0].AllUsers || perms[0].OwnerUserID != "" {
		t.Fatalf("global row mapped wrong: %+v", perms[0])
	}
	if perms[1].Name != "edit" || perms[1].OwnerUserID != "u1" || perms[1].OwnerOrgID != "" {
		t.Fatalf("owned row mapped wrong: %+v", perms[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreUnavailable(t *testing.T) {
	s := NewWithDB(nil)
	if _, err := s.ClientByID(context.Background(), "c1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := s.ReplaceTeamGrant(context.Background(), "c1", "t1", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
