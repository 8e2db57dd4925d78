// Package pg implements the storage interfaces on PostgreSQL through
// database/sql and the pgx driver. Uniqueness and referential rules live in
// the schema; this package maps the constraint violations back onto the
// sentinels the services publish.
package pg

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/grants"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/obs"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// ErrUnavailable reports a store used before Open or after Close.
var ErrUnavailable = errors.New("pg: store unavailable")

type Store struct {
	db *sql.DB
}

var (
	_ identity.Store          = (*Store)(nil)
	_ catalog.ResourceStore   = (*Store)(nil)
	_ catalog.PermissionStore = (*Store)(nil)
	_ grants.ClientStore      = (*Store)(nil)
	_ grants.GrantStore       = (*Store)(nil)
	_ grants.PermissionSource = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection. Tests pass a sqlmock handle here.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	return nil
}

// uniqueViolation maps a named unique constraint to the sentinel the schema
// enforces it for. The services check names before writing; this is the
// backstop for two writers racing past the same lookup.
func uniqueViolation(err error) (error, bool) {
	pgErr, ok := maybePgError(err)
	if !ok || pgErr.Code != pgErrUniqueViolation {
		return nil, false
	}
	obs.StorageConflict(pgErr.ConstraintName)
	switch pgErr.ConstraintName {
	case "resources_name_key":
		return catalog.ErrDuplicateResource, true
	case "resource_actions_resource_name_key":
		return catalog.ErrDuplicateAction, true
	case "permissions_global_name_key":
		return catalog.ErrDuplicateGlobalPermission, true
	case "permissions_user_name_key", "permissions_org_name_key":
		return catalog.ErrDuplicateScopedPermission, true
	}
	return nil, false
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
