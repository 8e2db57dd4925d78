package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kracekumar/lastuser/internal/catalog"
	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/ids"
)

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) ResourceByID(ctx context.Context, id string) (*catalog.Resource, error) {
	return s.resourceWhere(ctx, "id", id)
}

func (s *Store) ResourceByName(ctx context.Context, name string) (*catalog.Resource, error) {
	return s.resourceWhere(ctx, "name", name)
}

func (s *Store) resourceWhere(ctx context.Context, column, value string) (*catalog.Resource, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var r catalog.Resource
	err := s.db.QueryRowContext(ctx, `
		select id, name, title, description, site_resource, trusted, created_at, updated_at
		from resources
		where `+column+` = $1
	`, value).Scan(&r.ID, &r.Name, &r.Title, &r.Description, &r.SiteResource, &r.Trusted, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: resource %s", catalog.ErrNotFound, value)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateResource(ctx context.Context, res *catalog.Resource) error {
	if err := s.ready(); err != nil {
		return err
	}
	res.ID = ids.New()
	err := s.db.QueryRowContext(ctx, `
		insert into resources (id, name, title, description, site_resource, trusted)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, res.ID, res.Name, res.Title, res.Description, res.SiteResource, res.Trusted).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return mapped
		}
		return err
	}
	return nil
}

func (s *Store) UpdateResource(ctx context.Context, res *catalog.Resource) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		update resources
		set name = $2, title = $3, description = $4, site_resource = $5, trusted = $6, updated_at = now()
		where id = $1
		returning created_at, updated_at
	`, res.ID, res.Name, res.Title, res.Description, res.SiteResource, res.Trusted).Scan(&res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: resource %s", catalog.ErrNotFound, res.ID)
	}
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return mapped
		}
		return err
	}
	return nil
}

func (s *Store) ActionByName(ctx context.Context, resourceID, name string) (*catalog.ResourceAction, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var a catalog.ResourceAction
	err := s.db.QueryRowContext(ctx, `
		select id, resource_id, name, title, description, created_at, updated_at
		from resource_actions
		where resource_id = $1 and name = $2
	`, resourceID, name).Scan(&a.ID, &a.ResourceID, &a.Name, &a.Title, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: action %s", catalog.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAction(ctx context.Context, act *catalog.ResourceAction) error {
	if err := s.ready(); err != nil {
		return err
	}
	act.ID = ids.New()
	err := s.db.QueryRowContext(ctx, `
		insert into resource_actions (id, resource_id, name, title, description)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, act.ID, act.ResourceID, act.Name, act.Title, act.Description).Scan(&act.CreatedAt, &act.UpdatedAt)
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return mapped
		}
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: resource %s", catalog.ErrNotFound, act.ResourceID)
		}
		return err
	}
	return nil
}

func (s *Store) UpdateAction(ctx context.Context, act *catalog.ResourceAction) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		update resource_actions
		set name = $3, title = $4, description = $5, updated_at = now()
		where id = $1 and resource_id = $2
		returning created_at, updated_at
	`, act.ID, act.ResourceID, act.Name, act.Title, act.Description).Scan(&act.CreatedAt, &act.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: action %s", catalog.ErrNotFound, act.ID)
	}
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return mapped
		}
		return err
	}
	return nil
}

const permissionCols = `id, name, title, description, allusers, owner_user_id, owner_org_id, created_at, updated_at`

func scanPermission(row scanner) (*catalog.Permission, error) {
	var (
		p      catalog.Permission
		ownerU sql.NullString
		ownerO sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Title, &p.Description, &p.AllUsers, &ownerU, &ownerO, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if ownerU.Valid {
		p.OwnerUserID = ownerU.String
	}
	if ownerO.Valid {
		p.OwnerOrgID = ownerO.String
	}
	return &p, nil
}

func (s *Store) GlobalPermissionByName(ctx context.Context, name string) (*catalog.Permission, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		select `+permissionCols+`
		from permissions
		where allusers and name = $1
	`, name)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: permission %s", catalog.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) OwnedPermissionByName(ctx context.Context, owner identity.Owner, name string) (*catalog.Permission, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var row *sql.Row
	if owner.IsOrg() {
		row = s.db.QueryRowContext(ctx, `
			select `+permissionCols+`
			from permissions
			where owner_org_id = $1 and name = $2
		`, owner.Org.ID, name)
	} else if owner.User != nil {
		row = s.db.QueryRowContext(ctx, `
			select `+permissionCols+`
			from permissions
			where owner_user_id = $1 and name = $2
		`, owner.User.ID, name)
	} else {
		return nil, fmt.Errorf("%w: permission %s", catalog.ErrNotFound, name)
	}
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: permission %s", catalog.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) CreatePermission(ctx context.Context, perm *catalog.Permission) error {
	if err := s.ready(); err != nil {
		return err
	}
	perm.ID = ids.New()
	err := s.db.QueryRowContext(ctx, `
		insert into permissions (id, name, title, description, allusers, owner_user_id, owner_org_id)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, perm.ID, perm.Name, perm.Title, perm.Description, perm.AllUsers,
		nullIfEmpty(perm.OwnerUserID), nullIfEmpty(perm.OwnerOrgID)).Scan(&perm.CreatedAt, &perm.UpdatedAt)
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return mapped
		}
		return err
	}
	return nil
}

func (s *Store) UpdatePermission(ctx context.Context, perm *catalog.Permission) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		update permissions
		set name = $2, title = $3, description = $4, allusers = $5, owner_user_id = $6, owner_org_id = $7, updated_at = now()
		where id = $1
		returning created_at, updated_at
	`, perm.ID, perm.Name, perm.Title, perm.Description, perm.AllUsers,
		nullIfEmpty(perm.OwnerUserID), nullIfEmpty(perm.OwnerOrgID)).Scan(&perm.CreatedAt, &perm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: permission %s", catalog.ErrNotFound, perm.ID)
	}
	if err != nil {
		if mapped, ok := uniqueViolation(err); ok {
			return mapped
		}
		return err
	}
	return nil
}

// PermissionsFor lists every global permission plus those owned by the given
// principal, in name order. Empty ids match nothing.
func (s *Store) PermissionsFor(ctx context.Context, ownerUserID, ownerOrgID string) ([]*catalog.Permission, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+permissionCols+`
		from permissions
		where allusers or owner_user_id = $1 or owner_org_id = $2
		order by name
	`, ownerUserID, ownerOrgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []*catalog.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}
