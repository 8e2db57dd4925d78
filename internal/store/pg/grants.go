package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kracekumar/lastuser/internal/grants"
	"github.com/kracekumar/lastuser/internal/ids"
)

const clientCols = `id, buid, secret_hash, title, description, owner_user_id, owner_org_id,
		website, redirect_uri, notification_uri, iframe_uri, resource_uri,
		allow_any_login, trusted, created_at, updated_at`

func scanClient(row scanner) (*grants.Client, error) {
	var (
		c      grants.Client
		ownerU sql.NullString
		ownerO sql.NullString
	)
	err := row.Scan(&c.ID, &c.BUID, &c.SecretHash, &c.Title, &c.Description, &ownerU, &ownerO,
		&c.Website, &c.RedirectURI, &c.NotificationURI, &c.IframeURI, &c.ResourceURI,
		&c.AllowAnyLogin, &c.Trusted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ownerU.Valid {
		c.OwnerUserID = ownerU.String
	}
	if ownerO.Valid {
		c.OwnerOrgID = ownerO.String
	}
	return &c, nil
}

func (s *Store) ClientByID(ctx context.Context, id string) (*grants.Client, error) {
	return s.clientWhere(ctx, "id", id)
}

func (s *Store) ClientByBUID(ctx context.Context, buid string) (*grants.Client, error) {
	return s.clientWhere(ctx, "buid", buid)
}

func (s *Store) clientWhere(ctx context.Context, column, value string) (*grants.Client, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		select `+clientCols+`
		from clients
		where `+column+` = $1
	`, value)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: client %s", grants.ErrNotFound, value)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateClient(ctx context.Context, c *grants.Client) error {
	if err := s.ready(); err != nil {
		return err
	}
	c.ID = ids.New()
	c.BUID = ids.NewBUID()
	err := s.db.QueryRowContext(ctx, `
		insert into clients (id, buid, secret_hash, title, description, owner_user_id, owner_org_id,
			website, redirect_uri, notification_uri, iframe_uri, resource_uri, allow_any_login, trusted)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		returning created_at, updated_at
	`, c.ID, c.BUID, c.SecretHash, c.Title, c.Description,
		nullIfEmpty(c.OwnerUserID), nullIfEmpty(c.OwnerOrgID),
		c.Website, c.RedirectURI, c.NotificationURI, c.IframeURI, c.ResourceURI,
		c.AllowAnyLogin, c.Trusted).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: owner", grants.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) UpdateClient(ctx context.Context, c *grants.Client) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		update clients
		set title = $2, description = $3, website = $4, redirect_uri = $5, notification_uri = $6,
			iframe_uri = $7, resource_uri = $8, allow_any_login = $9, trusted = $10, updated_at = now()
		where id = $1
		returning created_at, updated_at
	`, c.ID, c.Title, c.Description, c.Website, c.RedirectURI, c.NotificationURI,
		c.IframeURI, c.ResourceURI, c.AllowAnyLogin, c.Trusted).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: client %s", grants.ErrNotFound, c.ID)
	}
	if err != nil {
		return err
	}
	return nil
}

// ReassignOwner rewrites the owner columns and deletes every grant issued
// through the client, in one transaction.
func (s *Store) ReassignOwner(ctx context.Context, clientID, ownerUserID, ownerOrgID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update clients
		set owner_user_id = $2, owner_org_id = $3, updated_at = now()
		where id = $1
	`, clientID, nullIfEmpty(ownerUserID), nullIfEmpty(ownerOrgID))
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return fmt.Errorf("%w: client %s", grants.ErrNotFound, clientID)
	}

	if _, err := tx.ExecContext(ctx, `delete from user_grants where client_id = $1`, clientID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from team_grants where client_id = $1`, clientID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ReplaceUserGrant(ctx context.Context, clientID, userID string, permissionIDs []string) error {
	return s.replaceGrant(ctx, "user_grants", "user_id", clientID, userID, permissionIDs)
}

func (s *Store) ReplaceTeamGrant(ctx context.Context, clientID, teamID string, permissionIDs []string) error {
	return s.replaceGrant(ctx, "team_grants", "team_id", clientID, teamID, permissionIDs)
}

// replaceGrant swaps one subject's permission set: delete the old rows, then
// insert the new ones. The permission FK failing means the id never existed
// or was deleted after the service checked availability.
func (s *Store) replaceGrant(ctx context.Context, table, subjectCol, clientID, subjectID string, permissionIDs []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from clients where id = $1`, clientID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: client %s", grants.ErrNotFound, clientID)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from `+table+` where client_id = $1 and `+subjectCol+` = $2`, clientID, subjectID); err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return tx.Commit()
	}

	for _, pid := range permissionIDs {
		_, err := tx.ExecContext(ctx, `
			insert into `+table+` (client_id, `+subjectCol+`, permission_id)
			values ($1, $2, $3)
		`, clientID, subjectID, pid)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				if pgErr.ConstraintName == table+"_permission_id_fkey" {
					return fmt.Errorf("%w: %s", grants.ErrPermissionNotAvailable, pid)
				}
				return fmt.Errorf("%w: %s", grants.ErrNotFound, subjectID)
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteUserGrant(ctx context.Context, clientID, userID string) error {
	return s.deleteGrant(ctx, "user_grants", "user_id", clientID, userID)
}

func (s *Store) DeleteTeamGrant(ctx context.Context, clientID, teamID string) error {
	return s.deleteGrant(ctx, "team_grants", "team_id", clientID, teamID)
}

func (s *Store) deleteGrant(ctx context.Context, table, subjectCol, clientID, subjectID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `delete from `+table+` where client_id = $1 and `+subjectCol+` = $2`, clientID, subjectID)
	return err
}

func (s *Store) UserGrantPermissions(ctx context.Context, clientID, userID string) ([]string, error) {
	return s.grantPermissions(ctx, "user_grants", "user_id", clientID, userID)
}

func (s *Store) TeamGrantPermissions(ctx context.Context, clientID, teamID string) ([]string, error) {
	return s.grantPermissions(ctx, "team_grants", "team_id", clientID, teamID)
}

func (s *Store) grantPermissions(ctx context.Context, table, subjectCol, clientID, subjectID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select permission_id from `+table+`
		where client_id = $1 and `+subjectCol+` = $2
		order by permission_id
	`, clientID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		perms = append(perms, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}
