package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kracekumar/lastuser/internal/identity"
)

func (s *Store) UserByBUID(ctx context.Context, buid string) (*identity.User, error) {
	return s.userWhere(ctx, "buid", buid)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*identity.User, error) {
	return s.userWhere(ctx, "username", username)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.userWhere(ctx, "email", email)
}

func (s *Store) userWhere(ctx context.Context, column, value string) (*identity.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var u identity.User
	err := s.db.QueryRowContext(ctx, `
		select id, buid, username, fullname, email, password_hash, status, created_at, updated_at
		from users
		where `+column+` = $1
	`, value).Scan(&u.ID, &u.BUID, &u.Username, &u.Fullname, &u.Email, &u.PasswordHash, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", identity.ErrNotFound, value)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) OrganizationByBUID(ctx context.Context, buid string) (*identity.Organization, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var o identity.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, buid, name, title, owner_user_id, created_at, updated_at
		from organizations
		where buid = $1
	`, buid).Scan(&o.ID, &o.BUID, &o.Name, &o.Title, &o.OwnerUserID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: organization %s", identity.ErrNotFound, buid)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) OrganizationsOwnedBy(ctx context.Context, userID string) ([]*identity.Organization, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, buid, name, title, owner_user_id, created_at, updated_at
		from organizations
		where owner_user_id = $1
		order by name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*identity.Organization
	for rows.Next() {
		var o identity.Organization
		if err := rows.Scan(&o.ID, &o.BUID, &o.Name, &o.Title, &o.OwnerUserID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *Store) TeamsByOrganization(ctx context.Context, orgID string) ([]*identity.Team, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, buid, title, organization_id, created_at, updated_at
		from teams
		where organization_id = $1
		order by title
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*identity.Team
	for rows.Next() {
		var t identity.Team
		if err := rows.Scan(&t.ID, &t.BUID, &t.Title, &t.OrganizationID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}
