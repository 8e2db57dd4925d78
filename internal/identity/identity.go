// Package identity holds the principals known to the authorization core:
// users, organizations, and teams, plus the ownership rules deciding which
// of them an acting user may register clients and define permissions under.
package identity

import "time"

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusMerged    = "merged"
)

// User is a registered account. BUID is the stable external identifier used
// in URLs and form fields; ID orders records in storage and never leaves it.
type User struct {
	ID           string
	BUID         string
	Username     string
	Fullname     string
	Email        string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Organization is a shared account owned by a user. Clients and permissions
// may be held by an organization instead of an individual.
type Organization struct {
	ID          string
	BUID        string
	Name        string
	Title       string
	OwnerUserID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Team is a named group of users inside one organization. Grants may target
// a team instead of individual members.
type Team struct {
	ID             string
	BUID           string
	Title          string
	OrganizationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Owner is the holder of a client or permission: exactly one of a user or
// an organization.
type Owner struct {
	User *User
	Org  *Organization
}

// IsOrg reports whether the owner is an organization.
func (o Owner) IsOrg() bool { return o.Org != nil }

// IsZero reports whether no owner is set.
func (o Owner) IsZero() bool { return o.User == nil && o.Org == nil }

// BUID returns the owner's external identifier, or "" for the zero owner.
func (o Owner) BUID() string {
	switch {
	case o.Org != nil:
		return o.Org.BUID
	case o.User != nil:
		return o.User.BUID
	default:
		return ""
	}
}

// Same reports whether two owners refer to the same principal.
func (o Owner) Same(other Owner) bool {
	return o.IsOrg() == other.IsOrg() && o.BUID() == other.BUID()
}
