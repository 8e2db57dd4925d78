// Package grants manages OAuth client registrations and the permission
// sets granted to users and teams through them.
package grants

import "time"

// Client is a registered application. BUID is the public client key; the
// secret is stored only as a hash and shown to the registrant exactly once.
// Exactly one of OwnerUserID and OwnerOrgID is set.
type Client struct {
	ID              string
	BUID            string
	SecretHash      string
	Title           string
	Description     string
	OwnerUserID     string
	OwnerOrgID      string
	Website         string
	RedirectURI     string
	NotificationURI string
	IframeURI       string
	ResourceURI     string
	AllowAnyLogin   bool
	Trusted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwnedByOrg reports whether the client belongs to an organization.
func (c *Client) OwnedByOrg() bool { return c.OwnerOrgID != "" }

// ClientInput is a client registration or update submission. Owner is the
// external identifier of the principal the client will belong to.
type ClientInput struct {
	Title           string
	Description     string
	Owner           string
	Website         string
	RedirectURI     string
	NotificationURI string
	IframeURI       string
	ResourceURI     string
	AllowAnyLogin   bool
}

// UserGrant is the permission set a client holds for one user.
type UserGrant struct {
	ClientID    string
	UserID      string
	Permissions []string
}

// TeamGrant is the permission set a client holds for one team.
type TeamGrant struct {
	ClientID    string
	TeamID      string
	Permissions []string
}
