// Package catalog defines the protected vocabulary of the authorization
// core: named permissions, resources, and per-resource actions, plus the
// scope grammar that references them.
package catalog

import "time"

// Resource is an API surface protected by access tokens. Resource names
// share one global namespace.
type Resource struct {
	ID           string
	Name         string
	Title        string
	Description  string
	SiteResource bool
	Trusted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ResourceAction is a named operation on one resource. Action names are
// unique per resource. Every resource additionally answers to an implicit
// "read" action that is never stored.
type ResourceAction struct {
	ID          string
	ResourceID  string
	Name        string
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a named capability clients may request for their users. A
// global permission (AllUsers) applies to everyone; a scoped permission
// belongs to one owner and its name is unique only within that owner's
// namespace.
type Permission struct {
	ID          string
	Name        string
	Title       string
	Description string
	AllUsers    bool
	OwnerUserID string
	OwnerOrgID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResourceInput is a resource definition submission.
type ResourceInput struct {
	Name         string
	Title        string
	Description  string
	SiteResource bool
	Trusted      bool
}

// ActionInput is a resource action definition submission.
type ActionInput struct {
	Name        string
	Title       string
	Description string
}

// PermissionInput is a scoped permission definition submission. Context is
// the external identifier of the owner the permission will live under.
type PermissionInput struct {
	Name        string
	Title       string
	Description string
	Context     string
}

// GlobalPermissionInput is a site-wide permission definition submission.
type GlobalPermissionInput struct {
	Name        string
	Title       string
	Description string
}
