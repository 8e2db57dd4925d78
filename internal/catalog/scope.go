package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/kracekumar/lastuser/internal/identity"
	"github.com/kracekumar/lastuser/internal/obs"
)

// ScopeTarget is a resolved scope token: the resource it names and the
// action requested on it. Action is nil when the token asks for the
// implicit read action.
type ScopeTarget struct {
	Resource *Resource
	Action   *ResourceAction
}

// ParseScope splits a space-delimited scope string into its tokens,
// deduplicated with order preserved.
func ParseScope(scope string) []string {
	return lo.Uniq(strings.Fields(scope))
}

// ResolveScope maps one scope token to the resource and action it names.
// Tokens take the form "resource" or "resource/action"; a bare resource and
// an explicit "resource/read" both resolve to the implicit read action.
// Resources marked trusted resolve only for trusted clients.
func (s *Service) ResolveScope(ctx context.Context, token string, trustedClient bool) (*ScopeTarget, error) {
	resName, actName, err := splitScopeToken(token)
	if err != nil {
		obs.ScopeResolved("malformed")
		return nil, err
	}
	res, err := s.resources.ResourceByName(ctx, resName)
	switch {
	case errors.Is(err, ErrNotFound):
		obs.ScopeResolved("unknown_resource")
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resName)
	case err != nil:
		return nil, err
	}
	if res.Trusted && !trustedClient {
		obs.ScopeResolved("restricted")
		return nil, fmt.Errorf("%w: %s", ErrRestrictedResource, resName)
	}
	if actName == "" || actName == ReservedActionName {
		obs.ScopeResolved("ok")
		return &ScopeTarget{Resource: res}, nil
	}
	act, err := s.resources.ActionByName(ctx, res.ID, actName)
	switch {
	case errors.Is(err, ErrNotFound):
		obs.ScopeResolved("unknown_action")
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownAction, resName, actName)
	case err != nil:
		return nil, err
	}
	obs.ScopeResolved("ok")
	return &ScopeTarget{Resource: res, Action: act}, nil
}

func splitScopeToken(token string) (resource, action string, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", fmt.Errorf("%w: empty token", ErrMalformedScope)
	}
	parts := strings.Split(token, "/")
	if len(parts) > 2 {
		return "", "", fmt.Errorf("%w: %s", ErrMalformedScope, token)
	}
	resource = parts[0]
	if !identity.ValidName(resource) {
		return "", "", fmt.Errorf("%w: %s", ErrMalformedScope, token)
	}
	if len(parts) == 2 {
		action = parts[1]
		if !identity.ValidName(action) {
			return "", "", fmt.Errorf("%w: %s", ErrMalformedScope, token)
		}
	}
	return resource, action, nil
}
