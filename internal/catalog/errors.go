package catalog

import "errors"

var (
	ErrNotFound       = errors.New("catalog: not found")
	ErrInvalidInput   = errors.New("catalog: invalid input")
	ErrInvalidContext = errors.New("catalog: invalid context")

	ErrDuplicateResource         = errors.New("catalog: resource name already exists")
	ErrDuplicateAction           = errors.New("catalog: action name already exists for this resource")
	ErrDuplicateGlobalPermission = errors.New("catalog: a global permission with that name already exists")
	ErrDuplicateScopedPermission = errors.New("catalog: a permission with that name already exists for this owner")
	ErrReservedAction            = errors.New("catalog: action name is reserved")

	ErrMalformedScope     = errors.New("catalog: malformed scope token")
	ErrUnknownResource    = errors.New("catalog: unknown resource")
	ErrUnknownAction      = errors.New("catalog: unknown action")
	ErrRestrictedResource = errors.New("catalog: resource is restricted to trusted clients")
)
