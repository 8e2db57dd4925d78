package grants

import "errors"

var (
	ErrNotFound               = errors.New("grants: not found")
	ErrInvalidInput           = errors.New("grants: invalid input")
	ErrMalformedURI           = errors.New("grants: malformed uri")
	ErrInvalidSecret          = errors.New("grants: invalid client secret")
	ErrPermissionNotAvailable = errors.New("grants: permission not available in this context")
)
