package identity

import "errors"

var (
	ErrNotFound     = errors.New("identity: not found")
	ErrInvalidName  = errors.New("identity: invalid name")
	ErrInvalidOwner = errors.New("identity: invalid owner")
	ErrUnknownUser  = errors.New("identity: user does not exist")
	ErrUnknownTeam  = errors.New("identity: unknown team")
)
