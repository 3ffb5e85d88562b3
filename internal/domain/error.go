package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthorized       = errors.New("caller identity required")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrRoomNotFound       = errors.New("voice room not found")
	ErrRateLimited        = errors.New("too many requests")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction executor")
)
