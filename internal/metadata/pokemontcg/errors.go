package pokemontcg

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog API operations.
var (
	ErrNotFound     = errors.New("pokemontcg: not found")
	ErrRateLimited  = errors.New("pokemontcg: rate limited by server")
	ErrBadRequest   = errors.New("pokemontcg: bad request")
	ErrServer       = errors.New("pokemontcg: server error")
	ErrUnauthorized = errors.New("pokemontcg: invalid api key")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "search", "getSet"
	Query string // Query string or set id
	Err   error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("pokemontcg %s [%s]: %v", e.Op, e.Query, e.Err)
	}
	return fmt.Sprintf("pokemontcg %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, query string, err error) error {
	return &Error{
		Op:    op,
		Query: query,
		Err:   err,
	}
}
