package collections

import (
	"errors"
	"fmt"
)

var (
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrGoalNotOwned          = errors.New("goal does not belong to this owner")
	ErrGoalNotActive         = errors.New("goal is not accepting collections")
	ErrNotAwaitingValidation = errors.New("collection does not require validation")
	ErrNoReference           = errors.New("no provider_ref or request_ref available")
)

// Error is a collection-domain failure. The webhook pipeline matches on
// this type when deciding how to mark a failed event.
type Error struct {
	Op         string
	RequestRef string
	Err        error
}

func (e *Error) Error() string {
	if e.RequestRef != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.RequestRef, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
