package platform

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
)

// ActionError wraps a failed platform call with the action name and target so
// bulk operations can report partial results.
type ActionError struct {
	Action string
	Target string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Target, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
