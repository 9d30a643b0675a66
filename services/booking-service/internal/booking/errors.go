package booking

import (
	"errors"
	"fmt"
)

// The five error kinds every operation can surface. Callers branch with
// errors.Is; the HTTP layer maps them to distinct status codes so a UI
// can tell "pick another time" apart from "something went wrong".
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("slot no longer available")
	ErrInvalidState = errors.New("invalid status transition")
	ErrDataStore    = errors.New("data store failure")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}
