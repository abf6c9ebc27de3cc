package plan

import "errors"

// ErrSizing matches every configuration error that prevents a capture
// session from being planned.
var ErrSizing = errors.New("invalid sizing")

// SizingError reports which option could not be turned into a plan.
type SizingError struct {
	Field  string
	Reason string
}

func (e *SizingError) Error() string {
	return "sizing: " + e.Field + ": " + e.Reason
}

func (e *SizingError) Is(target error) bool {
	return target == ErrSizing
}

func sizingErr(field, reason string) error {
	return &SizingError{Field: field, Reason: reason}
}
