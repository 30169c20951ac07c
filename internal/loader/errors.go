package loader

import (
	"errors"
	"fmt"
)

// ErrUndecodable is the cause of a LoadFailure when every candidate encoding failed
var ErrUndecodable = errors.New("no candidate encoding could decode the file")

// LoadFailure is returned when a file cannot be read or decoded
type LoadFailure struct {
	Path  string
	Cause error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause
func (e *LoadFailure) Unwrap() error {
	return e.Cause
}
