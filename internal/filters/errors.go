package filters

import "fmt"

// CompileError reports filter input that cannot be compiled: an unknown
// filter or operator, an invalid value, or a segment that does not resolve.
type CompileError struct {
	Field  string
	Reason string
	Err    error
}

func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid filter %q: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
