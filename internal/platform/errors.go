package platform

import "fmt"

// RequestError wraps a failed call against the hosting platform's REST
// surface. Callers that probe (identity resolution, permission evaluation)
// treat any RequestError as a signal to degrade; callers on the critical
// path (review listing) propagate it.
type RequestError struct {
	// Op is the short name of the failed operation, e.g. "list reviews".
	Op string

	// Err is the underlying transport or API error.
	Err error
}

// Error returns a human-readable description of the failed request.
func (e *RequestError) Error() string {
	return fmt.Sprintf("platform request %q failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// reqErr is a small helper to keep call sites terse.
func reqErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{Op: op, Err: err}
}
