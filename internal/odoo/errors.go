package odoo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuthFailed is returned when the server rejects the credentials or the
// authentication call itself fails. No query may be issued afterwards.
var ErrAuthFailed = errors.New("odoo: authentication failed")

// ErrNotAuthenticated is returned by queries issued before Authenticate.
var ErrNotAuthenticated = errors.New("odoo: not authenticated")

// QueryError wraps any failure of an object call (transport error or server
// fault). It is never fatal for a run.
type QueryError struct {
	Model  string
	Method string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("odoo: %s %s: %v", e.Method, e.Model, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// InvalidField reports whether the server rejected a field that does not
// exist on this deployment.
func (e *QueryError) InvalidField() bool {
	if e == nil || e.Err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(e.Err.Error()), "invalid field")
}

// IsInvalidField reports whether err is a QueryError for an unknown field.
func IsInvalidField(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.InvalidField()
}
