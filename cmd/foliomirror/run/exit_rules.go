package run

import (
	"errors"
	"fmt"

	"github.com/flarebyte/folio-mirror/internal/stage"
)

const (
	exitCodeSuccess  = 0
	exitCodeFailure  = 1
	exitCodeNotFound = 2
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

var errMissingFolio = runExitError{code: exitCodeFailure, msg: "missing folio"}

// ClassifyError maps a pipeline error to the process exit contract.
func ClassifyError(folio string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, stage.ErrProjectNotFound) {
		return runExitError{code: exitCodeNotFound, msg: fmt.Sprintf("no project found for folio %q", folio)}
	}
	return err
}

// evaluateRunExit decides the exit of a completed run. Absorbed failures
// only fail the run in strict mode.
func evaluateRunExit(env stage.Envelope, strict bool) error {
	if !strict || env.Summary.Failed == 0 {
		return nil
	}
	return runExitError{
		code: exitCodeFailure,
		msg:  fmt.Sprintf("strict: %d of %d attachments failed", env.Summary.Failed, env.Summary.Discovered),
	}
}
