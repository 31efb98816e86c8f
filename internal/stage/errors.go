package stage

import (
	"errors"
	"log/slog"
)

// ErrProjectNotFound ends a run cleanly: no project matched the folio.
var ErrProjectNotFound = errors.New("no project found for folio")

// ErrNoProject is returned by steps that need a resolved project.
var ErrNoProject = errors.New("no resolved project in envelope")

// Notice describes a failure that was absorbed: the run continued with less
// output.
type Notice struct {
	Step    string `json:"step"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// notify records an absorbed failure and logs it at warn level.
func (e *Envelope) notify(log *slog.Logger, step, subject string, err error) {
	msg := "error"
	if err != nil {
		msg = sanitizeErrorMessage(err.Error())
	}
	e.Notices = append(e.Notices, Notice{Step: step, Subject: subject, Message: msg})
	log.Warn("skipped", "step", step, "subject", subject, "error", msg)
}
