package run

import (
	"context"

	"github.com/flarebyte/folio-mirror/internal/stage"
)

// runStages executes the named steps in order and stops at the first error.
// The envelope reached so far is returned with the error.
func runStages(ctx context.Context, in stage.Envelope, steps []string, deps stage.Deps, progress *progressReporter) (stage.Envelope, error) {
	out := in
	for _, name := range steps {
		next, err := progress.runStage(ctx, name, out, deps)
		if err != nil {
			if next.Folio == "" {
				// Hard failures return an empty envelope.
				next = out
			}
			return next, err
		}
		out = next
	}
	return out, nil
}
