package run

import (
	"context"
	"fmt"
	"io"

	"github.com/flarebyte/folio-mirror/internal/stage"
)

// progressReporter prints one line before and after each step.
type progressReporter struct {
	enabled bool
	w       io.Writer
}

func newProgressReporter(enabled bool, w io.Writer) *progressReporter {
	if !enabled || w == nil {
		return &progressReporter{enabled: false}
	}
	return &progressReporter{enabled: true, w: w}
}

func (p *progressReporter) runStage(ctx context.Context, name string, in stage.Envelope, deps stage.Deps) (stage.Envelope, error) {
	if p == nil || !p.enabled {
		return stage.Run(ctx, name, in, deps)
	}
	p.emit(name, "start", in)
	out, err := stage.Run(ctx, name, in, deps)
	if err == nil {
		p.emit(name, "done", out)
	}
	return out, err
}

func (p *progressReporter) emit(name, state string, env stage.Envelope) {
	_, _ = fmt.Fprintf(p.w, "progress step=%s state=%s discovered=%d written=%d notices=%d\n",
		name, state, env.Summary.Discovered, env.Summary.Written, len(env.Notices))
}
