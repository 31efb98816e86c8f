package stage

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

// Directory is the remote query capability the mirror consumes.
type Directory interface {
	SearchRead(ctx context.Context, model string, domain odoo.Domain, fields []string) ([]odoo.Record, error)
}

// Deps carries the collaborators shared by every step of a run.
type Deps struct {
	Directory Directory
	FS        billy.Filesystem
	Logger    *slog.Logger
	Now       func() time.Time
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Runner executes a step.
type Runner func(ctx context.Context, in Envelope, deps Deps) (Envelope, error)

var registry = map[string]Runner{}

// Register adds a step runner.
func Register(name string, r Runner) {
	registry[name] = r
}

// Run executes a registered step by name.
func Run(ctx context.Context, name string, in Envelope, deps Deps) (Envelope, error) {
	r, ok := registry[name]
	if !ok {
		return Envelope{}, ErrUnknown{name: name}
	}
	return r(ctx, in, deps)
}

// ErrUnknown is returned when a step is not found.
type ErrUnknown struct{ name string }

func (e ErrUnknown) Error() string { return "unknown stage: " + e.name }

// Step names in pipeline order.
const (
	StepResolveProject    = "resolve-project"
	StepBuildHierarchy    = "build-hierarchy"
	StepSynthesizeFolders = "synthesize-folders"
	StepReplicateProject  = "replicate-project"
	StepReplicateTasks    = "replicate-tasks"
	StepWriteManifest     = "write-manifest"
)

// Pipeline is the fixed order of a mirror run.
var Pipeline = []string{
	StepResolveProject,
	StepBuildHierarchy,
	StepSynthesizeFolders,
	StepReplicateProject,
	StepReplicateTasks,
	StepWriteManifest,
}

// PipelineUntil returns the steps up to and including last.
func PipelineUntil(last string) ([]string, error) {
	for i, name := range Pipeline {
		if name == last {
			return append([]string(nil), Pipeline[:i+1]...), nil
		}
	}
	return nil, ErrUnknown{name: last}
}
