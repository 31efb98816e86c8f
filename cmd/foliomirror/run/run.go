package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/folio-mirror/internal/config"
	"github.com/flarebyte/folio-mirror/internal/stage"
	"github.com/flarebyte/folio-mirror/internal/tui"
)

var (
	flagConfig     string
	flagEnvFile    string
	flagFolio      string
	flagOut        string
	flagUnstaged   string
	flagLogLevel   string
	flagNoManifest bool
	flagProgress   bool
	flagStrict     bool
)

// Cmd represents the `foliomirror run` command.
var Cmd = &cobra.Command{
	Use:           "run",
	Short:         "Find a project by folio and download its attachments",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return execute(ctx, CurrentOptions(), flagFolio, os.Stdin, os.Stdout, os.Stderr)
	},
}

// CurrentOptions returns the options parsed from the shared flags.
func CurrentOptions() Options {
	return Options{
		ConfigPath: flagConfig,
		EnvFile:    flagEnvFile,
		OutDir:     flagOut,
		Unstaged:   flagUnstaged,
		LogLevel:   flagLogLevel,
		NoManifest: flagNoManifest,
		Progress:   flagProgress,
		Strict:     flagStrict,
	}
}

// AddConnectionFlags registers the flags needed to open a session.
func AddConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to config file (.cue)")
	cmd.Flags().StringVar(&flagEnvFile, "env-file", "", "Env file with ODOO_* variables (default .env when present)")
	cmd.Flags().StringVarP(&flagFolio, "folio", "f", "", "Project folio; prompted when omitted")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug|info|warn|error (default $"+config.EnvLogLevel+" or info)")
	cmd.Flags().StringVar(&flagUnstaged, "unstaged", "", "Tasks without stage: folder|omit")
}

func init() {
	AddConnectionFlags(Cmd)
	Cmd.Flags().StringVarP(&flagOut, "out", "o", "", "Directory receiving the run folder (default output.dir or .)")
	Cmd.Flags().BoolVar(&flagNoManifest, "no-manifest", false, "Do not write _manifest.yaml")
	Cmd.Flags().BoolVar(&flagProgress, "progress", false, "Print one progress line per step to stderr")
	Cmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit 1 when any attachment failed")
}

func execute(ctx context.Context, opts Options, folio string, stdin io.Reader, stdout, stderr io.Writer) error {
	sess, err := Open(ctx, opts, stderr)
	if err != nil {
		return err
	}
	defer sess.Close()

	folio, err = resolveFolio(ctx, folio, stdin, stderr)
	if err != nil {
		return err
	}
	fs := sess.OutputFS()
	in := sess.Envelope(folio, time.Now())
	sess.Logger.Info("run started", "folio", folio, "run", in.Meta.RunID)
	out, err := runStages(ctx, in, stage.Pipeline, sess.Deps(fs), newProgressReporter(opts.Progress, stderr))
	if err != nil {
		return ClassifyError(folio, err)
	}
	root := ""
	if out.Folders != nil {
		root = filepath.Join(sess.Config.Output.Dir, out.Folders.Root)
	}
	if err := writeString(stdout, tui.RenderSummary(out, root)+"\n"); err != nil {
		return err
	}
	return evaluateRunExit(out, opts.Strict)
}

// resolveFolio returns the flag value or asks for one. A blank folio is an
// error.
func resolveFolio(ctx context.Context, folio string, stdin io.Reader, stderr io.Writer) (string, error) {
	folio = strings.TrimSpace(folio)
	if folio != "" {
		return folio, nil
	}
	v, err := tui.PromptFolio(ctx, stdin, stderr)
	if errors.Is(err, tui.ErrCancelled) {
		return "", errMissingFolio
	}
	if err != nil {
		return "", fmt.Errorf("read folio: %w", err)
	}
	if v == "" {
		return "", errMissingFolio
	}
	return v, nil
}
