package diagnose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/spf13/cobra"

	runpkg "github.com/flarebyte/folio-mirror/cmd/foliomirror/run"
	"github.com/flarebyte/folio-mirror/internal/stage"
)

var (
	flagUntil   string
	flagDumpDir string
	flagPretty  bool
)

// Cmd implements `foliomirror diagnose`. Steps run against an in-memory
// filesystem, so nothing is written to disk.
var Cmd = &cobra.Command{
	Use:           "diagnose",
	Short:         "Run the mirror steps up to --until without writing files and print the envelope as JSON",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		opts := runpkg.CurrentOptions()
		folio, _ := cmd.Flags().GetString("folio")
		if folio == "" {
			return errors.New("missing required flag: --folio")
		}
		return execute(ctx, opts, folio, os.Stdout, os.Stderr)
	},
}

func init() {
	runpkg.AddConnectionFlags(Cmd)
	Cmd.Flags().StringVar(&flagUntil, "until", stage.StepWriteManifest, "Last step to run (inclusive)")
	Cmd.Flags().StringVar(&flagDumpDir, "dump-dir", "", "Directory to write per-step dumps (<seq>_<step>_{in,out}.json)")
	Cmd.Flags().BoolVar(&flagPretty, "pretty", false, "Indent the JSON output")
}

func execute(ctx context.Context, opts runpkg.Options, folio string, stdout, stderr io.Writer) error {
	steps, err := stage.PipelineUntil(flagUntil)
	if err != nil {
		return err
	}
	sess, err := runpkg.Open(ctx, opts, stderr)
	if err != nil {
		return err
	}
	defer sess.Close()

	in := sess.Envelope(folio, time.Now())
	out, runErr := runStepSequence(ctx, in, steps, sess.Deps(memfs.New()))
	if err := printEnvelope(stdout, out); err != nil {
		return err
	}
	return runpkg.ClassifyError(folio, runErr)
}

func runStepSequence(ctx context.Context, in stage.Envelope, steps []string, deps stage.Deps) (stage.Envelope, error) {
	out := in
	for i, name := range steps {
		seq := i + 1
		if err := dumpStepBoundary(seq, name, "in", out); err != nil {
			return out, err
		}
		next, err := stage.Run(ctx, name, out, deps)
		if err != nil {
			if next.Folio != "" {
				out = next
			}
			return out, err
		}
		if err := dumpStepBoundary(seq, name, "out", next); err != nil {
			return next, err
		}
		out = next
	}
	return out, nil
}

func dumpStepBoundary(seq int, name string, suffix string, env stage.Envelope) error {
	if flagDumpDir == "" {
		return nil
	}
	base := fmt.Sprintf("%03d_%s_%s.json", seq, name, suffix)
	return writeJSONFile(filepath.Join(flagDumpDir, base), env)
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dump dir: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func printEnvelope(w io.Writer, env stage.Envelope) error {
	if flagPretty {
		b, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	s, err := runpkg.EncodeJSON(env)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}
