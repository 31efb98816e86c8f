package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
)

// Fixed folder names under the run root.
const (
	ProjectFolderName  = "00_Proyecto_Principal"
	UnstagedFolderName = "00_Sin_Etapa"
	ClaimFileName      = ".foliomirror"
	rootTimeLayout     = "20060102_150405"
)

// Folders is the run-scoped folder map. Paths are relative to the output
// filesystem.
type Folders struct {
	Root     string           `json:"root"`
	Project  string           `json:"project"`
	Stages   map[int64]string `json:"stages"`
	Unstaged string           `json:"unstaged,omitempty"`
}

// RootName returns Proyecto_<folio>_<YYYYMMDD_HHMMSS>.
func RootName(folio string, now time.Time) string {
	return fmt.Sprintf("Proyecto_%s_%s", Sanitize(folio), now.Format(rootTimeLayout))
}

// StageFolderName returns <NN>_<name> for the 1-based position.
func StageFolderName(position int, s Stage) string {
	return fmt.Sprintf("%02d_%s", position, pathComponent(s.Name, "stage", s.ID))
}

// SynthesizeFolders creates the run tree: the root, the project folder, one
// folder per stage in the given order and, when withUnstaged is set, the
// folder for tasks without a stage.
func SynthesizeFolders(fs billy.Filesystem, now time.Time, folio string, stages []Stage, withUnstaged bool) (Folders, error) {
	root, err := freshRoot(fs, RootName(folio, now))
	if err != nil {
		return Folders{}, err
	}
	f := Folders{
		Root:    root,
		Project: filepath.Join(root, ProjectFolderName),
		Stages:  make(map[int64]string, len(stages)),
	}
	if err := mkdir(fs, f.Project); err != nil {
		return Folders{}, err
	}
	for i, s := range stages {
		p := filepath.Join(root, StageFolderName(i+1, s))
		if err := mkdir(fs, p); err != nil {
			return Folders{}, err
		}
		f.Stages[s.ID] = p
	}
	if withUnstaged {
		f.Unstaged = filepath.Join(root, UnstagedFolderName)
		if err := mkdir(fs, f.Unstaged); err != nil {
			return Folders{}, err
		}
	}
	return f, nil
}

// freshRoot returns name, or name_1, name_2, ... when a previous run in the
// same second already used it, and creates it. The root is owned by whoever
// creates its claim file, so concurrent runs never share one.
func freshRoot(fs billy.Filesystem, name string) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		_, err := fs.Stat(candidate)
		if err == nil {
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}
		if err := mkdir(fs, candidate); err != nil {
			return "", err
		}
		claimed, err := claimRoot(fs, candidate)
		if err != nil {
			return "", err
		}
		if claimed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free run folder name for %q", name)
}

func claimRoot(fs billy.Filesystem, root string) (bool, error) {
	p := filepath.Join(root, ClaimFileName)
	f, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim %q: %w", root, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("claim %q: %w", root, err)
	}
	return true, nil
}

func mkdir(fs billy.Filesystem, p string) error {
	if err := fs.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("mkdirall %q: %w", p, err)
	}
	return nil
}

func synthesizeFoldersRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Project == nil {
		return Envelope{}, ErrNoProject
	}
	if deps.FS == nil {
		return Envelope{}, errors.New("synthesize-folders: no output filesystem")
	}
	h := Hierarchy{}
	if in.Hierarchy != nil {
		h = *in.Hierarchy
	}
	withUnstaged := in.unstagedPolicy() == UnstagedFolder && len(h.Unplaced()) > 0
	f, err := SynthesizeFolders(deps.FS, deps.now(), in.Folio, h.Stages, withUnstaged)
	if err != nil {
		return Envelope{}, fmt.Errorf("synthesize-folders: %w", err)
	}
	in.Folders = &f
	deps.logger().Info("folders created", "root", f.Root, "stages", len(f.Stages))
	return in, nil
}

func init() { Register(StepSynthesizeFolders, synthesizeFoldersRunner) }
