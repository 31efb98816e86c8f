package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/folio-mirror/internal/testutil"
)

func TestRootName(t *testing.T) {
	assert.Equal(t, "Proyecto_F_2024_20240305_101500", RootName("F/2024", fixedNow))
}

func TestSynthesizeFolders_Layout(t *testing.T) {
	fs := newFS()
	stages := []Stage{{ID: 10, Name: "Draft"}, {ID: 11, Name: "Re:view"}, {ID: 12, Name: ".."}}

	f, err := SynthesizeFolders(fs, fixedNow, "F-1", stages, true)

	require.NoError(t, err)
	assert.Equal(t, "Proyecto_F-1_20240305_101500", f.Root)
	assert.Equal(t, "Proyecto_F-1_20240305_101500/00_Proyecto_Principal", f.Project)
	tree, err := testutil.Tree(fs, f.Root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		ClaimFileName,
		"00_Proyecto_Principal/",
		"00_Sin_Etapa/",
		"01_Draft/",
		"02_Re_view/",
		"03_stage_12/",
	}, tree)
	assert.Equal(t, f.Root+"/02_Re_view", f.Stages[11])
}

func TestSynthesizeFolders_NoUnstagedFolderUnlessAsked(t *testing.T) {
	fs := newFS()
	f, err := SynthesizeFolders(fs, fixedNow, "F-1", nil, false)
	require.NoError(t, err)
	assert.Empty(t, f.Unstaged)
	tree, err := testutil.Tree(fs, f.Root)
	require.NoError(t, err)
	assert.Equal(t, []string{ClaimFileName, "00_Proyecto_Principal/"}, tree)
}

func TestSynthesizeFolders_SameSecondGetsSuffix(t *testing.T) {
	fs := newFS()
	first, err := SynthesizeFolders(fs, fixedNow, "F-1", nil, false)
	require.NoError(t, err)
	second, err := SynthesizeFolders(fs, fixedNow, "F-1", nil, false)
	require.NoError(t, err)
	third, err := SynthesizeFolders(fs, fixedNow, "F-1", nil, false)
	require.NoError(t, err)

	assert.Equal(t, first.Root+"_1", second.Root)
	assert.Equal(t, first.Root+"_2", third.Root)
}

// racingFS lets another run claim a root right after it was seen free.
type racingFS struct {
	billy.Filesystem
	root string
}

func (r *racingFS) Stat(name string) (os.FileInfo, error) {
	fi, err := r.Filesystem.Stat(name)
	if name == r.root && err != nil {
		r.root = ""
		if mkErr := r.Filesystem.MkdirAll(name, 0o755); mkErr != nil {
			return nil, mkErr
		}
		f, cErr := r.Filesystem.Create(filepath.Join(name, ClaimFileName))
		if cErr != nil {
			return nil, cErr
		}
		if cErr := f.Close(); cErr != nil {
			return nil, cErr
		}
	}
	return fi, err
}

func TestSynthesizeFolders_ClaimedRootIsSkipped(t *testing.T) {
	name := RootName("F-1", fixedNow)
	fs := &racingFS{Filesystem: newFS(), root: name}

	f, err := SynthesizeFolders(fs, fixedNow, "F-1", nil, false)

	require.NoError(t, err)
	assert.Equal(t, name+"_1", f.Root)
	tree, err := testutil.Tree(fs, name)
	require.NoError(t, err)
	assert.Equal(t, []string{ClaimFileName}, tree)
}

func TestSynthesizeFoldersRunner_UnstagedPolicy(t *testing.T) {
	h := &Hierarchy{
		Stages: []Stage{{ID: 10, Name: "Draft"}},
		Tasks:  []Task{{ID: 1, Name: "Suelto"}},
	}
	h.TasksByStage = PartitionTasks(h.Tasks)
	cases := []struct {
		policy string
		want   bool
	}{
		{"", true},
		{UnstagedFolder, true},
		{UnstagedOmit, false},
	}
	for _, c := range cases {
		in := Envelope{Folio: "F-1", Project: &Project{ID: 7}, Hierarchy: h, Meta: &Meta{Unstaged: c.policy}}
		out, err := Run(context.Background(), StepSynthesizeFolders, in, testDeps(scenarioStore(), newFS()))
		require.NoError(t, err)
		assert.Equal(t, c.want, out.Folders.Unstaged != "", "policy %q", c.policy)
	}
}
