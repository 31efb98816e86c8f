package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/folio-mirror/internal/stage"
)

func typeInto(m tea.Model, s string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestFolioModel_Submit(t *testing.T) {
	var m tea.Model = NewFolioModel()
	m = typeInto(m, "  F-2024-001 ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	v, ok := m.(FolioModel).Value()
	assert.True(t, ok)
	assert.Equal(t, "F-2024-001", v)
	assert.Empty(t, m.View())
}

func TestFolioModel_Cancel(t *testing.T) {
	var m tea.Model = NewFolioModel()
	m = typeInto(m, "F-1")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	_, ok := m.(FolioModel).Value()
	assert.False(t, ok)
}

func TestFolioModel_View(t *testing.T) {
	assert.Contains(t, NewFolioModel().View(), "Folio del proyecto")
}

func TestPromptFolio_PipedInput(t *testing.T) {
	cases := map[string]string{
		"  F-2024-001 \nignored\n": "F-2024-001",
		"\n":                       "",
		"":                         "",
	}
	for in, want := range cases {
		got, err := PromptFolio(context.Background(), strings.NewReader(in), &strings.Builder{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, IsTerminal(strings.NewReader("x")))
}

func TestRenderSummary(t *testing.T) {
	env := stage.Envelope{
		Folio:   "F-2024-001",
		Project: &stage.Project{ID: 7, Name: "Obra Norte"},
		Summary: stage.Summary{Discovered: 5, Written: 4, Skipped: 1},
	}

	out := RenderSummary(env, "out/Proyecto_F-2024-001_20240305_101500")

	for _, want := range []string{"F-2024-001", "Obra Norte (#7)", "out/Proyecto_F-2024-001_20240305_101500", "Encontrados", "5", "Descargados", "4", "Sin datos"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Fallidos")
}
