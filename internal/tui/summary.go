package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flarebyte/folio-mirror/internal/stage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// RenderSummary renders the end-of-run report. root is the run folder as
// shown to the operator.
func RenderSummary(env stage.Envelope, root string) string {
	var lines []string
	row := func(label, value string) {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-12s", label)), value))
	}
	row("Folio", env.Folio)
	if env.Project != nil {
		row("Proyecto", fmt.Sprintf("%s (#%d)", env.Project.Name, env.Project.ID))
	}
	if root != "" {
		row("Carpeta", root)
	}
	s := env.Summary
	row("Encontrados", fmt.Sprintf("%d", s.Discovered))
	row("Descargados", fmt.Sprintf("%d", s.Written))
	if s.Skipped > 0 {
		row("Sin datos", fmt.Sprintf("%d", s.Skipped))
	}
	if s.Failed > 0 {
		row("Fallidos", fmt.Sprintf("%d", s.Failed))
	}
	if n := len(env.Notices); n > 0 {
		row("Avisos", fmt.Sprintf("%d", n))
	}
	body := titleStyle.Render("Descarga completada") + "\n" + strings.Join(lines, "\n")
	return boxStyle.Render(body)
}
