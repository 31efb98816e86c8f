// Package tui holds the terminal surfaces of the mirror: the folio prompt
// and the end-of-run summary.
package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ErrCancelled is returned when the operator leaves the prompt.
var ErrCancelled = errors.New("folio prompt cancelled")

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

// FolioModel asks for one line of input.
type FolioModel struct {
	input     textinput.Model
	value     string
	done      bool
	cancelled bool
}

// NewFolioModel returns a focused prompt.
func NewFolioModel() FolioModel {
	ti := textinput.New()
	ti.Placeholder = "F-2024-001"
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()
	return FolioModel{input: ti}
}

func (m FolioModel) Init() tea.Cmd { return textinput.Blink }

func (m FolioModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m FolioModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		promptStyle.Render("Folio del proyecto"),
		m.input.View(),
		hintStyle.Render("enter para buscar, esc para salir"))
}

// Value returns the trimmed folio and whether it was submitted.
func (m FolioModel) Value() (string, bool) {
	return m.value, m.done
}

// PromptFolio reads the folio from in. A terminal gets the interactive
// prompt; anything else is read as a single line. The result is trimmed and
// may be empty.
func PromptFolio(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	if !IsTerminal(in) {
		return readLine(in)
	}
	p := tea.NewProgram(NewFolioModel(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("folio prompt: %w", err)
	}
	m, ok := final.(FolioModel)
	if !ok {
		return "", fmt.Errorf("folio prompt: unexpected model %T", final)
	}
	v, submitted := m.Value()
	if !submitted {
		return "", ErrCancelled
	}
	return v, nil
}

// IsTerminal reports whether r is a terminal.
func IsTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func readLine(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read folio: %w", err)
	}
	return "", nil
}
