package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ecmacore/engine"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
	"github.com/wippyai/ecmacore/vm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// debugModel steps a program one resume at a time: each "n" key press
// resumes the thread until it either yields (showing the yielded value
// and the thread's suspended state) or terminates (showing the return
// value or a thrown error). There is no per-opcode single-stepping here
// — the executor only exposes a yield boundary as a resumable pause
// point (see vm.Thread.Resume) — so a fixture with no OpYield runs to
// completion on the first step, same as the non-interactive mode.
type debugModel struct {
	filename string
	thread   *vm.Thread
	fn       *heap.HFunction

	started bool
	steps   int
	last    vm.StepResult
	done    bool
}

func newDebugModel(rt *engine.Runtime, tmpl *heap.Template, filename string) *debugModel {
	return &debugModel{
		filename: filename,
		thread:   rt.NewThread(),
		fn:       heap.NewCompiledFunction(tmpl, nil),
	}
}

func (m *debugModel) Init() tea.Cmd { return nil }

func (m *debugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "n", "enter":
		if m.done {
			return m, nil
		}
		m.steps++
		if !m.started {
			m.started = true
			m.last = m.thread.Resume(m.fn, value.Undefined(), nil)
		} else {
			m.last = m.thread.Resume(nil, value.Value{}, nil)
		}
		if m.last.Done {
			m.done = true
		}
	}
	return m, nil
}

func (m *debugModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("duk -i  %s", m.filename)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("resume step:"), m.steps)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("thread state:"), m.thread.H.State)

	if !m.started {
		b.WriteString("\nPress n/enter to start running the program, q to quit.\n")
		return b.String()
	}

	switch {
	case m.last.Err != nil:
		fmt.Fprintf(&b, "\n%s\n", errorStyle.Render("error: "+m.last.Err.Error()))
	case m.done:
		fmt.Fprintf(&b, "\n%s\n", resultStyle.Render("=> "+describeValue(m.last.Value)))
	default:
		fmt.Fprintf(&b, "\nyielded: %s\n", describeValue(m.last.Value))
		b.WriteString(helpStyle.Render("press n/enter to resume\n"))
	}

	if m.done {
		b.WriteString(helpStyle.Render("\nprogram finished — press q to quit\n"))
	}
	return b.String()
}

func runInteractive(rt *engine.Runtime, tmpl *heap.Template, filename string) error {
	p := tea.NewProgram(newDebugModel(rt, tmpl, filename))
	_, err := p.Run()
	return err
}
