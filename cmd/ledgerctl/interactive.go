package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	ledgerbridge "github.com/wippyai/ledger-bridge"
	"github.com/wippyai/ledger-bridge/ledger"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const pendingRefresh = 250 * time.Millisecond

type interactiveModel struct {
	err      error
	bridge   *ledgerbridge.Bridge
	cfg      *ledgerbridge.Config
	result   string
	ops      []ledger.Operation
	inputs   []textinput.Model
	timeout  time.Duration
	selected int
	focusIdx int
	pending  int
	state    modelState
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateAwaiting
	stateShowResult
)

func newInteractiveModel(cfg *ledgerbridge.Config, timeout time.Duration) *interactiveModel {
	return &interactiveModel{
		cfg:     cfg,
		ops:     ledger.Operations(),
		timeout: timeout,
		state:   stateSelectOp,
	}
}

type startedMsg struct {
	err    error
	bridge *ledgerbridge.Bridge
}

type callResultMsg struct {
	err    error
	result string
}

type tickMsg struct{}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.startBridge, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pendingRefresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *interactiveModel) startBridge() tea.Msg {
	b, err := ledgerbridge.New(context.Background(), m.cfg)
	return startedMsg{bridge: b, err: err}
}

func (m *interactiveModel) shutdown() {
	if m.bridge == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	_ = m.bridge.Close(ctx)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.shutdown()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.shutdown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if m.bridge == nil {
					break
				}
				m.prepareInputs()
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				m.state = stateAwaiting
				return m, m.callOperation(m.inputValues())

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.bridge = msg.bridge

	case tickMsg:
		if m.bridge != nil {
			m.pending = m.bridge.Registry().Len()
		}
		return m, tick()

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.Params))
	for i, p := range op.Params {
		ti := textinput.New()
		ti.Placeholder = ledger.TypeName(p.Type)
		if p.Kind == ledger.ParamOptional {
			ti.Placeholder += " (optional)"
		}
		ti.Prompt = p.Name + ": "
		ti.Width = 48
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) inputValues() []string {
	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = input.Value()
	}
	return raw
}

// callOperation captures everything it needs up front; the returned command
// runs off the update loop.
func (m *interactiveModel) callOperation(raw []string) tea.Cmd {
	op := m.ops[m.selected]
	client := m.bridge.Client()
	timeout := m.timeout
	return func() tea.Msg {
		values, err := parseArgs(op, raw)
		if err != nil {
			return callResultMsg{err: err}
		}
		fields, err := call(context.Background(), client, op, values, timeout)
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: strings.Join(fields, "\n")}
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.bridge == nil {
		return "Starting engine..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Ledger"))
	b.WriteString(" ")
	b.WriteString(m.bridge.ID())
	b.WriteString(helpStyle.Render(fmt.Sprintf("  pending: %d", m.pending)))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + op.Name))
				b.WriteString(" " + m.formatOp(op))
			} else {
				b.WriteString("  " + opStyle.Render(op.Name) + " " + m.formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", opStyle.Render(op.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(ledger.TypeName(op.Params[i].Type)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateAwaiting:
		b.WriteString(fmt.Sprintf("Waiting for %s...\n", opStyle.Render(m.ops[m.selected].Name)))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatOp(op ledger.Operation) string {
	var params []string
	for _, p := range op.Params {
		params = append(params, p.Name+": "+typeStyle.Render(ledger.TypeName(p.Type)))
	}
	return "(" + strings.Join(params, ", ") + ") -> " + typeStyle.Render(op.Result.String())
}

func runInteractive(cfg *ledgerbridge.Config, timeout time.Duration) error {
	p := tea.NewProgram(newInteractiveModel(cfg, timeout), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
