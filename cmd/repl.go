package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"go.wisp.dev/wisp/js"
	"go.wisp.dev/wisp/lib/consts"
	"go.wisp.dev/wisp/loader"
)

var (
	accentColor    = lipgloss.Color("#06B6D4")
	successColor   = lipgloss.Color("#22C55E")
	errorColor     = lipgloss.Color("#F87171")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#FBBF24")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	textInput   textinput.Model
	scope       *js.Scope
	logBuf      *bytes.Buffer
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	quitting    bool
	initialized bool
	exitCode    int
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	CtrlK key.Binding
	Tab   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous entry"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next entry"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "evaluate"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	CtrlK: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "complete"),
	),
}

func newReplModel(scope *js.Scope, logBuf *bytes.Buffer) replModel {
	ti := textinput.New()
	ti.Placeholder = "type an expression..."
	ti.Focus()
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "wisp> "

	return replModel{
		textInput:  ti,
		scope:      scope,
		logBuf:     logBuf,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.completeInput()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			output, isErr, quit := m.evaluate(input)
			m.history = append(m.history, historyEntry{
				input:  input,
				output: output,
				isErr:  isErr,
			})
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			if quit {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":load", ":l":
		if len(parts) != 2 {
			m.history = append(m.history, historyEntry{
				input:  input,
				output: "usage: :load <path>",
				isErr:  true,
			})
			return m, nil
		}
		m.history = append(m.history, m.loadScript(input, parts[1]))
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

// loadScript runs a script file against the shared scope, so its globals
// become available to later entries.
func (m replModel) loadScript(input, path string) historyEntry {
	abspath, err := filepath.Abs(path)
	if err != nil {
		return historyEntry{input: input, output: err.Error(), isErr: true}
	}
	err = m.scope.LoadFromURI(abspath)
	output := m.logBuf.String()
	m.logBuf.Reset()
	if err != nil {
		return historyEntry{input: input, output: output + err.Error(), isErr: true}
	}
	return historyEntry{input: input, output: output + "loaded " + path, isErr: false}
}

// completeInput completes the last word of the input against the scope's
// global names. The built-ins don't show up here, only what was bootstrapped
// or defined interactively.
func (m replModel) completeInput() replModel {
	input := m.textInput.Value()
	words := strings.Fields(input)
	if len(words) == 0 {
		return m
	}
	lastWord := words[len(words)-1]

	var completions []string
	for _, name := range m.scope.Runtime().GlobalObject().Keys() {
		if strings.HasPrefix(name, lastWord) {
			completions = append(completions, name)
		}
	}
	sort.Strings(completions)

	if len(completions) == 1 {
		prefix := strings.TrimSuffix(input, lastWord)
		m.textInput.SetValue(prefix + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			input:  "",
			output: "Completions: " + strings.Join(completions, ", "),
			isErr:  false,
		})
	}

	return m
}

// evaluate runs one entry against the scope. Console output written during
// the call is drained from the log buffer into the transcript. The quit
// result is true when the entry asked the host to exit.
func (m *replModel) evaluate(input string) (output string, isErr, quit bool) {
	value, err := m.scope.Runtime().RunString(input)

	output = m.logBuf.String()
	m.logBuf.Reset()

	if err != nil {
		var iErr *goja.InterruptedError
		if errors.As(err, &iErr) {
			if exit, ok := iErr.Value().(*scriptExit); ok {
				m.exitCode = exit.code
				return output + exit.Error(), false, true
			}
		}
		return output + err.Error(), true, false
	}
	return output + formatValue(value), false, false
}

func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	return v.String()
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("bye\n")
	}

	var b strings.Builder

	header := headerStyle.Render("wisp repl")
	version := mutedStyle.Render("v" + consts.Version)
	b.WriteString(header + " " + version + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(m.width-2, 60))) + "\n\n")

	reservedLines := 8 // header, input, footer
	if m.showHelp {
		reservedLines += 12
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = len(m.history) - availableHeight
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		if entry.isErr {
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		} else {
			b.WriteString("  " + resultStyle.Render("→ "+entry.output) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate entry history"},
		{"Tab", "Complete against the scope's globals"},
		{"Enter", "Evaluate the entry"},
		{":help", "Toggle this help"},
		{":clear", "Clear the transcript"},
		{":load <path>", "Run a script file in the scope"},
		{":quit", "Exit (so does wisp.exit() or ctrl+c)"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-14s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func getReplCmd(ctx context.Context, logger *logrus.Logger) *cobra.Command {
	// replCmd represents the repl command.
	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive scope",
		Long: `Start an interactive scope.

Every entry is evaluated against the same shared global context, so variables,
require()d modules and scripts pulled in with :load all persist between
entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			environment := buildEnvMap(os.Environ())
			opts, err := getRuntimeOptions(cmd.Flags(), environment)
			if err != nil {
				return ExitCode{error: err, Code: invalidConfigErrorCode}
			}
			if len(opts.IncludePath) == 0 {
				pwd, err := os.Getwd()
				if err != nil {
					return err
				}
				opts.IncludePath = []string{pwd}
			}

			// Console output has to land in the transcript, not on the
			// terminal the TUI owns, so the scope logs to a buffer that
			// evaluate() drains after every entry.
			logBuf := &bytes.Buffer{}
			scopeLogger := &logrus.Logger{
				Out:       logBuf,
				Formatter: &RawFormatter{},
				Hooks:     make(logrus.LevelHooks),
				Level:     logger.GetLevel(),
			}

			control := &controlSurface{
				Version: consts.Version,
				Env:     opts.Env,
			}
			scope, err := js.NewScope(scopeLogger, loader.CreateFilesystems(afero.NewOsFs()), opts,
				map[string]interface{}{"wisp": control})
			if err != nil {
				return ExitCode{error: err, Code: invalidConfigErrorCode}
			}
			scope.SetContext(ctx)
			control.exit = func(code int) {
				scope.Runtime().Interrupt(&scriptExit{code: code})
			}

			p := tea.NewProgram(newReplModel(scope, logBuf), tea.WithAltScreen())
			final, err := p.Run()
			if err != nil {
				return err
			}
			if m, ok := final.(replModel); ok && m.exitCode != 0 {
				return ExitCode{error: &scriptExit{code: m.exitCode}, Code: m.exitCode}
			}
			return nil
		},
	}

	replCmd.Flags().SortFlags = false
	replCmd.Flags().AddFlagSet(runtimeOptionFlagSet(false))
	return replCmd
}
