package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sheetdiff/internal/chat"
	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/llm"
	"github.com/nconklindev/sheetdiff/internal/loader"
	"github.com/nconklindev/sheetdiff/internal/report"
	"github.com/nconklindev/sheetdiff/internal/table"
	"github.com/nconklindev/sheetdiff/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// maxListedMismatches caps the mismatch lines drawn in the results view.
const maxListedMismatches = 200

type state int

const (
	stateSourcePicker state = iota
	stateTargetPicker
	stateLoading
	stateResults
	stateError
)

// Options configure the terminal UI.
type Options struct {
	Loader loader.Options
	Diff   []diff.Option
	// Assistant answers questions; nil hides the question box.
	Assistant *chat.Assistant
	// Files, when both are set, skips the pickers and loads them directly.
	Files types.ComparisonFiles
}

type Model struct {
	state        state
	opts         Options
	filepicker   filepicker.Model
	files        types.ComparisonFiles
	source       *table.Dataset
	target       *table.Dataset
	result       *diff.Result
	conversation *chat.Conversation
	input        textinput.Model
	viewport     viewport.Model
	spinner      spinner.Model
	asking       bool
	notice       string
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan datasetsLoadedMsg
	initCmd      tea.Cmd
}

type datasetsLoadedMsg struct {
	source *table.Dataset
	target *table.Dataset
	result *diff.Result
	err    error
}

type answerMsg struct {
	exchange chat.Exchange
	err      error
}

type reportWrittenMsg struct {
	path string
	err  error
}

type progressMsg float64

type waitForProgressMsg struct{}

func InitialModel(opts Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".xlsx", ".xlsm"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(orange)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(amber)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(amber)
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(gray)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(orange).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(gray)

	ti := textinput.New()
	ti.Placeholder = "Ask about the sheets"
	ti.CharLimit = 500
	ti.Prompt = "> "

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(orange)))

	m := Model{
		state:        stateSourcePicker,
		opts:         opts,
		filepicker:   fp,
		conversation: chat.NewConversation(),
		input:        ti,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		progress:     progress.New(progress.WithGradient("#FF8C42", "#FF9F5A")),
	}

	if opts.Files.Source != "" && opts.Files.Target != "" {
		m.files = opts.Files
		m, m.initCmd = m.startLoading()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.initCmd != nil {
		return m.initCmd
	}
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the title, subtitle and help lines
		height := msg.Height - 14
		if height < 5 {
			height = 5 // Minimum height
		}
		m.filepicker.SetHeight(height)

		m.viewport.Width = max(msg.Width-6, 20)
		m.viewport.Height = max(msg.Height-12, 5)
		m.input.Width = max(msg.Width-10, 20)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.state {
		case stateSourcePicker, stateTargetPicker:
			if msg.String() == "q" {
				return m, tea.Quit
			}

		case stateResults:
			return m.updateResults(msg)

		case stateError:
			switch msg.String() {
			case "q", "enter", "esc":
				return m, tea.Quit
			}
			return m, nil
		}

	case datasetsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.source = msg.source
		m.target = msg.target
		m.result = msg.result
		m.state = stateResults
		m.refreshViewport()
		return m, nil

	case answerMsg:
		m.asking = false
		switch {
		case msg.err == nil:
			m.notice = ""
		case errors.Is(msg.err, chat.ErrEmptyQuery):
			m.notice = "Please enter a question."
		default:
			m.notice = "An error occurred: " + msg.err.Error()
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case reportWrittenMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Report written to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if !m.asking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateLoading {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	// Handle filepicker updates
	if m.state == stateSourcePicker || m.state == stateTargetPicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			return m.selectFile(path)
		}

		return m, cmd
	}

	return m, nil
}

// selectFile records a picked file. Picking the target starts the load.
func (m Model) selectFile(path string) (Model, tea.Cmd) {
	if m.state == stateSourcePicker {
		m.files.Source = path
		m.state = stateTargetPicker
		return m, nil
	}
	m.files.Target = path
	return m.startLoading()
}

func (m Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			return m, nil
		case "enter":
			return m.submitQuery()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "i", "tab":
		if m.opts.Assistant == nil {
			m.notice = "The assistant is not configured. Set OPENAI_API_KEY to enable it."
			return m, nil
		}
		cmd := m.input.Focus()
		return m, cmd
	case "c":
		m.conversation.Clear()
		m.notice = "History cleared."
		m.refreshViewport()
		return m, nil
	case "e":
		return m, writeReport(m.files.Source, m.result)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) submitQuery() (Model, tea.Cmd) {
	if m.asking {
		return m, nil
	}
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.notice = "Please enter a question."
		return m, nil
	}

	m.input.Reset()
	m.asking = true
	m.notice = ""

	assistant := m.opts.Assistant
	conversation := m.conversation
	subject := chat.Subject{Source: m.source, Target: m.target, Result: m.result}

	ask := func() tea.Msg {
		ex, err := assistant.Ask(context.Background(), conversation, subject, query)
		return answerMsg{exchange: ex, err: err}
	}
	return m, tea.Batch(ask, m.spinner.Tick)
}

func writeReport(source string, res *diff.Result) tea.Cmd {
	return func() tea.Msg {
		path := report.DefaultPath(source, ".xlsx")
		return reportWrittenMsg{path: path, err: report.SaveXLSX(path, res)}
	}
}

func (m Model) startLoading() (Model, tea.Cmd) {
	m.state = stateLoading
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan datasetsLoadedMsg, 1)

	cmd := tea.Batch(
		func() tea.Msg {
			// Capture values for the goroutine
			progressChan := m.progressChan
			resultChan := m.resultChan
			files := m.files
			opts := m.opts

			go func() {
				var msg datasetsLoadedMsg
				msg.source, msg.err = loadScaled(files.Source, opts.Loader, progressChan, 0)
				if msg.err == nil {
					msg.target, msg.err = loadScaled(files.Target, opts.Loader, progressChan, 0.5)
				}
				if msg.err == nil {
					msg.result, msg.err = diff.Compare(msg.source, msg.target, opts.Diff...)
				}

				// Send result
				resultChan <- msg

				// Close channels
				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		m.progress.Init(), // Start progress bar animation
	)

	return m, cmd
}

// loadScaled reads one file, reporting its progress as half of the total
// starting at offset.
func loadScaled(path string, opts loader.Options, out chan<- float64, offset float64) (*table.Dataset, error) {
	inner := make(chan float64, 16)
	opts.Progress = inner

	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range inner {
			select {
			case out <- offset + p/2:
			default:
			}
		}
	}()

	ds, err := loader.ReadFile(path, opts)
	close(inner)
	<-done
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

func waitForProgress(progressChan chan float64, resultChan chan datasetsLoadedMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return res
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m *Model) refreshViewport() {
	if m.result == nil {
		return
	}
	m.viewport.SetContent(m.resultsContent())
}

func (m Model) resultsContent() string {
	var s strings.Builder

	if m.result.SchemaMatch {
		s.WriteString(MatchStyle.Render("✓ Schemas matched"))
	} else {
		s.WriteString(ErrorStyle.Render("✗ Schemas not matched"))
	}
	s.WriteString("\n")
	for _, line := range report.Summary(m.result)[1:] {
		s.WriteString(line)
		s.WriteString("\n")
	}

	if n := len(m.result.Mismatches); n > 0 {
		s.WriteString("\n")
		s.WriteString(LabelStyle.Render("Mismatches"))
		s.WriteString("\n")
		for i, mm := range m.result.Mismatches {
			if i == maxListedMismatches {
				s.WriteString(HelpStyle.Render(fmt.Sprintf("… %s more, press e to export them all", humanize.Comma(int64(n-i)))))
				s.WriteString("\n")
				break
			}
			s.WriteString(fmt.Sprintf("  %s row %d: %s → %s\n", mm.Column, mm.Row, mm.Source, mm.Target))
		}
	}

	messages := m.conversation.Messages()
	if len(messages) > 0 {
		s.WriteString("\n")
		s.WriteString(LabelStyle.Render("Conversation History"))
		s.WriteString("\n")
		for _, msg := range messages {
			if msg.Role == llm.RoleUser {
				s.WriteString(UserStyle.Render("You: "))
			} else {
				s.WriteString(AssistantStyle.Render("Assistant: "))
			}
			s.WriteString(msg.Content)
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m Model) View() string {
	switch m.state {
	case stateSourcePicker, stateTargetPicker:
		return m.viewFilePicker()
	case stateLoading:
		return m.viewLoading()
	case stateResults:
		return m.viewResults()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("sheetdiff - Compare Two Sheets"))
	s.WriteString("\n")
	if m.state == stateSourcePicker {
		s.WriteString(SubtitleStyle.Render("Select the SOURCE file (.csv or .xlsx)"))
	} else {
		s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Source: %s. Now select the TARGET file", filepath.Base(m.files.Source))))
	}
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewLoading() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Comparing..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s\n%s", filepath.Base(m.files.Source), filepath.Base(m.files.Target)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewResults() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(fmt.Sprintf("%s vs %s", filepath.Base(m.files.Source), filepath.Base(m.files.Target))))
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")

	if m.asking {
		s.WriteString(m.spinner.View() + " Thinking...")
		s.WriteString("\n")
	} else if m.opts.Assistant != nil {
		s.WriteString(m.input.View())
		s.WriteString("\n")
	}
	if m.notice != "" {
		s.WriteString(SuccessStyle.Render(m.notice))
		s.WriteString("\n")
	}

	help := "↑/↓: scroll • i: ask • c: clear history • e: export xlsx • q: quit"
	if m.input.Focused() {
		help = "enter: send • esc: stop typing"
	}
	s.WriteString(HelpStyle.Render(help))

	return s.String()
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q, enter or esc to exit"))

	return BoxStyle.Render(s.String())
}
