package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
)

// AskPort is the TUI-facing subset of the conversation session.
type AskPort interface {
	Ask(ctx context.Context, question string) (string, []domain.Citation, error)
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	session AskPort
	input   textinput.Model
	view    viewport.Model
	turns   []domain.Turn
	summary string
	status  string
	waiting bool
	ready   bool
}

type answerMsg struct {
	question  string
	answer    string
	citations []domain.Citation
	err       error
}

// New creates a new TUI model instance. The summary line from ingestion is
// shown under the header.
func New(session AskPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{session: session, input: ti, view: vp, summary: summary, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptStyle.GetFrameSize()
		_, qh := questionStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.view.Width = max(20, msg.Width)
		m.view.Height = max(3, vh-rh)
		m.view.SetContent(m.renderTranscript())
		m.view.GotoBottom()
		return m, nil
	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.turns = append(m.turns, domain.Turn{
				Question:  msg.question,
				Answer:    msg.answer,
				Citations: msg.citations,
			})
			m.status = fmt.Sprintf("Answered with %d sources.", len(msg.citations))
		}
		m.view.SetContent(m.renderTranscript())
		m.view.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.waiting = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "up":
			m.view.LineUp(1)
			return m, nil
		case "down":
			m.view.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, citations, err := m.session.Ask(context.Background(), question)
		return answerMsg{question: question, answer: answer, citations: citations, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("ragchat")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	transcript := transcriptStyle.Render(m.view.View())
	input := questionStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(askedStyle.Render("You: " + t.Question))
		b.WriteString("\n")
		b.WriteString(t.Answer)
		if len(t.Citations) > 0 {
			b.WriteString("\n")
			b.WriteString(citeStyle.Render(formatCitations(t.Citations)))
		}
	}
	return b.String()
}

func formatCitations(citations []domain.Citation) string {
	parts := make([]string, len(citations))
	for i, c := range citations {
		loc := c.Source
		if c.Page > 0 {
			loc = fmt.Sprintf("%s p.%d", c.Source, c.Page)
		}
		parts[i] = fmt.Sprintf("[%d] %s (%.3f)", i+1, loc, c.Score)
	}
	return strings.Join(parts, "\n")
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	askedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	citeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
