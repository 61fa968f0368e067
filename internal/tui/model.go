// Package tui is a terminal chat over the answerer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/kotae/internal/rag"
)

// Asker is the TUI-facing subset of the answerer.
type Asker interface {
	AskWithTopK(ctx context.Context, query string, k int) rag.Answer
}

type turn struct {
	question string
	answer   *rag.Answer
	took     time.Duration
}

type answerMsg struct {
	answer rag.Answer
	took   time.Duration
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	asker    Asker
	topK     int
	summary  string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	turns    []turn
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. summary is shown under the header.
func New(asker Asker, topK int, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Задайте вопрос и нажмите Enter"
	ti.Focus()
	ti.CharLimit = 2000
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		asker:    asker,
		topK:     topK,
		summary:  summary,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Ready. Esc or Ctrl+C to quit.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, window size and answers arriving from the answerer.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 + bh
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.turns = append(m.turns, turn{question: q})
			m.pending = true
			m.status = "Thinking..."
			m.input.Reset()
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		}

	case answerMsg:
		if n := len(m.turns); n > 0 {
			a := msg.answer
			m.turns[n-1].answer = &a
			m.turns[n-1].took = msg.took
		}
		m.pending = false
		m.status = fmt.Sprintf("%s in %s", msg.answer.Outcome, msg.took.Round(time.Millisecond))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("kotae")
	summary := dimStyle.Render(m.summary)
	status := m.status
	if m.pending {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) ask(q string) tea.Cmd {
	asker, k := m.asker, m.topK
	return func() tea.Msg {
		start := time.Now()
		a := asker.AskWithTopK(context.Background(), q, k)
		return answerMsg{answer: a, took: time.Since(start)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return dimStyle.Render("Ответы строятся по базе новостей и веб-поиску.")
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width-2))
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(questionStyle.Render("Вы: ") + wrap.Render(t.question) + "\n")
		switch {
		case t.answer == nil:
			b.WriteString(dimStyle.Render("..."))
		case t.answer.Outcome == rag.OutcomeGenerationFailed:
			b.WriteString(errorStyle.Render(wrap.Render(t.answer.Text)))
		case t.answer.Refused:
			b.WriteString(refusalStyle.Render(wrap.Render(t.answer.Text)))
		default:
			b.WriteString(wrap.Render(t.answer.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	refusalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
