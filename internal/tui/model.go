package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"abchat/internal/service"
)

// Asker is the TUI-facing subset of the chat service.
type Asker interface {
	Ask(ctx context.Context, question string) (*service.Answer, error)
}

// exchange is one question and its reply.
type exchange struct {
	question string
	answer   *service.Answer
	err      error
}

type answerMsg struct {
	question string
	answer   *service.Answer
	err      error
}

var exitWords = map[string]struct{}{"salir": {}, "exit": {}, "quit": {}}

// Model is the Bubble Tea model for the chat loop.
type Model struct {
	ctx      context.Context
	service  Asker
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	summary  string
	status   string
	cursor   int
	ready    bool
	pending  bool
}

// New creates a chat model. ctx is passed to every question and carries the logger.
func New(ctx context.Context, service Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Pregunta sobre el A/B test y pulsa Enter"
	ti.Focus()
	ti.CharLimit = 500
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Datos cargados. Escribe 'salir' para terminar.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and question boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case answerMsg:
		m.pending = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		m.cursor = len(m.history) - 1
		m.status = statusFor(msg)
		m.viewport.SetContent(m.renderCurrent())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			if _, ok := exitWords[strings.ToLower(q)]; ok {
				return m, tea.Quit
			}
			m.input.Reset()
			m.pending = true
			m.status = "Analizando..."
			return m, m.ask(q)
		case "pgup":
			if len(m.history) > 0 {
				m.cursor = (m.cursor - 1 + len(m.history)) % len(m.history)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "pgdown":
			if len(m.history) > 0 {
				m.cursor = (m.cursor + 1) % len(m.history)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		ans, err := svc.Ask(ctx, q)
		return answerMsg{question: q, answer: ans, err: err}
	}
}

func statusFor(msg answerMsg) string {
	switch {
	case msg.err != nil:
		return "Error: " + msg.err.Error()
	case msg.answer.Degraded:
		return "Modelo de lenguaje no disponible; se muestran las estadísticas calculadas."
	default:
		return fmt.Sprintf("Respuesta (%s) para %q", msg.answer.Source, msg.question)
	}
}

// View renders the layout and the selected exchange.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chatbot de análisis A/B")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	if m.pending {
		status = pendingStyle.Render(m.status)
	}
	answers := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + answers + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.history) == 0 {
		return "Aún no hay preguntas. Prueba: ¿Cómo se comportaron las tiendas Mall vs Street?"
	}
	ex := m.history[m.cursor]
	title := fmt.Sprintf("Pregunta %d/%d", m.cursor+1, len(m.history))
	question := questionStyle.Render(ex.question)
	var body string
	switch {
	case ex.err != nil:
		body = errorStyle.Render(ex.err.Error())
	default:
		title += fmt.Sprintf("  fuente=%s", ex.answer.Source)
		body = ex.answer.Text
	}
	width := max(20, m.viewport.Width-4)
	return title + "\n\n" + question + "\n\n" + lipgloss.NewStyle().Width(width).Render(body)
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Italic(true)
)
