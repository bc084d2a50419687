// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/pkg/session"
)

// ChatPort is the TUI-facing subset of a session.
type ChatPort interface {
	SetCredential(key string)
	SubmitURL(ctx context.Context, pageURL string) (session.IndexInfo, error)
	Ask(ctx context.Context, question string) (string, error)
	Messages() []models.Message
}

type field int

const (
	keyField field = iota
	urlField
	chatField
	fieldCount
)

type indexedMsg struct {
	info session.IndexInfo
	err  error
}

type answerMsg struct {
	reply string
	err   error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	inputs   [fieldCount]textinput.Model
	focus    field
	viewport viewport.Model
	spinner  spinner.Model

	// transcript is refreshed only when no command is running, so View never reads the session concurrently.
	transcript []models.Message
	busy       bool
	busyLabel  string
	status     string
	isError    bool
	ready      bool
}

func New(ctx context.Context, chat ChatPort, credential string) Model {
	key := textinput.New()
	key.Prompt = "API key: "
	key.Placeholder = "sk-..."
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'
	key.SetValue(credential)

	url := textinput.New()
	url.Prompt = "Website: "
	url.Placeholder = "https://example.com"

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "Ask about the website and press Enter"
	in.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctx:        ctx,
		chat:       chat,
		inputs:     [fieldCount]textinput.Model{key, url, in},
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		transcript: chat.Messages(),
		status:     "Enter your API key and a website URL. Tab switches fields.",
	}
	if credential != "" {
		chat.SetCredential(credential)
		m.focus = urlField
	}
	m.inputs[m.focus].Focus()
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, vh := transcriptStyle.GetFrameSize()
		// header, two settings lines, input, status
		reserved := 5 + vh
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		for i := range m.inputs {
			m.inputs[i].Width = max(10, msg.Width-12)
		}
		m.render()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case indexedMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(fmt.Sprintf("Website content loaded and processed successfully! (%d characters)", msg.info.Characters))
			m.setFocus(chatField)
		}
		m.sync()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus("")
		}
		m.sync()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyTab:
			m.setFocus((m.focus + 1) % fieldCount)
			return m, nil
		case tea.KeyShiftTab:
			m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		}
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	key := strings.TrimSpace(m.inputs[keyField].Value())
	m.chat.SetCredential(key)

	switch m.focus {
	case keyField, urlField:
		pageURL := strings.TrimSpace(m.inputs[urlField].Value())
		if m.focus == keyField && pageURL == "" {
			m.setFocus(urlField)
			return m, nil
		}
		if pageURL == "" {
			m.setError(session.ErrMissingInput)
			return m, nil
		}
		return m.start("Indexing "+pageURL, m.index(pageURL))

	default:
		question := m.inputs[chatField].Value()
		m.inputs[chatField].Reset()
		// Show the question while the answer is pending.
		if strings.TrimSpace(question) != "" {
			m.transcript = append(m.transcript, models.Message{Role: models.RoleUser, Content: question})
			m.render()
		}
		return m.start("Loading...", m.ask(question))
	}
}

func (m Model) start(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.busyLabel = label
	m.setStatus("")
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m Model) index(pageURL string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		info, err := chat.SubmitURL(ctx, pageURL)
		return indexedMsg{info: info, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		reply, err := chat.Ask(ctx, question)
		return answerMsg{reply: reply, err: err}
	}
}

func (m *Model) setFocus(f field) {
	m.inputs[m.focus].Blur()
	m.focus = f
	m.inputs[m.focus].Focus()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.isError = false
}

func (m *Model) setError(err error) {
	m.status = session.UserMessage(err)
	m.isError = true
}

// sync re-reads the transcript from the session. Only call it while no command is running.
func (m *Model) sync() {
	m.transcript = m.chat.Messages()
	m.render()
}

func (m *Model) render() {
	m.viewport.SetContent(renderTranscript(m.transcript, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " " + m.busyLabel
	case m.isError:
		status = errorStyle.Render(m.status)
	default:
		status = statusStyle.Render(m.status)
	}

	return strings.Join([]string{
		headerStyle.Render("Website Chatbot"),
		m.inputs[keyField].View(),
		m.inputs[urlField].View(),
		transcriptStyle.Render(m.viewport.View()),
		m.inputs[chatField].View(),
		status,
	}, "\n")
}

func renderTranscript(msgs []models.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(max(10, width-2))
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == models.RoleUser {
			b.WriteString(userStyle.Render("You"))
		} else {
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(msg.Content))
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
