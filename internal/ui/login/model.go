package login

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4D"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true).
			Padding(1, 0)
)

type field int

const (
	fieldUsername field = iota
	fieldEmail
	fieldPassword
)

// Model is the login and registration form.
type Model struct {
	usernameInput textinput.Model
	emailInput    textinput.Model
	passwordInput textinput.Model
	focused       field
	register      bool
	err           string
	submitting    bool
	session       *auth.Session
	authn         auth.Authenticator
	timeout       time.Duration
	width         int
	height        int
}

// New creates a new login form.
func New(session *auth.Session, authn auth.Authenticator, timeout time.Duration) Model {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "username"
	usernameInput.Focus()
	usernameInput.Width = 30

	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Width = 30

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.Width = 30

	return Model{
		usernameInput: usernameInput,
		emailInput:    emailInput,
		passwordInput: passwordInput,
		session:       session,
		authn:         authn,
		timeout:       timeout,
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Registering reports whether the form is in registration mode.
func (m Model) Registering() bool {
	return m.register
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focused = m.next(1)
			return m, m.updateFocus()
		case "shift+tab", "up":
			m.focused = m.next(-1)
			return m, m.updateFocus()
		case "ctrl+r":
			m.register = !m.register
			m.err = ""
			if !m.register && m.focused == fieldEmail {
				m.focused = fieldPassword
			}
			return m, m.updateFocus()
		case "enter":
			return m.submit()
		}

	case messages.LoginResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focused {
	case fieldUsername:
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	case fieldEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case fieldPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	username := strings.TrimSpace(m.usernameInput.Value())
	email := strings.TrimSpace(m.emailInput.Value())
	password := m.passwordInput.Value()
	if username == "" || password == "" {
		m.err = "Username and password required"
		return m, nil
	}
	if m.register && !strings.Contains(email, "@") {
		m.err = "A valid email is required"
		return m, nil
	}
	m.submitting = true
	m.err = ""

	session := m.session
	authn := m.authn
	register := m.register
	timeout := m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var err error
		if register {
			err = session.Register(ctx, authn, username, email, password)
		} else {
			err = session.Login(ctx, authn, username, password)
		}
		if err != nil {
			return messages.LoginResultMsg{Err: err}
		}
		return messages.LoginResultMsg{Username: session.Credential().Username}
	}
}

// next steps focus by delta, skipping the email field when logging in.
func (m Model) next(delta int) field {
	f := m.focused
	for {
		f = field((int(f) + delta + 3) % 3)
		if f != fieldEmail || m.register {
			return f
		}
	}
}

func (m *Model) updateFocus() tea.Cmd {
	m.usernameInput.Blur()
	m.emailInput.Blur()
	m.passwordInput.Blur()
	switch m.focused {
	case fieldEmail:
		return m.emailInput.Focus()
	case fieldPassword:
		return m.passwordInput.Focus()
	default:
		return m.usernameInput.Focus()
	}
}

// View renders the form.
func (m Model) View() string {
	var sb strings.Builder

	title, action, other := "Log in to Instalight", "Logging in...", "Ctrl+R to register"
	if m.register {
		title, action, other = "Create an account", "Creating account...", "Ctrl+R to log in"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("Username:"))
	sb.WriteString("\n")
	sb.WriteString(m.usernameInput.View())
	sb.WriteString("\n\n")
	if m.register {
		sb.WriteString(labelStyle.Render("Email:"))
		sb.WriteString("\n")
		sb.WriteString(m.emailInput.View())
		sb.WriteString("\n\n")
	}
	sb.WriteString(labelStyle.Render("Password:"))
	sb.WriteString("\n")
	sb.WriteString(m.passwordInput.View())
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString(action)
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " to submit, " + focusedStyle.Render("Tab") + " next field, " + other)
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
