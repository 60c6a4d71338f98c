// Package search is the user search view. Typing is debounced and only
// the response to the latest query is shown.
package search

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
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true).Padding(1, 0)
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4D"))
)

const recentLimit = 8

// Searcher finds users and remembers past queries.
type Searcher interface {
	SearchUsers(ctx context.Context, cred auth.Credential, query string) ([]api.User, error)
	RecentSearches(ctx context.Context, limit int) []string
}

type tickMsg struct {
	seq   int
	query string
}

type recentMsg struct {
	queries []string
}

// Model is the search view.
type Model struct {
	input    textinput.Model
	searcher Searcher
	session  *auth.Session
	debounce time.Duration
	timeout  time.Duration

	seq       int
	query     string
	results   []api.User
	recent    []string
	cursor    int
	searching bool
	err       string
	width     int
	height    int
}

// New creates a search view.
func New(searcher Searcher, session *auth.Session, debounce, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = "Search users by name or email"
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 40
	ti.Focus()

	return Model{
		input:    ti,
		searcher: searcher,
		session:  session,
		debounce: debounce,
		timeout:  timeout,
	}
}

// Init loads the recent searches.
func (m Model) Init() tea.Cmd {
	searcher := m.searcher
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return recentMsg{queries: searcher.RecentSearches(context.Background(), recentLimit)}
	})
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = min(max(w-6, 10), 60)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recentMsg:
		m.recent = msg.queries
		return m, nil

	case tickMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.search(msg.seq, msg.query)

	case messages.SearchResultsMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.searching = false
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			return m, nil
		}
		m.err = ""
		m.results = msg.Users
		m.cursor = 0
		if m.searcher != nil {
			searcher := m.searcher
			return m, func() tea.Msg {
				return recentMsg{queries: searcher.RecentSearches(context.Background(), recentLimit)}
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < m.choices()-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			return m.choose()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(cmd, m.queryChanged())
}

// queryChanged schedules a search for the current input when it differs
// from the last one. An empty query clears the results immediately.
func (m *Model) queryChanged() tea.Cmd {
	q := strings.TrimSpace(m.input.Value())
	if q == m.query {
		return nil
	}
	m.query = q
	m.seq++
	m.cursor = 0
	m.err = ""
	if q == "" {
		m.results = nil
		m.searching = false
		return nil
	}
	m.searching = true
	seq := m.seq
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return tickMsg{seq: seq, query: q}
	})
}

func (m Model) search(seq int, query string) tea.Cmd {
	searcher := m.searcher
	cred := m.session.Credential()
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		users, err := searcher.SearchUsers(ctx, cred, query)
		return messages.SearchResultsMsg{Seq: seq, Query: query, Users: users, Err: err}
	}
}

// choices is the number of selectable rows: results, or recent queries
// while the input is empty.
func (m Model) choices() int {
	if m.query == "" {
		return len(m.recent)
	}
	return len(m.results)
}

func (m Model) choose() (Model, tea.Cmd) {
	if m.query == "" {
		if m.cursor < len(m.recent) {
			m.input.SetValue(m.recent[m.cursor])
			m.input.CursorEnd()
			return m, m.queryChanged()
		}
		return m, nil
	}
	if m.cursor < len(m.results) {
		id := m.results[m.cursor].ID
		return m, func() tea.Msg { return messages.OpenUserMsg{UserID: id} }
	}
	return m, nil
}

// View renders the search box and results.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Search"))
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch {
	case m.err != "":
		sb.WriteString(errorStyle.Render(m.err))
	case m.query == "":
		if len(m.recent) == 0 {
			sb.WriteString(dimStyle.Render("Type to search."))
			break
		}
		sb.WriteString(dimStyle.Render("Recent"))
		sb.WriteString("\n")
		for i, q := range m.recent {
			sb.WriteString(m.row(i, q))
		}
	case m.searching && len(m.results) == 0:
		sb.WriteString(dimStyle.Render("Searching..."))
	case len(m.results) == 0:
		sb.WriteString(dimStyle.Render("No users found."))
	default:
		for i, u := range m.results {
			sb.WriteString(m.row(i, "@"+u.Username+"  "+dimStyle.Render(u.Email)))
		}
	}
	return sb.String()
}

func (m Model) row(i int, text string) string {
	if i == m.cursor {
		return selectedStyle.Render("> ") + text + "\n"
	}
	return "  " + resultStyle.Render(text) + "\n"
}
