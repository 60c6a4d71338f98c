package statusbar

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#262626")).
			Foreground(lipgloss.Color("#FFFFFF"))

	activeTabStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#E1306C")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#444444")).
				Foreground(lipgloss.Color("#CCCCCC")).
				Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#262626")).
			Foreground(lipgloss.Color("#5BD17C")).
			Padding(0, 1)

	newPostsStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#405DE6")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#262626")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)
)

// Tabs are the top-level views, in key order.
var Tabs = []string{"Feed", "Search", "Upload", "Profile"}

// Model is the status bar at the bottom of the screen.
type Model struct {
	width    int
	active   string
	username string
	newPosts int
	status   string
	isError  bool
}

// New creates a new status bar.
func New() Model {
	return Model{active: Tabs[0]}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetActiveTab highlights the named tab. Names outside Tabs clear the
// highlight.
func (m *Model) SetActiveTab(name string) {
	m.active = name
}

// SetUser sets the logged-in username.
func (m *Model) SetUser(username string) {
	m.username = username
}

// SetNewPosts sets the count of unseen posts at the top of the feed.
func (m *Model) SetNewPosts(n int) {
	m.newPosts = n
}

func (m *Model) SetStatus(text string, isError bool) {
	m.status = text
	m.isError = isError
}

// Update is a no-op for the status bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	var tabsStr string
	for i, t := range Tabs {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == m.active {
			tabsStr += activeTabStyle.Render(label)
		} else {
			tabsStr += inactiveTabStyle.Render(label)
		}
	}

	var right string
	if m.newPosts > 0 {
		right += newPostsStyle.Render(fmt.Sprintf("%d new", m.newPosts))
	}
	if m.status != "" {
		if m.isError {
			right += errorTextStyle.Render(m.status)
		} else {
			right += statusTextStyle.Render(m.status)
		}
	}
	if m.username != "" {
		right += userStyle.Render("@" + m.username)
	} else {
		right += statusTextStyle.Render("L:login")
	}

	gap := m.width - lipgloss.Width(tabsStr) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	mid := barStyle.Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, tabsStr, mid, right)
}
