package userprofile

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/render"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true).Padding(1, 0)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4D"))
	confirmStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
)

// Source loads profiles and deletes the viewer's posts.
type Source interface {
	Profile(ctx context.Context, cred auth.Credential, userID int64) (*api.Profile, error)
	DeletePost(ctx context.Context, cred auth.Credential, postID int64) error
}

// Model is the user profile view.
type Model struct {
	userID        int64
	profile       *api.Profile
	cursor        int
	confirmDelete bool
	loading       bool
	err           string
	src           Source
	session       *auth.Session
	timeout       time.Duration
	width         int
	height        int
}

// New creates a profile view for userID.
func New(userID int64, src Source, session *auth.Session, timeout time.Duration) Model {
	return Model{
		userID:  userID,
		loading: true,
		src:     src,
		session: session,
		timeout: timeout,
	}
}

// Init loads the profile.
func (m Model) Init() tea.Cmd {
	userID := m.userID
	src := m.src
	cred := m.session.Credential()
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, err := src.Profile(ctx, cred, userID)
		return messages.ProfileLoadedMsg{UserID: userID, Profile: p, Err: err}
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// UserID returns the profile's user.
func (m Model) UserID() int64 {
	return m.userID
}

func (m Model) own() bool {
	return m.userID == m.session.Credential().UserID
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.ProfileLoadedMsg:
		if msg.UserID != m.userID {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			return m, nil
		}
		m.err = ""
		m.profile = msg.Profile
		m.cursor = min(m.cursor, max(len(m.profile.Posts)-1, 0))
		return m, nil

	case messages.ProfilePostDeletedMsg:
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			return m, nil
		}
		if m.profile != nil {
			m.profile.Posts = lo.Reject(m.profile.Posts, func(p api.Post, _ int) bool { return p.ID == msg.PostID })
			m.cursor = min(m.cursor, max(len(m.profile.Posts)-1, 0))
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirmDelete {
			m.confirmDelete = false
			if msg.String() == "y" {
				return m, m.deleteSelected()
			}
			return m, nil
		}
		posts := m.posts()
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(posts)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			if m.cursor < len(posts) {
				id := posts[m.cursor].ID
				return m, func() tea.Msg { return messages.OpenPostMsg{PostID: id} }
			}
		case "d":
			if m.own() && m.cursor < len(posts) {
				m.confirmDelete = true
			}
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m Model) posts() []api.Post {
	if m.profile == nil {
		return nil
	}
	return m.profile.Posts
}

func (m Model) deleteSelected() tea.Cmd {
	posts := m.posts()
	if m.cursor >= len(posts) {
		return nil
	}
	id := posts[m.cursor].ID
	src := m.src
	cred := m.session.Credential()
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return messages.ProfilePostDeletedMsg{PostID: id, Err: src.DeletePost(ctx, cred, id)}
	}
}

// View renders the profile.
func (m Model) View() string {
	if m.loading && m.profile == nil {
		return titleStyle.Render(fmt.Sprintf("Loading user %d...", m.userID))
	}
	if m.profile == nil || m.profile.User == nil {
		if m.err != "" {
			return titleStyle.Render("Error: " + m.err)
		}
		return titleStyle.Render("User not found")
	}

	u := m.profile.User
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("@" + u.Username))
	sb.WriteString("\n")
	if u.Email != "" && m.own() {
		sb.WriteString(labelStyle.Render("Email: ") + valueStyle.Render(u.Email))
		sb.WriteString("\n")
	}
	if !u.CreatedAt.IsZero() {
		sb.WriteString(labelStyle.Render("Joined: ") + valueStyle.Render(render.TimeAgo(u.CreatedAt)))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		valueStyle.Render(fmt.Sprint(len(m.profile.Posts))), labelStyle.Render("posts"),
		valueStyle.Render(fmt.Sprint(len(m.profile.Followers))), labelStyle.Render("followers"),
		valueStyle.Render(fmt.Sprint(len(m.profile.Following))), labelStyle.Render("following")))
	sb.WriteString("\n")

	if len(m.profile.Posts) == 0 {
		sb.WriteString(dimStyle.Render("No posts yet."))
		sb.WriteString("\n")
	}
	width := m.width - 8
	for i, p := range m.visiblePosts() {
		idx := i + m.offset()
		line := fmt.Sprintf("%s  %s", render.Truncate(render.FirstLine(render.CaptionText(p.Caption, 0)), width-24), render.Likes(p.LikesCount))
		if idx == m.cursor {
			sb.WriteString(selectedStyle.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString(dimStyle.Render("  " + render.TimeAgo(p.CreatedAt)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	switch {
	case m.confirmDelete:
		sb.WriteString(confirmStyle.Render("Delete this post? (y/n)"))
	case m.err != "":
		sb.WriteString(errorStyle.Render(m.err))
	case m.own():
		sb.WriteString(dimStyle.Render("enter: open | d: delete | r: reload"))
	default:
		sb.WriteString(dimStyle.Render("enter: open | r: reload"))
	}
	return sb.String()
}

// visiblePosts keeps the cursor on screen below the header.
func (m Model) visiblePosts() []api.Post {
	posts := m.posts()
	off := m.offset()
	end := len(posts)
	if rows := m.rows(); rows > 0 && off+rows < end {
		end = off + rows
	}
	return posts[off:end]
}

func (m Model) rows() int {
	return m.height - 10
}

func (m Model) offset() int {
	rows := m.rows()
	if rows <= 0 || m.cursor < rows {
		return 0
	}
	return m.cursor - rows + 1
}
