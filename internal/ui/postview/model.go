package postview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/app"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/render"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var (
	commentAuthorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true)
	commentMetaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	commentSelStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#333333"))
	barStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	selBarStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C"))
	postHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	postMetaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(0, 1)
	flaggedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Padding(0, 1)
	separatorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4D")).Padding(0, 1)
	confirmStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true).Padding(0, 1)
)

// Source loads a post with its comments and edits the comments.
type Source interface {
	Post(ctx context.Context, cred auth.Credential, postID int64) (*app.PostDetail, error)
	AddComment(ctx context.Context, cred auth.Credential, postID int64, text string) (*api.Comment, error)
	DeleteComment(ctx context.Context, cred auth.Credential, postID, commentID int64) error
}

type commentOffset struct {
	startLine int
	endLine   int
}

// Model is the post detail view with its comment thread.
type Model struct {
	viewport      viewport.Model
	composer      textarea.Model
	postID        int64
	detail        *app.PostDetail
	offsets       []commentOffset
	selectedIdx   int
	composing     bool
	submitting    bool
	confirmDelete bool
	loading       bool
	err           string
	src           Source
	session       *auth.Session
	mediaBase     string
	timeout       time.Duration
	width         int
	height        int
}

// New creates a post view. mediaBase is prefixed to relative media URLs.
func New(postID int64, src Source, session *auth.Session, mediaBase string, timeout time.Duration) Model {
	vp := viewport.New(0, 0)
	vp.SetContent("Loading...")

	ta := textarea.New()
	ta.Placeholder = "Add a comment..."
	ta.CharLimit = 1000
	ta.ShowLineNumbers = false
	ta.SetHeight(3)

	return Model{
		viewport:  vp,
		composer:  ta,
		postID:    postID,
		loading:   true,
		src:       src,
		session:   session,
		mediaBase: strings.TrimRight(mediaBase, "/"),
		timeout:   timeout,
	}
}

// Init loads the post and its comments.
func (m Model) Init() tea.Cmd {
	postID := m.postID
	src := m.src
	cred := m.session.Credential()
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		d, err := src.Post(ctx, cred, postID)
		return messages.PostLoadedMsg{PostID: postID, Detail: d, Err: err}
	}
}

// SetSize updates viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.composer.SetWidth(max(w-4, 20))
	m.resizeViewport()
	m.rebuildContent()
}

// Composing reports whether the comment box has focus.
func (m Model) Composing() bool {
	return m.composing
}

// PostID returns the post being shown.
func (m Model) PostID() int64 {
	return m.postID
}

func (m *Model) resizeViewport() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderFooter())
	m.viewport.Height = max(m.height-used, 1)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.PostLoadedMsg:
		if msg.PostID != m.postID {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			m.viewport.SetContent("")
			return m, nil
		}
		m.err = ""
		m.detail = msg.Detail
		m.selectedIdx = min(m.selectedIdx, max(len(m.comments())-1, 0))
		m.resizeViewport()
		m.rebuildContent()
		return m, nil

	case messages.CommentResultMsg:
		if msg.PostID != m.postID {
			return m, nil
		}
		m.submitting = false
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			m.resizeViewport()
			return m, nil
		}
		m.err = ""
		m.composing = false
		m.composer.Reset()
		m.composer.Blur()
		if m.detail != nil && msg.Comment != nil {
			m.detail.Comments = append(m.detail.Comments, *msg.Comment)
			if m.detail.Authors == nil {
				m.detail.Authors = make(map[int64]string)
			}
			m.detail.Authors[msg.Comment.UserID] = m.session.Credential().Username
			m.selectedIdx = len(m.detail.Comments) - 1
		}
		m.resizeViewport()
		m.rebuildContent()
		m.viewport.GotoBottom()
		return m, nil

	case messages.CommentDeletedMsg:
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			m.resizeViewport()
			return m, nil
		}
		if m.detail != nil {
			m.detail.Comments = lo.Reject(m.detail.Comments, func(c api.Comment, _ int) bool { return c.ID == msg.CommentID })
			m.selectedIdx = min(m.selectedIdx, max(len(m.detail.Comments)-1, 0))
		}
		m.rebuildContent()
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			return m.updateComposer(msg)
		}
		if m.confirmDelete {
			m.confirmDelete = false
			var cmd tea.Cmd
			if msg.String() == "y" {
				cmd = m.deleteSelected()
			}
			m.resizeViewport()
			return m, cmd
		}
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx < len(m.comments())-1 {
				m.selectedIdx++
				m.rebuildContent()
				m.scrollToCursor()
			}
			return m, nil
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.rebuildContent()
				m.scrollToCursor()
			}
			return m, nil
		case "c":
			if m.detail == nil {
				return m, nil
			}
			m.composing = true
			m.resizeViewport()
			return m, m.composer.Focus()
		case "d":
			if c, ok := m.selected(); ok {
				if c.UserID != m.session.Credential().UserID {
					return m, func() tea.Msg {
						return messages.StatusMsg{Text: "You can only delete your own comments", IsError: true}
					}
				}
				m.confirmDelete = true
				m.resizeViewport()
			}
			return m, nil
		case "p":
			if m.detail != nil && m.detail.Post != nil {
				userID := m.detail.Post.UserID
				if c, ok := m.selected(); ok {
					userID = c.UserID
				}
				return m, func() tea.Msg { return messages.OpenUserMsg{UserID: userID} }
			}
			return m, nil
		case "o":
			if u := m.MediaURL(); u != "" {
				return m, func() tea.Msg { return messages.StatusMsg{Text: "Opening: " + u} }
			}
			return m, nil
		case "r", "ctrl+r":
			m.loading = true
			return m, m.Init()
		case "ctrl+d", "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "ctrl+u", "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateComposer(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.composing = false
		m.composer.Blur()
		m.resizeViewport()
		return m, nil
	case "ctrl+s":
		text := strings.TrimSpace(m.composer.Value())
		if text == "" {
			m.err = "Comment cannot be empty"
			return m, nil
		}
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		m.err = ""
		src := m.src
		cred := m.session.Credential()
		postID := m.postID
		timeout := m.timeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			c, err := src.AddComment(ctx, cred, postID, text)
			return messages.CommentResultMsg{PostID: postID, Comment: c, Err: err}
		}
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m Model) deleteSelected() tea.Cmd {
	c, ok := m.selected()
	if !ok {
		return nil
	}
	src := m.src
	cred := m.session.Credential()
	postID := m.postID
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return messages.CommentDeletedMsg{CommentID: c.ID, Err: src.DeleteComment(ctx, cred, postID, c.ID)}
	}
}

func (m Model) comments() []api.Comment {
	if m.detail == nil {
		return nil
	}
	return m.detail.Comments
}

func (m Model) selected() (api.Comment, bool) {
	cs := m.comments()
	if m.selectedIdx < 0 || m.selectedIdx >= len(cs) {
		return api.Comment{}, false
	}
	return cs[m.selectedIdx], true
}

// MediaURL returns the absolute URL of the post's image.
func (m Model) MediaURL() string {
	if m.detail == nil || m.detail.Post == nil || m.detail.Post.MediaURL == "" {
		return ""
	}
	u := m.detail.Post.MediaURL
	if strings.HasPrefix(u, "/") {
		return m.mediaBase + u
	}
	return u
}

func (m Model) author(id int64) string {
	if m.detail != nil {
		if name := m.detail.Authors[id]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("user %d", id)
}

// View renders the post view.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.viewport.View(), m.renderFooter())
}

func (m *Model) rebuildContent() {
	cs := m.comments()
	if len(cs) == 0 {
		m.offsets = nil
		if m.loading {
			m.viewport.SetContent("  Loading comments...")
		} else {
			m.viewport.SetContent("  No comments yet. Press c to add one.")
		}
		return
	}

	var sb strings.Builder
	m.offsets = make([]commentOffset, len(cs))
	bodyWidth := max(m.width-6, 20)

	lineCount := 0
	for i, c := range cs {
		startLine := lineCount
		selected := i == m.selectedIdx
		bar := barStyle.Render("│")
		if selected {
			bar = selBarStyle.Render("│")
		}

		header := bar + " " + commentAuthorStyle.Render("@"+m.author(c.UserID)) +
			" " + commentMetaStyle.Render(render.TimeAgo(c.CreatedAt))
		if selected {
			header = commentSelStyle.Render(header)
		}
		sb.WriteString(header + "\n")
		lineCount++

		for _, line := range strings.Split(render.CaptionText(c.Text, bodyWidth), "\n") {
			bodyLine := bar + " " + line
			if selected {
				bodyLine = commentSelStyle.Render(bodyLine)
			}
			sb.WriteString(bodyLine + "\n")
			lineCount++
		}
		sb.WriteString("\n")
		lineCount++

		m.offsets[i] = commentOffset{startLine: startLine, endLine: lineCount - 1}
	}

	m.viewport.SetContent(sb.String())
}

func (m *Model) scrollToCursor() {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.offsets) {
		return
	}
	off := m.offsets[m.selectedIdx]
	if off.startLine < m.viewport.YOffset || off.endLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(off.startLine)
	}
}

func (m Model) renderHeader() string {
	if m.detail == nil || m.detail.Post == nil {
		if m.err != "" {
			return errorStyle.Render(m.err)
		}
		return postHeaderStyle.Render("Loading...")
	}
	p := m.detail.Post

	var parts []string
	parts = append(parts, postHeaderStyle.Render("@"+m.author(p.UserID)))
	meta := fmt.Sprintf("%s | %s | %d comments", render.Likes(p.LikesCount), render.TimeAgo(p.CreatedAt), len(m.detail.Comments))
	if p.LikedByViewer {
		meta = "♥ " + meta
	}
	parts = append(parts, postMetaStyle.Render(meta))
	if u := m.MediaURL(); u != "" {
		parts = append(parts, postMetaStyle.Render(u))
	}
	if p.Flagged {
		parts = append(parts, flaggedStyle.Render("This post is pending moderation review."))
	}
	if p.Caption != "" {
		parts = append(parts, postHeaderStyle.Render(render.CaptionText(p.Caption, max(m.width-4, 20))))
	}
	parts = append(parts, separatorStyle.Render(strings.Repeat("─", max(m.width, 0))))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.err != "" && m.detail != nil {
		parts = append(parts, errorStyle.Render(m.err))
	}
	switch {
	case m.composing:
		parts = append(parts, m.composer.View())
		hint := "Ctrl+S to post | Esc to cancel"
		if m.submitting {
			hint = "Posting..."
		}
		parts = append(parts, commentMetaStyle.Render(hint))
	case m.confirmDelete:
		parts = append(parts, confirmStyle.Render("Delete this comment? (y/n)"))
	default:
		parts = append(parts, commentMetaStyle.Render("j/k:move  c:comment  d:delete  p:profile  o:open image  r:reload"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
