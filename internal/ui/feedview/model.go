package feedview

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/feed"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var (
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(0, 2)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4D")).Padding(0, 2)
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true).Padding(0, 2)
)

// Directory resolves author IDs to usernames.
type Directory interface {
	Usernames(ctx context.Context, cred auth.Credential, ids []int64) map[int64]string
}

// Model is the home feed view over a feed.Controller.
type Model struct {
	list     list.Model
	ctrl     *feed.Controller
	dir      Directory
	session  *auth.Session
	distance int
	timeout  time.Duration

	state         feed.State
	authors       map[int64]string
	confirmDelete int64
	// loadingMore is set while the last fetch issued was for a later page,
	// so a retry after an error resumes there instead of reloading.
	loadingMore bool
	width         int
	height        int
}

// New creates the feed view. distance is how close to the end of the list
// the cursor must come before the next page is requested.
func New(ctrl *feed.Controller, dir Directory, session *auth.Session, distance int, timeout time.Duration) Model {
	l := list.New(nil, Delegate{}, 0, 0)
	l.Title = "Feed"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "pgup"))

	if distance < 1 {
		distance = 1
	}
	return Model{
		list:     l,
		ctrl:     ctrl,
		dir:      dir,
		session:  session,
		distance: distance,
		timeout:  timeout,
		authors:  make(map[int64]string),
	}
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h-1)
}

// Initialize starts a feed session for cred.
func (m *Model) Initialize(cred auth.Credential) tea.Cmd {
	m.loadingMore = false
	ctrl := m.ctrl
	return m.run("load", func(ctx context.Context) error {
		return ctrl.Initialize(ctx, cred)
	})
}

// Refresh re-fetches the first page.
func (m *Model) Refresh() tea.Cmd {
	m.loadingMore = false
	ctrl := m.ctrl
	return m.run("refresh", ctrl.Refresh)
}

// Retry repeats a failed page load. A failed load of a later page is
// retried in place, keeping the pages already shown; anything else
// reloads from page 1.
func (m *Model) Retry() tea.Cmd {
	if m.state.Err != nil && m.loadingMore && len(m.state.Items) > 0 {
		ctrl := m.ctrl
		return m.run("load", ctrl.LoadMore)
	}
	return m.Refresh()
}

// Head returns the ID of the newest loaded post, or 0.
func (m Model) Head() int64 {
	if len(m.state.Items) == 0 {
		return 0
	}
	return m.state.Items[0].ID
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.FeedChangedMsg:
		return m, m.sync()

	case messages.AuthorsLoadedMsg:
		for id, name := range msg.Names {
			m.authors[id] = name
		}
		return m, m.sync()

	case tea.KeyMsg:
		if m.confirmDelete != 0 {
			id := m.confirmDelete
			m.confirmDelete = 0
			if msg.String() == "y" {
				ctrl := m.ctrl
				return m, m.run("delete", func(ctx context.Context) error {
					return ctrl.DeletePost(ctx, id)
				})
			}
			return m, nil
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(PostItem); ok {
				return m, func() tea.Msg {
					return messages.OpenPostMsg{PostID: item.ID}
				}
			}
			return m, nil
		case "p":
			if item, ok := m.list.SelectedItem().(PostItem); ok {
				return m, func() tea.Msg {
					return messages.OpenUserMsg{UserID: item.AuthorID}
				}
			}
			return m, nil
		case "l":
			if item, ok := m.list.SelectedItem().(PostItem); ok {
				ctrl := m.ctrl
				return m, m.run("like", func(ctx context.Context) error {
					return ctrl.ToggleLike(ctx, item.ID)
				})
			}
			return m, nil
		case "d":
			if item, ok := m.list.SelectedItem().(PostItem); ok {
				if item.AuthorID != m.session.Credential().UserID {
					return m, func() tea.Msg {
						return messages.StatusMsg{Text: "You can only delete your own posts", IsError: true}
					}
				}
				m.confirmDelete = item.ID
			}
			return m, nil
		case "r":
			cmd := m.Retry()
			return m, cmd
		case "ctrl+r":
			cmd := m.Refresh()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	sentinel := m.checkSentinel()
	return m, tea.Batch(cmd, sentinel)
}

// View renders the feed list and its footer.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), m.footer())
}

func (m Model) footer() string {
	st := m.state
	switch {
	case m.confirmDelete != 0:
		return confirmStyle.Render("Delete this post? (y/n)")
	case st.Loading && len(st.Items) == 0:
		return footerStyle.Render("Loading feed...")
	case st.Loading:
		return footerStyle.Render("Loading more...")
	case st.Err != nil:
		return errorStyle.Render(api.UserMessage(st.Err))
	case len(st.Items) == 0 && !st.HasMore:
		return footerStyle.Render("Your feed is empty. Follow people or upload a photo (u).")
	case !st.HasMore:
		return footerStyle.Render("You're all caught up.")
	}
	return ""
}

// sync copies the controller snapshot into the list and requests any
// author names not seen yet.
func (m *Model) sync() tea.Cmd {
	m.state = m.ctrl.Snapshot()
	if m.confirmDelete != 0 && !lo.ContainsBy(m.state.Items, func(it feed.Item) bool { return it.ID == m.confirmDelete }) {
		m.confirmDelete = 0
	}

	items := make([]list.Item, len(m.state.Items))
	for i, it := range m.state.Items {
		items[i] = PostItem{Item: it, Author: m.authors[it.AuthorID], Index: i}
	}
	cmds := []tea.Cmd{m.list.SetItems(items)}

	missing := lo.Uniq(lo.FilterMap(m.state.Items, func(it feed.Item, _ int) (int64, bool) {
		_, known := m.authors[it.AuthorID]
		return it.AuthorID, !known
	}))
	if len(missing) > 0 && m.dir != nil {
		for _, id := range missing {
			// Placeholder so the same IDs are not requested on every change.
			m.authors[id] = ""
		}
		dir := m.dir
		cred := m.session.Credential()
		timeout := m.timeout
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := withTimeout(timeout)
			defer cancel()
			return messages.AuthorsLoadedMsg{Names: dir.Usernames(ctx, cred, missing)}
		})
	}
	cmds = append(cmds, m.checkSentinel())
	return tea.Batch(cmds...)
}

// checkSentinel requests the next page once the cursor is near the end.
// It stays quiet after a failed fetch until the user retries.
func (m *Model) checkSentinel() tea.Cmd {
	st := m.state
	if st.Loading || !st.HasMore || st.Err != nil || len(st.Items) == 0 {
		return nil
	}
	if !NearEnd(m.list.Index(), len(st.Items), m.distance) {
		return nil
	}
	m.loadingMore = true
	ctrl := m.ctrl
	return m.run("load", ctrl.SentinelVisible)
}

// NearEnd reports whether index is within distance items of the end of
// a list of n items.
func NearEnd(index, n, distance int) bool {
	return n > 0 && index >= n-distance
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		err := fn(ctx)
		if errors.Is(err, feed.ErrUnknownItem) {
			err = nil
		}
		return messages.FeedOpResultMsg{Op: op, Err: err}
	}
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}
