package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/app"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/config"
	"github.com/fragmede/instalight/internal/feed"
	"github.com/fragmede/instalight/internal/monitor"
	"github.com/fragmede/instalight/internal/render"
	"github.com/fragmede/instalight/internal/ui/feedview"
	"github.com/fragmede/instalight/internal/ui/login"
	"github.com/fragmede/instalight/internal/ui/messages"
	"github.com/fragmede/instalight/internal/ui/postview"
	"github.com/fragmede/instalight/internal/ui/search"
	"github.com/fragmede/instalight/internal/ui/statusbar"
	"github.com/fragmede/instalight/internal/ui/upload"
	"github.com/fragmede/instalight/internal/ui/userprofile"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewFeed ViewType = iota
	ViewPost
	ViewLogin
	ViewUpload
	ViewProfile
	ViewSearch
)

func (v ViewType) tab() string {
	switch v {
	case ViewFeed:
		return "Feed"
	case ViewSearch:
		return "Search"
	case ViewUpload:
		return "Upload"
	case ViewProfile:
		return "Profile"
	}
	return ""
}

// route is a view plus the argument needed to build it.
type route struct {
	view ViewType
	id   int64
}

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType
	intended      *route
	showHelp      bool

	// Child models
	feedView    feedview.Model
	postView    postview.Model
	loginForm   login.Model
	uploadForm  upload.Model
	userProfile userprofile.Model
	searchView  search.Model
	statusBar   statusbar.Model

	// Shared state
	cfg     config.Config
	svc     *app.Service
	ctrl    *feed.Controller
	session *auth.Session
	monitor *monitor.Monitor
	seen    int64

	// Dimensions
	width  int
	height int

	// For delivering background notifications
	program *tea.Program
	unsub   func()
}

// NewApp creates the root application model.
func NewApp(cfg config.Config, svc *app.Service, session *auth.Session, mon *monitor.Monitor) *App {
	a := &App{
		activeView: ViewFeed,
		statusBar:  statusbar.New(),
		cfg:        cfg,
		svc:        svc,
		session:    session,
		monitor:    mon,
	}
	a.ctrl = feed.NewController(svc,
		feed.WithPageSize(cfg.FeedPageSize),
		feed.WithNotify(func() { a.send(messages.FeedChangedMsg{}) }),
	)
	a.feedView = feedview.New(a.ctrl, svc, session, cfg.SentinelDistance, cfg.RequestTimeout)
	a.unsub = session.Subscribe(func(cred auth.Credential) {
		a.send(messages.SessionChangedMsg{Credential: cred})
	})
	return a
}

// SetProgram stores the tea.Program reference for background notifications.
func (a *App) SetProgram(p *tea.Program) {
	a.program = p
}

// send delivers msg from outside the update loop. It never blocks the
// caller, which may itself be running inside Update.
func (a *App) send(msg tea.Msg) {
	if p := a.program; p != nil {
		go p.Send(msg)
	}
}

// Close releases background work.
func (a *App) Close() {
	if a.unsub != nil {
		a.unsub()
	}
	a.monitor.Stop()
	a.ctrl.Close()
}

// Init starts the application: the stored session, if any, opens the
// feed; otherwise the login form is shown.
func (a *App) Init() tea.Cmd {
	cred := a.session.Credential()
	if !cred.Valid() {
		a.intended = &route{view: ViewFeed}
		a.openLogin()
		return nil
	}
	return a.startSession(cred)
}

func (a *App) startSession(cred auth.Credential) tea.Cmd {
	a.statusBar.SetUser(cred.Username)
	if a.program != nil {
		a.monitor.Start(a.program)
	}
	return a.feedView.Initialize(cred)
}

func (a *App) endSession() tea.Cmd {
	a.monitor.Stop()
	a.statusBar.SetUser("")
	a.statusBar.SetNewPosts(0)
	a.seen = 0
	cmd := a.feedView.Initialize(auth.Credential{})
	a.previousViews = nil
	if a.intended == nil {
		a.intended = &route{view: ViewFeed}
	}
	a.openLogin()
	return cmd
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - 1 // Reserve 1 line for status bar.
		a.feedView.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		switch a.activeView {
		case ViewPost:
			a.postView.SetSize(msg.Width, contentHeight)
		case ViewLogin:
			a.loginForm.SetSize(msg.Width, contentHeight)
		case ViewUpload:
			a.uploadForm.SetSize(msg.Width, contentHeight)
		case ViewProfile:
			a.userProfile.SetSize(msg.Width, contentHeight)
		case ViewSearch:
			a.searchView.SetSize(msg.Width, contentHeight)
		}
		return a, nil

	case tea.KeyMsg:
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		if a.textInputActive() {
			switch msg.String() {
			case "ctrl+c":
				return a, a.quit()
			case "esc":
				if a.activeView != ViewPost {
					return a, a.goBack()
				}
			}
		} else {
			switch {
			case msg.String() == "ctrl+c":
				return a, a.quit()
			case key.Matches(msg, Keys.Quit):
				if a.activeView == ViewFeed || a.activeView == ViewLogin {
					return a, a.quit()
				}
				return a, a.goBack()
			case key.Matches(msg, Keys.Back):
				return a, a.goBack()
			case key.Matches(msg, Keys.Help):
				a.showHelp = true
				return a, nil
			case key.Matches(msg, Keys.Feed):
				return a, a.navigate(route{view: ViewFeed})
			case key.Matches(msg, Keys.Search):
				return a, a.navigate(route{view: ViewSearch})
			case key.Matches(msg, Keys.Upload):
				return a, a.navigate(route{view: ViewUpload})
			case key.Matches(msg, Keys.Profile):
				return a, a.navigate(route{view: ViewProfile, id: a.session.Credential().UserID})
			case key.Matches(msg, Keys.Login):
				return a, a.navigate(route{view: ViewLogin})
			case key.Matches(msg, Keys.Logout):
				if a.session.LoggedIn() {
					return a, a.logout()
				}
				return a, nil
			}
		}

	// View transitions.
	case messages.OpenPostMsg:
		return a, a.navigate(route{view: ViewPost, id: msg.PostID})
	case messages.OpenUserMsg:
		return a, a.navigate(route{view: ViewProfile, id: msg.UserID})
	case messages.OpenUploadMsg:
		return a, a.navigate(route{view: ViewUpload})
	case messages.OpenSearchMsg:
		return a, a.navigate(route{view: ViewSearch})
	case messages.OpenLoginMsg:
		return a, a.navigate(route{view: ViewLogin})
	case messages.OpenFeedMsg:
		return a, a.navigate(route{view: ViewFeed})
	case messages.GoBackMsg:
		return a, a.goBack()
	case messages.LogoutMsg:
		return a, a.logout()
	case messages.ShowHelpMsg:
		a.showHelp = true
		return a, nil

	case messages.SessionChangedMsg:
		if !msg.Credential.Valid() {
			return a, a.endSession()
		}
		cmd := a.startSession(msg.Credential)
		if a.activeView == ViewLogin {
			target := route{view: ViewFeed}
			if a.intended != nil {
				target = *a.intended
			}
			a.intended = nil
			a.activeView = ViewFeed
			a.previousViews = nil
			return a, tea.Batch(cmd, a.navigate(target))
		}
		return a, cmd

	case messages.FeedChangedMsg:
		if head := a.ctrl.Snapshot(); head.Page == 1 && len(head.Items) > 0 && head.Items[0].ID != a.seen {
			a.seen = head.Items[0].ID
			a.statusBar.SetNewPosts(0)
			cmds = append(cmds, a.markSeen(a.seen))
		}
		// The feed view stays in sync even when hidden.
		var cmd tea.Cmd
		a.feedView, cmd = a.feedView.Update(msg)
		return a, tea.Batch(append(cmds, cmd)...)

	case messages.AuthorsLoadedMsg:
		var cmd tea.Cmd
		a.feedView, cmd = a.feedView.Update(msg)
		return a, cmd

	case messages.FeedOpResultMsg:
		if msg.Err != nil {
			if cmd := a.checkAuth(msg.Err); cmd != nil {
				return a, cmd
			}
			if msg.Op == "like" || msg.Op == "delete" {
				a.statusBar.SetStatus(fmt.Sprintf("Could not %s: %s", msg.Op, api.UserMessage(msg.Err)), true)
			}
			log.Printf("[WARN] feed %s: %v", msg.Op, msg.Err)
		}
		return a, nil

	case messages.UploadResultMsg:
		if msg.Err == nil {
			a.statusBar.SetStatus("Posted ("+render.Size(msg.Size)+")", false)
			a.previousViews = nil
			a.activeView = ViewFeed
			a.statusBar.SetActiveTab(ViewFeed.tab())
			return a, a.feedView.Refresh()
		}
		if cmd := a.checkAuth(msg.Err); cmd != nil {
			return a, cmd
		}

	case messages.ProfilePostDeletedMsg:
		if msg.Err == nil {
			a.statusBar.SetStatus("Post deleted", false)
			cmds = append(cmds, a.feedView.Refresh())
		} else if cmd := a.checkAuth(msg.Err); cmd != nil {
			return a, cmd
		}

	case messages.ProfileLoadedMsg:
		if cmd := a.checkAuth(msg.Err); cmd != nil {
			return a, cmd
		}
	case messages.PostLoadedMsg:
		if cmd := a.checkAuth(msg.Err); cmd != nil {
			return a, cmd
		}
	case messages.CommentResultMsg:
		if cmd := a.checkAuth(msg.Err); cmd != nil {
			return a, cmd
		}
	case messages.SearchResultsMsg:
		if cmd := a.checkAuth(msg.Err); cmd != nil {
			return a, cmd
		}

	case messages.NewPostsMsg:
		a.statusBar.SetNewPosts(msg.Count)
		return a, nil

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		if u, ok := strings.CutPrefix(msg.Text, "Opening: "); ok && !msg.IsError {
			go openBrowser(u)
		}
		return a, nil
	}

	// Route to active view.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewFeed:
		a.feedView, cmd = a.feedView.Update(msg)
	case ViewPost:
		a.postView, cmd = a.postView.Update(msg)
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
	case ViewUpload:
		a.uploadForm, cmd = a.uploadForm.Update(msg)
	case ViewProfile:
		a.userProfile, cmd = a.userProfile.Update(msg)
	case ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	}
	cmds = append(cmds, cmd)

	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View renders the application.
func (a *App) View() string {
	if a.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, a.helpView()),
			a.statusBar.View())
	}

	var content string
	switch a.activeView {
	case ViewFeed:
		content = a.feedView.View()
	case ViewPost:
		content = a.postView.View()
	case ViewLogin:
		content = a.loginForm.View()
	case ViewUpload:
		content = a.uploadForm.View()
	case ViewProfile:
		content = a.userProfile.View()
	case ViewSearch:
		content = a.searchView.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

// ActiveView returns the view currently shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

func (a *App) textInputActive() bool {
	switch a.activeView {
	case ViewLogin, ViewUpload, ViewSearch:
		return true
	case ViewPost:
		return a.postView.Composing()
	}
	return false
}

// navigate opens r. Every view but login needs a valid credential; without
// one the login form is shown and r is opened after a successful login.
func (a *App) navigate(r route) tea.Cmd {
	loggedIn := a.session.LoggedIn()
	if r.view == ViewLogin {
		if loggedIn {
			r = route{view: ViewFeed}
		} else {
			a.openLogin()
			return nil
		}
	}
	if !loggedIn {
		a.intended = &r
		a.openLogin()
		return nil
	}

	h := a.height - 1
	var cmd tea.Cmd
	switch r.view {
	case ViewFeed:
		a.previousViews = nil
		a.activeView = ViewFeed
	case ViewPost:
		a.pushView(ViewPost)
		a.postView = postview.New(r.id, a.svc, a.session, a.svc.Client().BaseURL(), a.cfg.RequestTimeout)
		a.postView.SetSize(a.width, h)
		cmd = a.postView.Init()
	case ViewUpload:
		if a.activeView == ViewUpload {
			return nil
		}
		a.pushView(ViewUpload)
		a.uploadForm = upload.New(a.svc, a.session, a.cfg.RequestTimeout)
		a.uploadForm.SetSize(a.width, h)
	case ViewProfile:
		if a.activeView == ViewProfile && a.userProfile.UserID() == r.id {
			return nil
		}
		a.pushView(ViewProfile)
		a.userProfile = userprofile.New(r.id, a.svc, a.session, a.cfg.RequestTimeout)
		a.userProfile.SetSize(a.width, h)
		cmd = a.userProfile.Init()
	case ViewSearch:
		if a.activeView == ViewSearch {
			return nil
		}
		a.pushView(ViewSearch)
		a.searchView = search.New(a.svc, a.session, a.cfg.SearchDebounce, a.cfg.RequestTimeout)
		a.searchView.SetSize(a.width, h)
		cmd = a.searchView.Init()
	}
	a.statusBar.SetActiveTab(a.activeView.tab())
	return cmd
}

func (a *App) openLogin() {
	if a.activeView != ViewLogin {
		a.pushView(ViewLogin)
	}
	a.loginForm = login.New(a.session, a.svc.Client(), a.cfg.RequestTimeout)
	a.loginForm.SetSize(a.width, a.height-1)
	a.statusBar.SetActiveTab("")
}

func (a *App) logout() tea.Cmd {
	a.intended = &route{view: ViewFeed}
	if err := a.session.Clear(); err != nil {
		log.Printf("[ERROR] logout: %v", err)
		a.statusBar.SetStatus("Logout failed: "+err.Error(), true)
	}
	return nil
}

// checkAuth ends the session when the server rejects the credential.
func (a *App) checkAuth(err error) tea.Cmd {
	if err == nil || !errors.Is(err, api.ErrAuth) || !a.session.LoggedIn() {
		return nil
	}
	log.Printf("[INFO] credential rejected, logging out: %v", err)
	if a.intended == nil {
		a.intended = &route{view: ViewFeed}
	}
	a.statusBar.SetStatus(api.UserMessage(err), true)
	if clearErr := a.session.Clear(); clearErr != nil {
		log.Printf("[ERROR] clear session: %v", clearErr)
	}
	return nil
}

func (a *App) markSeen(head int64) tea.Cmd {
	mon := a.monitor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mon.MarkSeen(ctx, head)
		return nil
	}
}

func (a *App) quit() tea.Cmd {
	a.Close()
	return tea.Quit
}

func (a *App) pushView(v ViewType) {
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
	a.statusBar.SetActiveTab(v.tab())
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
	} else if a.activeView != ViewLogin {
		a.activeView = ViewFeed
	}
	// Never fall back into a view that needs the session after logout.
	if a.activeView != ViewLogin && !a.session.LoggedIn() {
		a.openLogin()
	}
	a.statusBar.SetActiveTab(a.activeView.tab())
	return nil
}

func (a *App) helpView() string {
	var sb strings.Builder
	sb.WriteString(helpTitleStyle.Render("Keys"))
	sb.WriteString("\n")
	for _, b := range append(Keys.global(), viewKeys...) {
		h := b.Help()
		sb.WriteString(helpKeyStyle.Render(h.Key) + helpDescStyle.Render(h.Desc) + "\n")
	}
	return helpBoxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		return
	}
	if err := cmd.Run(); err != nil {
		log.Printf("[WARN] open %s: %v", url, err)
	}
}
