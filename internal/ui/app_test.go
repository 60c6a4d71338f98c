package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/app"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/config"
	"github.com/fragmede/instalight/internal/monitor"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var alice = auth.Credential{Token: "tok", UserID: 1, Username: "alice"}

// newTestApp builds an App whose commands are never run, so the client
// can point nowhere.
func newTestApp(t *testing.T) (*App, *auth.Session) {
	t.Helper()
	cfg := config.Default()
	svc := app.NewService(api.NewClient("http://127.0.0.1:0", nil), nil, app.Options{})
	session := auth.NewSession("")
	a := NewApp(cfg, svc, session, monitor.New(svc, nil, session, 0, cfg.FeedPageSize))
	t.Cleanup(a.Close)
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return a, session
}

func loginAs(t *testing.T, a *App, session *auth.Session) {
	t.Helper()
	require.NoError(t, session.Set(alice))
	a.Update(messages.SessionChangedMsg{Credential: alice})
}

func TestInitWithoutSessionShowsLogin(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Nil(t, a.Init())
	assert.Equal(t, ViewLogin, a.ActiveView())
}

func TestInitWithSessionLoadsFeed(t *testing.T) {
	a, session := newTestApp(t)
	require.NoError(t, session.Set(alice))
	assert.NotNil(t, a.Init())
	assert.Equal(t, ViewFeed, a.ActiveView())
	assert.Contains(t, a.View(), "@alice")
}

func TestGuardRemembersIntendedView(t *testing.T) {
	a, session := newTestApp(t)
	a.Init()

	a.Update(messages.OpenUploadMsg{})
	assert.Equal(t, ViewLogin, a.ActiveView())

	loginAs(t, a, session)
	assert.Equal(t, ViewUpload, a.ActiveView())

	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewFeed, a.ActiveView())
}

func TestLoginWhileLoggedInGoesToFeed(t *testing.T) {
	a, session := newTestApp(t)
	loginAs(t, a, session)
	a.Update(messages.OpenSearchMsg{})
	require.Equal(t, ViewSearch, a.ActiveView())

	a.Update(messages.OpenLoginMsg{})
	assert.Equal(t, ViewFeed, a.ActiveView())
}

func TestRejectedCredentialLogsOut(t *testing.T) {
	a, session := newTestApp(t)
	loginAs(t, a, session)
	a.Update(messages.OpenUserMsg{UserID: 2})
	require.Equal(t, ViewProfile, a.ActiveView())

	a.Update(messages.FeedOpResultMsg{Op: "load", Err: &api.Error{Op: "feed", Status: 401, Message: "Invalid or expired token"}})
	assert.False(t, session.LoggedIn())

	a.Update(messages.SessionChangedMsg{})
	assert.Equal(t, ViewLogin, a.ActiveView())
	assert.Contains(t, a.View(), "Invalid or expired token")
}

func TestLogoutKey(t *testing.T) {
	a, session := newTestApp(t)
	loginAs(t, a, session)

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("X")})
	assert.False(t, session.LoggedIn())
	a.Update(messages.SessionChangedMsg{})
	assert.Equal(t, ViewLogin, a.ActiveView())
	assert.Contains(t, a.View(), "L:login")
}

func TestTabKeysNavigate(t *testing.T) {
	a, session := newTestApp(t)
	loginAs(t, a, session)

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	assert.Equal(t, ViewProfile, a.ActiveView())
	assert.Equal(t, alice.UserID, a.userProfile.UserID())

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, ViewFeed, a.ActiveView())
}

func TestHelpOverlay(t *testing.T) {
	a, session := newTestApp(t)
	loginAs(t, a, session)

	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Contains(t, a.View(), "search users")
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.NotContains(t, a.View(), "search users")
}

func TestNewPostsBadge(t *testing.T) {
	a, session := newTestApp(t)
	loginAs(t, a, session)
	a.Update(messages.NewPostsMsg{Count: 3})
	assert.Contains(t, a.View(), "3 new")
}
