package login

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/ui/messages"
)

type fakeAuthenticator struct {
	registered []string
	loginErr   error
}

func (f *fakeAuthenticator) Login(_ context.Context, username, _ string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      7,
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test"))
}

func (f *fakeAuthenticator) Register(_ context.Context, username, _, _ string) error {
	f.registered = append(f.registered, username)
	return nil
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func newForm(a *fakeAuthenticator) (Model, *auth.Session) {
	session := auth.NewSession("")
	m := New(session, a, time.Second)
	m.SetSize(80, 24)
	return m, session
}

func TestLoginRequiresFields(t *testing.T) {
	m, _ := newForm(&fakeAuthenticator{})

	m, cmd := m.Update(enter())
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Username and password required")
}

func TestLoginSetsSession(t *testing.T) {
	m, session := newForm(&fakeAuthenticator{})
	m.usernameInput.SetValue(" alice ")
	m.passwordInput.SetValue("pw")

	m, cmd := m.Update(enter())
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)

	// A second enter while submitting is ignored.
	_, again := m.Update(enter())
	assert.Nil(t, again)

	msg := cmd()
	assert.Equal(t, messages.LoginResultMsg{Username: "alice"}, msg)
	assert.True(t, session.LoggedIn())
	assert.Equal(t, int64(7), session.Credential().UserID)

	m, _ = m.Update(msg)
	assert.False(t, m.submitting)
}

func TestLoginShowsServerMessage(t *testing.T) {
	m, session := newForm(&fakeAuthenticator{
		loginErr: &api.Error{Op: "login", Status: 401, Message: "Invalid credentials"},
	})
	m.usernameInput.SetValue("alice")
	m.passwordInput.SetValue("nope")

	m, cmd := m.Update(enter())
	msg := cmd()
	res, ok := msg.(messages.LoginResultMsg)
	require.True(t, ok)
	assert.True(t, errors.Is(res.Err, api.ErrAuth))

	m, _ = m.Update(msg)
	assert.Contains(t, m.View(), "Invalid credentials")
	assert.False(t, session.LoggedIn())
}

func TestRegisterMode(t *testing.T) {
	a := &fakeAuthenticator{}
	m, session := newForm(a)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.True(t, m.Registering())
	assert.Contains(t, m.View(), "Email:")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldEmail, m.focused)

	m.usernameInput.SetValue("dave")
	m.passwordInput.SetValue("pw")
	m, cmd := m.Update(enter())
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "valid email")

	m.emailInput.SetValue("dave@example.com")
	_, cmd = m.Update(enter())
	require.NotNil(t, cmd)
	assert.Equal(t, messages.LoginResultMsg{Username: "dave"}, cmd())
	assert.Equal(t, []string{"dave"}, a.registered)
	assert.True(t, session.LoggedIn())
}

func TestLoginModeSkipsEmail(t *testing.T) {
	m, _ := newForm(&fakeAuthenticator{})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldPassword, m.focused)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldUsername, m.focused)
}
