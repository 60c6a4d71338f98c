package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

type fakeAuthenticator struct {
	token       string
	loginErr    error
	registerErr error
	registered  []string
}

func (f *fakeAuthenticator) Login(_ context.Context, _, _ string) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAuthenticator) Register(_ context.Context, username, _, _ string) error {
	f.registered = append(f.registered, username)
	return f.registerErr
}

func TestFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := makeToken(t, jwt.MapClaims{"sub": 42, "username": "alice", "exp": exp.Unix()})

	cred, err := FromToken(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cred.UserID)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, raw, cred.Token)
	assert.True(t, cred.ExpiresAt.Equal(exp))
	assert.True(t, cred.Valid())
}

func TestFromTokenStringSubject(t *testing.T) {
	cred, err := FromToken(makeToken(t, jwt.MapClaims{"sub": "7"}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), cred.UserID)
	assert.True(t, cred.ExpiresAt.IsZero())
}

func TestFromTokenRejectsMissingSubject(t *testing.T) {
	_, err := FromToken(makeToken(t, jwt.MapClaims{"username": "alice"}))
	assert.Error(t, err)

	_, err = FromToken("not-a-jwt")
	assert.Error(t, err)
}

func TestCredentialValid(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		cred Credential
		want bool
	}{
		{"zero", Credential{}, false},
		{"no user", Credential{Token: "t"}, false},
		{"no expiry", Credential{Token: "t", UserID: 1}, true},
		{"expired", Credential{Token: "t", UserID: 1, ExpiresAt: now.Add(-time.Minute)}, false},
		{"live", Credential{Token: "t", UserID: 1, ExpiresAt: now.Add(time.Minute)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cred.validAt(now))
		})
	}
}

func TestSessionSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewSession(path)
	cred := Credential{Token: "tok", UserID: 3, Username: "carol"}
	require.NoError(t, s.Set(cred))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := NewSession(path)
	require.True(t, restored.Load())
	assert.Equal(t, cred, restored.Credential())
	assert.True(t, restored.LoggedIn())
}

func TestSessionLoadDropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"credential":{"token":"tok","user_id":3,"expires_at":"2000-01-01T00:00:00Z"}}`), 0o600))

	s := NewSession(path)
	assert.False(t, s.Load())
	assert.False(t, s.LoggedIn())
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSessionClearRemovesFileAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewSession(path)

	var seen []Credential
	cancel := s.Subscribe(func(c Credential) { seen = append(seen, c) })

	require.NoError(t, s.Set(Credential{Token: "tok", UserID: 1}))
	require.NoError(t, s.Clear())
	cancel()
	require.NoError(t, s.Set(Credential{Token: "again", UserID: 1}))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Valid())
	assert.False(t, seen[1].Valid())
}

func TestSessionClearWithoutFile(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, s.Clear())
}

func TestSessionLogin(t *testing.T) {
	fa := &fakeAuthenticator{token: makeToken(t, jwt.MapClaims{"sub": 9})}
	s := NewSession("")

	require.NoError(t, s.Login(context.Background(), fa, "dave", "pw"))
	cred := s.Credential()
	assert.Equal(t, int64(9), cred.UserID)
	assert.Equal(t, "dave", cred.Username)
}

func TestSessionLoginFailureKeepsLoggedOut(t *testing.T) {
	fa := &fakeAuthenticator{loginErr: errors.New("Invalid credentials")}
	s := NewSession("")

	err := s.Login(context.Background(), fa, "dave", "bad")
	assert.EqualError(t, err, "Invalid credentials")
	assert.False(t, s.LoggedIn())
}

func TestSessionRegisterLogsIn(t *testing.T) {
	fa := &fakeAuthenticator{token: makeToken(t, jwt.MapClaims{"sub": 12, "username": "erin"})}
	s := NewSession("")

	require.NoError(t, s.Register(context.Background(), fa, "erin", "erin@example.com", "pw"))
	assert.Equal(t, []string{"erin"}, fa.registered)
	assert.Equal(t, int64(12), s.Credential().UserID)
}

func TestSessionRegisterFailureSkipsLogin(t *testing.T) {
	fa := &fakeAuthenticator{registerErr: errors.New("Username already exists"), token: "unused"}
	s := NewSession("")

	err := s.Register(context.Background(), fa, "erin", "erin@example.com", "pw")
	assert.EqualError(t, err, "Username already exists")
	assert.False(t, s.LoggedIn())
}
