package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeUploader struct {
	filename string
	caption  string
	body     []byte
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, cred auth.Credential, filename string, r io.Reader, caption string) (*api.Post, error) {
	f.filename = filename
	f.caption = caption
	f.body, _ = io.ReadAll(r)
	if f.err != nil {
		return nil, f.err
	}
	return &api.Post{ID: 1, UserID: cred.UserID, Caption: caption}, nil
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newForm(t *testing.T, u Uploader) Model {
	t.Helper()
	session := auth.NewSession("")
	require.NoError(t, session.Set(auth.Credential{Token: "tok", UserID: 3}))
	m := New(u, session, time.Second)
	m.SetSize(100, 30)
	return m
}

func ctrlS() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyCtrlS} }

func TestUploadSendsImage(t *testing.T) {
	u := &fakeUploader{}
	m := newForm(t, u)
	m.pathInput.SetValue(writeFile(t, "beach.png", pngHeader))
	m.captionInput.SetValue("  sunset  ")

	m, cmd := m.Update(ctrlS())
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Uploading...")

	res, ok := cmd().(messages.UploadResultMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(len(pngHeader)), res.Size)
	assert.Equal(t, int64(3), res.Post.UserID)
	assert.Equal(t, "beach.png", u.filename)
	assert.Equal(t, "sunset", u.caption)
	assert.Equal(t, pngHeader, u.body, "the sniffed head must be rewound")
}

func TestUploadValidation(t *testing.T) {
	m := newForm(t, &fakeUploader{})

	m, cmd := m.Update(ctrlS())
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Choose an image")

	m.pathInput.SetValue("/tmp/x.png")
	m, cmd = m.Update(ctrlS())
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Caption is required")
}

func TestUploadRejectsNonImage(t *testing.T) {
	u := &fakeUploader{}
	m := newForm(t, u)
	m.pathInput.SetValue(writeFile(t, "notes.png", []byte("just some text")))
	m.captionInput.SetValue("hi")

	m, cmd := m.Update(ctrlS())
	msg := cmd()
	res := msg.(messages.UploadResultMsg)
	assert.ErrorIs(t, res.Err, ErrNotImage)
	assert.Empty(t, u.filename)

	m, _ = m.Update(msg)
	assert.Contains(t, m.View(), "please choose an image file")
}

func TestUploadShowsModerationMessage(t *testing.T) {
	u := &fakeUploader{err: &api.Error{Op: "upload", Status: 422, Message: "Image rejected by content moderation"}}
	m := newForm(t, u)
	m.pathInput.SetValue(writeFile(t, "nsfw.png", pngHeader))
	m.captionInput.SetValue("hi")

	m, cmd := m.Update(ctrlS())
	m, _ = m.Update(cmd())
	assert.True(t, m.moderated)
	assert.False(t, m.submitting)
	assert.Contains(t, m.View(), "Image rejected by content moderation")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "a.jpg"), expandHome("~/a.jpg"))
	assert.Equal(t, "/abs/a.jpg", expandHome("/abs/a.jpg"))
}
