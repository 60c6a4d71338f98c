package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/render"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E1306C")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Width(9)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4D"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
)

// MaxFileSize is the largest image the form will send.
const MaxFileSize = 10 << 20

// ErrNotImage is returned for files that do not sniff as an image.
var ErrNotImage = errors.New("please choose an image file")

// Uploader publishes an image with a caption.
type Uploader interface {
	Upload(ctx context.Context, cred auth.Credential, filename string, r io.Reader, caption string) (*api.Post, error)
}

type field int

const (
	fieldPath field = iota
	fieldCaption
)

// Model is the new post form.
type Model struct {
	pathInput    textinput.Model
	captionInput textarea.Model
	focused      field
	uploader     Uploader
	session      *auth.Session
	timeout      time.Duration
	err          string
	moderated    bool
	submitting   bool
	width        int
	height       int
}

// New creates a new upload form.
func New(uploader Uploader, session *auth.Session, timeout time.Duration) Model {
	pi := textinput.New()
	pi.Placeholder = "~/Pictures/photo.jpg"
	pi.Focus()
	pi.CharLimit = 1024
	pi.Width = 60

	ca := textarea.New()
	ca.Placeholder = "Write a caption..."
	ca.CharLimit = 2200
	ca.SetWidth(60)
	ca.SetHeight(5)

	return Model{
		pathInput:    pi,
		captionInput: ca,
		uploader:     uploader,
		session:      session,
		timeout:      timeout,
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	fw := w - 14
	if fw > 80 {
		fw = 80
	}
	m.pathInput.Width = fw
	m.captionInput.SetWidth(fw)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			m.focused = (m.focused + 1) % 2
			return m, m.updateFocus()
		case "ctrl+s":
			return m.submit()
		}

	case messages.UploadResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = api.UserMessage(msg.Err)
			m.moderated = isModeration(m.err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focused {
	case fieldPath:
		m.pathInput, cmd = m.pathInput.Update(msg)
	case fieldCaption:
		m.captionInput, cmd = m.captionInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	path := expandHome(strings.TrimSpace(m.pathInput.Value()))
	caption := strings.TrimSpace(m.captionInput.Value())
	if path == "" {
		m.err = "Choose an image to upload"
		return m, nil
	}
	if caption == "" {
		m.err = "Caption is required"
		return m, nil
	}
	m.submitting = true
	m.err = ""
	m.moderated = false

	uploader := m.uploader
	cred := m.session.Credential()
	timeout := m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		post, size, err := send(ctx, uploader, cred, path, caption)
		return messages.UploadResultMsg{Post: post, Size: size, Err: err}
	}
}

func send(ctx context.Context, uploader Uploader, cred auth.Credential, path, caption string) (*api.Post, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return nil, 0, fmt.Errorf("image is %s, the limit is %s", render.Size(info.Size()), render.Size(MaxFileSize))
	}
	if err := checkImage(f); err != nil {
		return nil, 0, err
	}

	post, err := uploader.Upload(ctx, cred, filepath.Base(path), f, caption)
	if err != nil {
		return nil, 0, err
	}
	return post, info.Size(), nil
}

// checkImage sniffs the head of f and rewinds it.
func checkImage(f io.ReadSeeker) error {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return ErrNotImage
	}
	_, err = f.Seek(0, io.SeekStart)
	return err
}

func isModeration(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "moderation") || strings.Contains(msg, "pending") || strings.Contains(msg, "flagged")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func (m *Model) updateFocus() tea.Cmd {
	m.pathInput.Blur()
	m.captionInput.Blur()
	if m.focused == fieldCaption {
		return m.captionInput.Focus()
	}
	return m.pathInput.Focus()
}

// View renders the upload form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("New Post"))
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render("image") + " " + m.pathInput.View())
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render("caption"))
	sb.WriteString("\n")
	sb.WriteString(m.captionInput.View())
	sb.WriteString("\n\n")

	if m.err != "" {
		if m.moderated {
			sb.WriteString(pendingStyle.Render(m.err))
		} else {
			sb.WriteString(errorStyle.Render(m.err))
		}
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Uploading...")
	} else {
		sb.WriteString(hintStyle.Render("Tab to switch fields | Ctrl+S to post | Esc to cancel"))
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
