package feedview

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/feed"
	"github.com/fragmede/instalight/internal/ui/messages"
)

var viewer = auth.Credential{Token: "tok", UserID: 1, Username: "alice"}

type pagedAPI struct {
	mu      sync.Mutex
	pages   map[int][]feed.Item
	fail    map[int]error // consumed by the next fetch of that page
	fetched []int
	deleted []int64
}

func (p *pagedAPI) FetchFeedPage(_ context.Context, _ auth.Credential, page, _ int) ([]feed.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched = append(p.fetched, page)
	if err := p.fail[page]; err != nil {
		delete(p.fail, page)
		return nil, err
	}
	return p.pages[page], nil
}

func (p *pagedAPI) ToggleLike(context.Context, auth.Credential, int64) (bool, error) {
	return true, nil
}

func (p *pagedAPI) DeletePost(_ context.Context, _ auth.Credential, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return nil
}

type staticDir map[int64]string

func (d staticDir) Usernames(_ context.Context, _ auth.Credential, ids []int64) map[int64]string {
	out := make(map[int64]string)
	for _, id := range ids {
		if name, ok := d[id]; ok {
			out[id] = name
		}
	}
	return out
}

func posts(from, n int, author int64) []feed.Item {
	out := make([]feed.Item, n)
	for i := range out {
		out[i] = feed.Item{ID: int64(from + i), AuthorID: author, Caption: "post", CreatedAt: time.Now()}
	}
	return out
}

// collect runs cmd and any batched commands, returning every message.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(t *testing.T, src *pagedAPI) Model {
	t.Helper()
	ctrl := feed.NewController(src, feed.WithPageSize(10))
	t.Cleanup(ctrl.Close)
	session := auth.NewSession("")
	require.NoError(t, session.Set(viewer))

	m := New(ctrl, staticDir{1: "alice", 2: "bob"}, session, 3, time.Second)
	m.SetSize(80, 200)
	require.NoError(t, ctrl.Initialize(context.Background(), viewer))
	return m
}

func TestNearEnd(t *testing.T) {
	cases := []struct {
		index, n, distance int
		want               bool
	}{
		{0, 0, 3, false},
		{0, 10, 3, false},
		{6, 10, 3, false},
		{7, 10, 3, true},
		{9, 10, 3, true},
		{0, 2, 3, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NearEnd(tc.index, tc.n, tc.distance), "%+v", tc)
	}
}

func TestSyncLoadsItemsAndAuthors(t *testing.T) {
	src := &pagedAPI{pages: map[int][]feed.Item{1: posts(1, 10, 2)}}
	m := newModel(t, src)

	m, cmd := m.Update(messages.FeedChangedMsg{})
	assert.Len(t, m.list.Items(), 10)

	var names map[int64]string
	for _, msg := range collect(cmd) {
		if loaded, ok := msg.(messages.AuthorsLoadedMsg); ok {
			names = loaded.Names
		}
	}
	require.Equal(t, map[int64]string{2: "bob"}, names)

	m, _ = m.Update(messages.AuthorsLoadedMsg{Names: names})
	item := m.list.Items()[0].(PostItem)
	assert.Equal(t, "bob", item.Author)
	assert.Contains(t, item.Title(), "@bob")
}

func TestCursorNearEndLoadsNextPage(t *testing.T) {
	src := &pagedAPI{pages: map[int][]feed.Item{
		1: posts(1, 10, 2),
		2: posts(11, 4, 2),
	}}
	m := newModel(t, src)
	m, _ = m.Update(messages.FeedChangedMsg{})

	var ops []string
	for i := 0; i < 7; i++ {
		var cmd tea.Cmd
		m, cmd = m.Update(keyMsg("j"))
		for _, msg := range collect(cmd) {
			if res, ok := msg.(messages.FeedOpResultMsg); ok {
				require.NoError(t, res.Err)
				ops = append(ops, res.Op)
			}
		}
	}
	assert.Equal(t, []string{"load"}, ops, "only the move onto the sentinel range fetches")
	assert.Equal(t, []int{1, 2}, src.fetched)

	m, _ = m.Update(messages.FeedChangedMsg{})
	assert.Len(t, m.list.Items(), 14)
	assert.Contains(t, m.View(), "all caught up")
}

func TestRetryAfterFailedLoadMoreKeepsPages(t *testing.T) {
	src := &pagedAPI{
		pages: map[int][]feed.Item{
			1: posts(1, 10, 2),
			2: posts(11, 4, 2),
		},
		fail: map[int]error{2: api.ErrNetwork},
	}
	m := newModel(t, src)
	m, _ = m.Update(messages.FeedChangedMsg{})

	var failed bool
	for i := 0; i < 7; i++ {
		var cmd tea.Cmd
		m, cmd = m.Update(keyMsg("j"))
		for _, msg := range collect(cmd) {
			if res, ok := msg.(messages.FeedOpResultMsg); ok && res.Err != nil {
				failed = true
			}
		}
	}
	require.True(t, failed)
	m, _ = m.Update(messages.FeedChangedMsg{})
	assert.Contains(t, m.View(), "press r to retry")

	// The sentinel does not retry on its own.
	m, cmd := m.Update(keyMsg("j"))
	for _, msg := range collect(cmd) {
		_, isOp := msg.(messages.FeedOpResultMsg)
		assert.False(t, isOp)
	}
	assert.Equal(t, []int{1, 2}, src.fetched)

	m, cmd = m.Update(keyMsg("r"))
	for _, msg := range collect(cmd) {
		if res, ok := msg.(messages.FeedOpResultMsg); ok {
			assert.Equal(t, "load", res.Op)
			require.NoError(t, res.Err)
		}
	}
	assert.Equal(t, []int{1, 2, 2}, src.fetched)

	m, _ = m.Update(messages.FeedChangedMsg{})
	require.Len(t, m.list.Items(), 14)
	assert.Equal(t, int64(1), m.list.Items()[0].(PostItem).ID)
	assert.Equal(t, 8, m.list.Index(), "cursor position survives the retry")
}

func TestRetryAfterFailedFirstPageReloads(t *testing.T) {
	src := &pagedAPI{
		pages: map[int][]feed.Item{1: posts(1, 3, 2)},
		fail:  map[int]error{1: api.ErrNetwork},
	}
	ctrl := feed.NewController(src, feed.WithPageSize(10))
	t.Cleanup(ctrl.Close)
	session := auth.NewSession("")
	require.NoError(t, session.Set(viewer))
	m := New(ctrl, staticDir{}, session, 3, time.Second)
	m.SetSize(80, 200)

	require.Error(t, ctrl.Initialize(context.Background(), viewer))
	m, _ = m.Update(messages.FeedChangedMsg{})

	m, cmd := m.Update(keyMsg("r"))
	for _, msg := range collect(cmd) {
		if res, ok := msg.(messages.FeedOpResultMsg); ok {
			assert.Equal(t, "refresh", res.Op)
		}
	}
	m, _ = m.Update(messages.FeedChangedMsg{})
	assert.Len(t, m.list.Items(), 3)
	assert.Equal(t, []int{1, 1}, src.fetched)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	src := &pagedAPI{pages: map[int][]feed.Item{1: posts(1, 2, viewer.UserID)}}
	m := newModel(t, src)
	m, _ = m.Update(messages.FeedChangedMsg{})

	m, cmd := m.Update(keyMsg("d"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Delete this post?")

	m, cmd = m.Update(keyMsg("n"))
	assert.Nil(t, cmd)
	assert.Empty(t, src.deleted)
	assert.False(t, strings.Contains(m.View(), "Delete this post?"))

	m, _ = m.Update(keyMsg("d"))
	_, cmd = m.Update(keyMsg("y"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.FeedOpResultMsg{Op: "delete"}, msgs[0])
	assert.Equal(t, []int64{1}, src.deleted)
}

func TestDeleteOthersPostRefused(t *testing.T) {
	src := &pagedAPI{pages: map[int][]feed.Item{1: posts(1, 2, 2)}}
	m := newModel(t, src)
	m, _ = m.Update(messages.FeedChangedMsg{})

	_, cmd := m.Update(keyMsg("d"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	status, ok := msgs[0].(messages.StatusMsg)
	require.True(t, ok)
	assert.True(t, status.IsError)
	assert.Empty(t, src.deleted)
}

func TestEmptyFeedFooter(t *testing.T) {
	m := newModel(t, &pagedAPI{})
	m, _ = m.Update(messages.FeedChangedMsg{})
	assert.Contains(t, m.View(), "Your feed is empty")
	assert.Zero(t, m.Head())
}
