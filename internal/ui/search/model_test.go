package search

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/ui/messages"
)

type fakeSearcher struct {
	queries []string
	recent  []string
}

func (f *fakeSearcher) SearchUsers(_ context.Context, _ auth.Credential, query string) ([]api.User, error) {
	f.queries = append(f.queries, query)
	var out []api.User
	for _, u := range []api.User{{ID: 2, Username: "bob"}, {ID: 3, Username: "bobby"}, {ID: 4, Username: "carol"}} {
		if strings.Contains(u.Username, query) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeSearcher) RecentSearches(context.Context, int) []string {
	return f.recent
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func newSearch(s *fakeSearcher) Model {
	m := New(s, auth.NewSession(""), time.Millisecond, time.Second)
	m.SetSize(80, 24)
	return m
}

func TestOnlyLatestTickSearches(t *testing.T) {
	s := &fakeSearcher{}
	m := newSearch(s)

	m = typeText(m, "bo")
	assert.Equal(t, 2, m.seq)
	assert.Equal(t, "bo", m.query)
	assert.Contains(t, m.View(), "Searching...")

	m, cmd := m.Update(tickMsg{seq: 1, query: "b"})
	assert.Nil(t, cmd, "superseded tick must not search")

	m, cmd = m.Update(tickMsg{seq: 2, query: "bo"})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []string{"bo"}, s.queries)

	m, _ = m.Update(msg)
	require.Len(t, m.results, 2)
	assert.Contains(t, m.View(), "@bobby")
}

func TestStaleResultsDiscarded(t *testing.T) {
	m := newSearch(&fakeSearcher{})
	m = typeText(m, "ca")

	m, _ = m.Update(messages.SearchResultsMsg{Seq: 1, Query: "c", Users: []api.User{{ID: 9, Username: "stale"}}})
	assert.Empty(t, m.results)

	m, _ = m.Update(messages.SearchResultsMsg{Seq: 2, Query: "ca", Users: []api.User{{ID: 4, Username: "carol"}}})
	require.Len(t, m.results, 1)
}

func TestClearingQueryClearsResults(t *testing.T) {
	m := newSearch(&fakeSearcher{})
	m = typeText(m, "b")
	m, _ = m.Update(messages.SearchResultsMsg{Seq: 1, Query: "b", Users: []api.User{{ID: 2, Username: "bob"}}})
	require.Len(t, m.results, 1)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, m.query)
	assert.Nil(t, m.results)
	assert.False(t, m.searching)
	assert.Contains(t, m.View(), "Type to search.")
}

func TestEnterOpensProfile(t *testing.T) {
	m := newSearch(&fakeSearcher{})
	m = typeText(m, "b")
	m, _ = m.Update(messages.SearchResultsMsg{Seq: 1, Users: []api.User{{ID: 2, Username: "bob"}, {ID: 3, Username: "bobby"}}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.OpenUserMsg{UserID: 3}, cmd())
}

func TestRecentSearchesFillInput(t *testing.T) {
	s := &fakeSearcher{recent: []string{"carol", "bob"}}
	m := newSearch(s)

	msgs := m.Init()
	require.NotNil(t, msgs)
	m, _ = m.Update(recentMsg{queries: s.recent})
	assert.Contains(t, m.View(), "Recent")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "bob", m.input.Value())
	assert.Equal(t, "bob", m.query)
	assert.True(t, m.searching)
}
