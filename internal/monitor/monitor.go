// Package monitor polls the viewer's feed in the background and reports
// posts that arrived since the feed was last refreshed.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/cache"
	"github.com/fragmede/instalight/internal/feed"
	"github.com/fragmede/instalight/internal/ui/messages"
)

const pollTimeout = 15 * time.Second

// Sender delivers messages to the running program. *tea.Program
// satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Monitor polls page 1 of the feed for posts newer than the stored head.
type Monitor struct {
	src      feed.API
	cache    *cache.DB
	session  *auth.Session
	interval time.Duration
	pageSize int

	mu      sync.Mutex
	sender  Sender
	stopCh  chan struct{}
	running bool
	lastNew int
}

// New creates a new background monitor.
func New(src feed.API, db *cache.DB, session *auth.Session, interval time.Duration, pageSize int) *Monitor {
	return &Monitor{
		src:      src,
		cache:    db,
		session:  session,
		interval: interval,
		pageSize: pageSize,
	}
}

// Start begins the background polling loop. A non-positive interval
// disables polling.
func (m *Monitor) Start(sender Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.interval <= 0 {
		return
	}
	m.sender = sender
	m.stopCh = make(chan struct{})
	m.running = true
	go m.loop(m.stopCh)
}

// Stop halts the background polling.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
}

// MarkSeen records headID as the newest post the viewer has seen.
func (m *Monitor) MarkSeen(ctx context.Context, headID int64) {
	cred := m.session.Credential()
	if !cred.Valid() || headID == 0 {
		return
	}
	m.mu.Lock()
	m.lastNew = 0
	m.mu.Unlock()
	if err := m.cache.SetFeedHead(ctx, cred.UserID, headID); err != nil {
		log.Printf("[WARN] monitor: store feed head: %v", err)
	}
}

func (m *Monitor) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
			n, err := m.Poll(ctx)
			cancel()
			if err != nil {
				log.Printf("[WARN] monitor: poll: %v", err)
				continue
			}
			m.notify(n)
		}
	}
}

// Poll fetches page 1 and returns how many posts precede the stored head.
// With no stored head the current first post becomes the head.
func (m *Monitor) Poll(ctx context.Context) (int, error) {
	cred := m.session.Credential()
	if !cred.Valid() {
		return 0, nil
	}
	items, err := m.src.FetchFeedPage(ctx, cred, 1, m.pageSize)
	if err != nil || len(items) == 0 {
		return 0, err
	}

	head, _, err := m.cache.GetFeedHead(ctx, cred.UserID)
	if err != nil {
		return 0, err
	}
	if head == 0 {
		return 0, m.cache.SetFeedHead(ctx, cred.UserID, items[0].ID)
	}

	n := 0
	for _, it := range items {
		if it.ID == head {
			break
		}
		n++
	}
	return n, nil
}

func (m *Monitor) notify(n int) {
	m.mu.Lock()
	changed := n != m.lastNew
	m.lastNew = n
	sender := m.sender
	m.mu.Unlock()

	if changed && n > 0 && sender != nil {
		sender.Send(messages.NewPostsMsg{Count: n})
	}
}
