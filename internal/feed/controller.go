package feed

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/samber/lo"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
)

// ErrUnknownItem is returned by ToggleLike for an ID not in the feed.
var ErrUnknownItem = errors.New("feed: item not in feed")

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the number of items requested per page.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithNotify registers fn to be called after every state change. fn is
// called without the controller lock held and must read the new state
// with Snapshot.
func WithNotify(fn func()) Option {
	return func(c *Controller) {
		c.notify = fn
	}
}

// Controller owns the feed list of one viewing session. All methods are
// safe for concurrent use; state transitions are serialized by mu and
// network calls run outside it.
type Controller struct {
	api      API
	pageSize int
	notify   func()

	mu     sync.Mutex
	cred   auth.Credential
	gen    uint64 // bumped by Initialize and Close; stale results are dropped
	closed bool

	items   []Item
	rev     map[int64]uint64 // per-item revision, bumped on every write
	revSeq  uint64
	page    int
	loaded  bool // a page has been fetched successfully this session
	loading bool
	hasMore bool
	err     error

	toggling map[int64]struct{}
}

// NewController creates a controller. Call Initialize before use.
func NewController(a API, opts ...Option) *Controller {
	c := &Controller{
		api:      a,
		pageSize: DefaultPageSize,
		rev:      make(map[int64]uint64),
		toggling: make(map[int64]struct{}),
		page:     1,
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the number of items requested per page.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Items:   append([]Item(nil), c.items...),
		Page:    c.page,
		Loading: c.loading,
		HasMore: c.hasMore,
		Err:     c.err,
	}
}

// Initialize starts a new session for cred: page 1, empty list, more
// pages assumed. Without a valid credential nothing is fetched and no
// error is reported. Results of operations from a previous session are
// discarded.
func (c *Controller) Initialize(ctx context.Context, cred auth.Credential) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	c.cred = cred
	c.items = nil
	c.rev = make(map[int64]uint64)
	c.toggling = make(map[int64]struct{})
	c.page = 1
	c.loaded = false
	c.loading = false
	c.hasMore = true
	c.err = nil
	c.mu.Unlock()
	c.changed()

	if !cred.Valid() {
		return nil
	}
	return c.FetchPage(ctx, 1)
}

// FetchPage fetches page n. It is a no-op while another fetch is in
// flight or when there is no credential. Page 1 replaces the list; later
// pages append items whose IDs are not already present. On failure the
// error is recorded, the list is kept and the page cursor does not move.
func (c *Controller) FetchPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	gen, cred, ok := c.beginFetchLocked()
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.fetch(ctx, gen, cred, n)
}

// LoadMore fetches the page after the current one. It is a no-op while
// loading or once the last page has been seen. If no page has loaded yet
// this session, page 1 is fetched instead.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	next := c.page + 1
	if !c.loaded {
		next = 1
	}
	gen, cred, ok := c.beginFetchLocked()
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.fetch(ctx, gen, cred, next)
}

// SentinelVisible reports that the end-of-list marker is on screen. It
// may fire repeatedly; at most one fetch is issued at a time.
func (c *Controller) SentinelVisible(ctx context.Context) error {
	return c.LoadMore(ctx)
}

// Refresh re-fetches page 1 regardless of HasMore. It is a no-op while a
// fetch is in flight.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.page = 1
	c.hasMore = true
	c.err = nil
	gen, cred, ok := c.beginFetchLocked()
	c.mu.Unlock()
	if !ok {
		c.changed()
		return nil
	}
	return c.fetch(ctx, gen, cred, 1)
}

// beginFetchLocked claims the single fetch slot.
func (c *Controller) beginFetchLocked() (uint64, auth.Credential, bool) {
	if c.closed || c.loading || !c.cred.Valid() {
		return 0, auth.Credential{}, false
	}
	c.loading = true
	c.err = nil
	return c.gen, c.cred, true
}

func (c *Controller) fetch(ctx context.Context, gen uint64, cred auth.Credential, n int) error {
	c.changed()

	items, err := c.api.FetchFeedPage(ctx, cred, n, c.pageSize)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.loading = false
	if err != nil {
		c.err = err
		c.mu.Unlock()
		log.Printf("[WARN] feed: fetch page %d: %v", n, err)
		c.changed()
		return err
	}

	// HasMore follows the rows the server returned, before dedupe.
	returned := len(items)
	items = lo.UniqBy(items, func(it Item) int64 { return it.ID })
	if n == 1 {
		c.items = make([]Item, 0, len(items))
		c.rev = make(map[int64]uint64, len(items))
		c.appendLocked(items)
	} else {
		known := lo.KeyBy(c.items, func(it Item) int64 { return it.ID })
		c.appendLocked(lo.Reject(items, func(it Item, _ int) bool {
			_, dup := known[it.ID]
			return dup
		}))
	}
	c.page = n
	c.loaded = true
	c.hasMore = returned >= c.pageSize
	c.mu.Unlock()
	c.changed()
	return nil
}

func (c *Controller) appendLocked(items []Item) {
	for _, it := range items {
		c.items = append(c.items, it)
		c.bumpLocked(it.ID)
	}
}

// ToggleLike flips the viewer's like on itemID. The flip and the ±1 on
// the like count are visible before the request resolves. On success the
// liked flag follows the server; on failure both fields are restored and
// the error is returned. A toggle on an item with one already in flight
// is a no-op.
func (c *Controller) ToggleLike(ctx context.Context, itemID int64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if !c.cred.Valid() {
		c.mu.Unlock()
		return api.ErrAuth
	}
	idx := c.indexLocked(itemID)
	if idx < 0 {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	if _, busy := c.toggling[itemID]; busy {
		c.mu.Unlock()
		return nil
	}
	c.toggling[itemID] = struct{}{}

	prev := c.items[idx]
	setLiked(&c.items[idx], !prev.LikedByViewer)
	c.bumpLocked(itemID)
	optimisticRev := c.rev[itemID]
	gen, cred := c.gen, c.cred
	c.mu.Unlock()
	c.changed()

	liked, err := c.api.ToggleLike(ctx, cred, itemID)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return err
	}
	delete(c.toggling, itemID)
	idx = c.indexLocked(itemID)
	if err != nil {
		// Roll back only our own write; a newer page-1 fetch wins.
		if idx >= 0 && c.rev[itemID] == optimisticRev {
			c.items[idx].LikedByViewer = prev.LikedByViewer
			c.items[idx].LikeCount = prev.LikeCount
			c.bumpLocked(itemID)
		}
		c.mu.Unlock()
		log.Printf("[WARN] feed: toggle like %d: %v", itemID, err)
		c.changed()
		return err
	}
	if idx >= 0 && c.items[idx].LikedByViewer != liked {
		setLiked(&c.items[idx], liked)
		c.bumpLocked(itemID)
	}
	c.mu.Unlock()
	c.changed()
	return nil
}

// setLiked sets the liked flag and moves the count by one in the same
// direction. Callers only invoke it when the flag actually changes.
func setLiked(it *Item, liked bool) {
	it.LikedByViewer = liked
	if liked {
		it.LikeCount++
	} else if it.LikeCount > 0 {
		it.LikeCount--
	}
}

// DeletePost deletes itemID on the server and removes it from the list.
// An ID that is not in the list is a no-op. A server "not found" counts
// as success. Any other failure leaves the list untouched and is returned.
func (c *Controller) DeletePost(ctx context.Context, itemID int64) error {
	c.mu.Lock()
	if c.closed || c.indexLocked(itemID) < 0 {
		c.mu.Unlock()
		return nil
	}
	if !c.cred.Valid() {
		c.mu.Unlock()
		return api.ErrAuth
	}
	gen, cred := c.gen, c.cred
	c.mu.Unlock()

	err := c.api.DeletePost(ctx, cred, itemID)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		log.Printf("[WARN] feed: delete post %d: %v", itemID, err)
		return err
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	if idx := c.indexLocked(itemID); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		delete(c.rev, itemID)
	}
	c.mu.Unlock()
	c.changed()
	return nil
}

// Close ends the session. Operations still in flight complete but their
// effects are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	c.mu.Unlock()
}

func (c *Controller) indexLocked(id int64) int {
	_, idx, ok := lo.FindIndexOf(c.items, func(it Item) bool { return it.ID == id })
	if !ok {
		return -1
	}
	return idx
}

func (c *Controller) bumpLocked(id int64) {
	c.revSeq++
	c.rev[id] = c.revSeq
}

func (c *Controller) changed() {
	if c.notify != nil {
		c.notify()
	}
}
