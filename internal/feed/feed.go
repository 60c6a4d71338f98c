// Package feed holds the paginated, optimistically mutated feed list for
// one viewing session.
package feed

import (
	"context"
	"time"

	"github.com/fragmede/instalight/internal/auth"
)

// DefaultPageSize matches the page size the web client requests.
const DefaultPageSize = 10

// Item is one post in the feed.
type Item struct {
	ID            int64
	AuthorID      int64
	Caption       string
	MediaURL      string
	CreatedAt     time.Time
	LikedByViewer bool
	LikeCount     int
	Flagged       bool
}

// State is a point-in-time copy of the controller's state.
type State struct {
	Items   []Item
	Page    int
	Loading bool
	HasMore bool
	Err     error
}

// API is the backend surface the controller drives. Implementations are
// bound to no credential; the controller passes the current one on each
// call.
type API interface {
	FetchFeedPage(ctx context.Context, cred auth.Credential, page, pageSize int) ([]Item, error)
	ToggleLike(ctx context.Context, cred auth.Credential, itemID int64) (bool, error)
	DeletePost(ctx context.Context, cred auth.Credential, itemID int64) error
}
