// Package app binds the backend client and the local cache into the
// operations the views need, one authenticated call per operation.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/cache"
	"github.com/fragmede/instalight/internal/feed"
)

const maxParallelLookups = 4

// Options tune cache lifetimes.
type Options struct {
	UserTTL time.Duration
	PostTTL time.Duration
}

// Service implements feed.API and the rest of the client operations on
// top of an unauthenticated api.Client. The cache is optional.
type Service struct {
	client *api.Client
	cache  *cache.DB
	opts   Options
}

var _ feed.API = (*Service)(nil)

func NewService(client *api.Client, db *cache.DB, opts Options) *Service {
	return &Service{client: client, cache: db, opts: opts}
}

// Client returns the unauthenticated client, which doubles as the
// auth.Authenticator for login and registration.
func (s *Service) Client() *api.Client {
	return s.client
}

func (s *Service) as(cred auth.Credential) *api.Client {
	return s.client.WithToken(cred.Token)
}

// ItemFromPost converts a wire post into a feed item.
func ItemFromPost(p api.Post) feed.Item {
	return feed.Item{
		ID:            p.ID,
		AuthorID:      p.UserID,
		Caption:       p.Caption,
		MediaURL:      p.MediaURL,
		CreatedAt:     p.CreatedAt,
		LikedByViewer: p.LikedByViewer,
		LikeCount:     p.LikesCount,
		Flagged:       p.Flagged,
	}
}

func (s *Service) FetchFeedPage(ctx context.Context, cred auth.Credential, page, pageSize int) ([]feed.Item, error) {
	posts, err := s.as(cred).GetFeedPage(ctx, cred.UserID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch feed page %d: %w", page, err)
	}
	s.savePosts(ctx, posts)
	return lo.Map(posts, func(p api.Post, _ int) feed.Item { return ItemFromPost(p) }), nil
}

func (s *Service) ToggleLike(ctx context.Context, cred auth.Credential, itemID int64) (bool, error) {
	liked, err := s.as(cred).ToggleLike(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("toggle like on %d: %w", itemID, err)
	}
	if s.cache != nil {
		if p, _, err := s.cache.GetPost(ctx, itemID, s.opts.PostTTL); err == nil && p != nil && p.LikedByViewer != liked {
			n := p.LikesCount + 1
			if !liked {
				n = max(p.LikesCount-1, 0)
			}
			if err := s.cache.SetLiked(ctx, itemID, liked, n); err != nil {
				log.Printf("[WARN] cache like %d: %v", itemID, err)
			}
		}
	}
	return liked, nil
}

func (s *Service) DeletePost(ctx context.Context, cred auth.Credential, itemID int64) error {
	err := s.as(cred).DeletePost(ctx, itemID)
	// NotFound means the post is already gone; the cached copy goes too.
	if s.cache != nil && (err == nil || errors.Is(err, api.ErrNotFound)) {
		if cerr := s.cache.DeletePost(ctx, itemID); cerr != nil {
			log.Printf("[WARN] cache delete post %d: %v", itemID, cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("delete post %d: %w", itemID, err)
	}
	return nil
}

// Usernames resolves user IDs to usernames, serving fresh entries from
// the cache and fetching the rest concurrently. IDs that fail to resolve
// are left out.
func (s *Service) Usernames(ctx context.Context, cred auth.Credential, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	var missing []int64
	for _, id := range lo.Uniq(ids) {
		if s.cache != nil {
			if u, fresh, err := s.cache.GetUser(ctx, id, s.opts.UserTTL); err == nil && u != nil && fresh {
				names[id] = u.Username
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names
	}

	c := s.as(cred)
	var mu sync.Mutex
	var fetched []api.User
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for _, id := range missing {
		id := id
		g.Go(func() error {
			u, err := c.GetUser(gctx, id)
			if err != nil {
				log.Printf("[WARN] resolve user %d: %v", id, err)
				return nil
			}
			mu.Lock()
			names[id] = u.Username
			fetched = append(fetched, *u)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	s.saveUsers(ctx, fetched)
	return names
}

// Profile loads a user's profile page. Posts come back newest first.
func (s *Service) Profile(ctx context.Context, cred auth.Credential, userID int64) (*api.Profile, error) {
	p, err := s.as(cred).GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", userID, err)
	}
	users := append(append([]api.User(nil), p.Followers...), p.Following...)
	if p.User != nil {
		users = append(users, *p.User)
	}
	s.saveUsers(ctx, users)
	s.savePosts(ctx, p.Posts)
	return p, nil
}

// CachedUser returns a user from the cache regardless of age, or nil.
func (s *Service) CachedUser(ctx context.Context, userID int64) *api.User {
	if s.cache == nil {
		return nil
	}
	u, _, err := s.cache.GetUser(ctx, userID, s.opts.UserTTL)
	if err != nil {
		log.Printf("[WARN] cache get user %d: %v", userID, err)
		return nil
	}
	return u
}

// PostDetail is a post with its comments.
type PostDetail struct {
	Post     *api.Post
	Comments []api.Comment
	Authors  map[int64]string
}

// Post loads a post, its comments and the usernames of everyone involved.
func (s *Service) Post(ctx context.Context, cred auth.Credential, postID int64) (*PostDetail, error) {
	c := s.as(cred)
	var d PostDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetPost(gctx, postID)
		d.Post = p
		return err
	})
	g.Go(func() error {
		comments, err := c.ListComments(gctx, postID)
		d.Comments = comments
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}
	s.savePosts(ctx, []api.Post{*d.Post})

	ids := lo.Map(d.Comments, func(c api.Comment, _ int) int64 { return c.UserID })
	d.Authors = s.Usernames(ctx, cred, append(ids, d.Post.UserID))
	return &d, nil
}

// AddComment posts a comment as the viewer.
func (s *Service) AddComment(ctx context.Context, cred auth.Credential, postID int64, text string) (*api.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("comment: %w", api.ErrBadRequest)
	}
	c, err := s.as(cred).CreateComment(ctx, postID, text)
	if err != nil {
		return nil, fmt.Errorf("add comment to %d: %w", postID, err)
	}
	return c, nil
}

// DeleteComment removes one of the viewer's comments.
func (s *Service) DeleteComment(ctx context.Context, cred auth.Credential, postID, commentID int64) error {
	if err := s.as(cred).DeleteComment(ctx, postID, commentID); err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}

// SearchUsers finds users matching query, excluding the viewer. An empty
// query returns no results without a request.
func (s *Service) SearchUsers(ctx context.Context, cred auth.Credential, query string) ([]api.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	users, err := s.as(cred).SearchUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	users = lo.Reject(users, func(u api.User, _ int) bool { return u.ID == cred.UserID })
	s.saveUsers(ctx, users)
	if s.cache != nil {
		if err := s.cache.AddSearch(ctx, query); err != nil {
			log.Printf("[WARN] cache search %q: %v", query, err)
		}
	}
	return users, nil
}

// RecentSearches returns the most recent search queries.
func (s *Service) RecentSearches(ctx context.Context, limit int) []string {
	if s.cache == nil {
		return nil
	}
	queries, err := s.cache.RecentSearches(ctx, limit)
	if err != nil {
		log.Printf("[WARN] cache recent searches: %v", err)
		return nil
	}
	return queries
}

// Upload sends the media file and then publishes a post for it. A
// moderation rejection comes back as an *api.Error carrying the server's
// message.
func (s *Service) Upload(ctx context.Context, cred auth.Credential, filename string, r io.Reader, caption string) (*api.Post, error) {
	c := s.as(cred)
	mediaURL, err := c.UploadMedia(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	post, err := c.CreatePost(ctx, api.NewPost{
		UserID:   cred.UserID,
		MediaURL: mediaURL,
		Caption:  strings.TrimSpace(caption),
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.savePosts(ctx, []api.Post{*post})
	log.Printf("[INFO] published post %d (%s)", post.ID, mediaURL)
	return post, nil
}

func (s *Service) savePosts(ctx context.Context, posts []api.Post) {
	if s.cache == nil || len(posts) == 0 {
		return
	}
	if err := s.cache.PutPosts(ctx, posts...); err != nil {
		log.Printf("[WARN] cache posts: %v", err)
	}
}

func (s *Service) saveUsers(ctx context.Context, users []api.User) {
	if s.cache == nil || len(users) == 0 {
		return
	}
	users = lo.UniqBy(users, func(u api.User) int64 { return u.ID })
	if err := s.cache.PutUsers(ctx, users...); err != nil {
		log.Printf("[WARN] cache users: %v", err)
	}
}
