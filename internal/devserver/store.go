package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/fragmede/instalight/internal/api"
)

var (
	errNotFound  = errors.New("not found")
	errForbidden = errors.New("forbidden")
	errConflict  = errors.New("username or email already taken")
)

type account struct {
	api.User
	password string
}

type follow struct {
	follower  int64
	following int64
}

type like struct {
	postID int64
	userID int64
}

// Store is the in-memory state behind the dev server.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[int64]*account
	posts    map[int64]*api.Post
	comments map[int64]*api.Comment
	follows  map[follow]struct{}
	likes    map[like]struct{}
	media    map[string][]byte
	nextID   int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[int64]*account),
		posts:    make(map[int64]*api.Post),
		comments: make(map[int64]*api.Comment),
		follows:  make(map[follow]struct{}),
		likes:    make(map[like]struct{}),
		media:    make(map[string][]byte),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser registers an account and returns its ID.
func (s *Store) AddUser(username, email, password string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) || (email != "" && strings.EqualFold(u.Email, email)) {
			return 0, errConflict
		}
	}
	id := s.id()
	s.users[id] = &account{
		User:     api.User{ID: id, Username: username, Email: email, CreatedAt: s.now().UTC()},
		password: password,
	}
	return id, nil
}

// Authenticate returns the user matching username and password.
func (s *Store) Authenticate(username, password string) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username && u.password == password {
			return u.User, true
		}
	}
	return api.User{}, false
}

// User returns a user by ID.
func (s *Store) User(id int64) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return api.User{}, false
	}
	return u.User, true
}

// Follow makes follower follow following.
func (s *Store) Follow(follower, following int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows[follow{follower: follower, following: following}] = struct{}{}
}

// Followers lists the users following id, ordered by ID.
func (s *Store) Followers(id int64) []api.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.User
	for f := range s.follows {
		if f.following == id {
			if u, ok := s.users[f.follower]; ok {
				out = append(out, u.User)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Following lists the users id follows, ordered by ID.
func (s *Store) Following(id int64) []api.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []api.User
	for f := range s.follows {
		if f.follower == id {
			if u, ok := s.users[f.following]; ok {
				out = append(out, u.User)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SearchUsers matches query case-insensitively against usernames and
// emails.
func (s *Store) SearchUsers(query string) []api.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	out := lo.FilterMap(lo.Values(s.users), func(u *account, _ int) (api.User, bool) {
		match := strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q)
		return u.User, match
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddPost creates a post owned by userID.
func (s *Store) AddPost(userID int64, mediaURL, caption string) (api.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return api.Post{}, errNotFound
	}
	p := &api.Post{
		ID:        s.id(),
		UserID:    userID,
		Caption:   caption,
		MediaURL:  mediaURL,
		CreatedAt: s.now().UTC(),
	}
	s.posts[p.ID] = p
	return *p, nil
}

// Post returns a post with like data computed for viewer.
func (s *Store) Post(id, viewer int64) (api.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return api.Post{}, false
	}
	return s.decorate(*p, viewer), true
}

// DeletePost removes a post owned by userID together with its likes and
// comments.
func (s *Store) DeletePost(id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return errNotFound
	}
	if p.UserID != userID {
		return errForbidden
	}
	delete(s.posts, id)
	for l := range s.likes {
		if l.postID == id {
			delete(s.likes, l)
		}
	}
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

// ToggleLike flips userID's like on a post and reports the new state.
func (s *Store) ToggleLike(postID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, errNotFound
	}
	k := like{postID: postID, userID: userID}
	if _, liked := s.likes[k]; liked {
		delete(s.likes, k)
		return false, nil
	}
	s.likes[k] = struct{}{}
	return true, nil
}

// Posts returns one page of all posts, newest first.
func (s *Store) Posts(page, limit int, viewer int64) []api.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page(lo.Values(s.posts), page, limit, viewer)
}

// Feed returns one page of posts by userID and everyone they follow,
// newest first.
func (s *Store) Feed(userID int64, page, limit int) []api.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	authors := map[int64]struct{}{userID: {}}
	for f := range s.follows {
		if f.follower == userID {
			authors[f.following] = struct{}{}
		}
	}
	posts := lo.Filter(lo.Values(s.posts), func(p *api.Post, _ int) bool {
		_, ok := authors[p.UserID]
		return ok
	})
	return s.page(posts, page, limit, userID)
}

func (s *Store) page(posts []*api.Post, page, limit int, viewer int64) []api.Post {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	offset := (page - 1) * limit
	if offset >= len(posts) {
		return []api.Post{}
	}
	end := min(offset+limit, len(posts))
	return lo.Map(posts[offset:end], func(p *api.Post, _ int) api.Post {
		return s.decorate(*p, viewer)
	})
}

func (s *Store) decorate(p api.Post, viewer int64) api.Post {
	for l := range s.likes {
		if l.postID == p.ID {
			p.LikesCount++
			if l.userID == viewer {
				p.LikedByViewer = true
			}
		}
	}
	return p
}

// Comments lists the comments on a post, oldest first.
func (s *Store) Comments(postID int64) ([]api.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, errNotFound
	}
	out := lo.FilterMap(lo.Values(s.comments), func(c *api.Comment, _ int) (api.Comment, bool) {
		return *c, c.PostID == postID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddComment adds a comment by userID.
func (s *Store) AddComment(postID, userID int64, text string) (api.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return api.Comment{}, errNotFound
	}
	c := &api.Comment{ID: s.id(), PostID: postID, UserID: userID, Text: text, CreatedAt: s.now().UTC()}
	s.comments[c.ID] = c
	return *c, nil
}

// DeleteComment removes a comment owned by userID.
func (s *Store) DeleteComment(postID, commentID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.PostID != postID {
		return errNotFound
	}
	if c.UserID != userID {
		return errForbidden
	}
	delete(s.comments, commentID)
	return nil
}

// PutMedia stores uploaded bytes under name.
func (s *Store) PutMedia(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[name] = data
}

// Media returns uploaded bytes by name.
func (s *Store) Media(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.media[name]
	return data, ok
}
