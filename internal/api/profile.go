package api

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const profilePostsLimit = 50

// Profile bundles everything the profile page shows.
type Profile struct {
	User      *User
	Followers []User
	Following []User
	Posts     []Post
}

// GetProfile fetches a user, their followers, who they follow and their
// recent posts concurrently. The posts endpoint is not filterable by user,
// so the first page of all posts is fetched and filtered here.
func (c *Client) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := c.GetUser(ctx, userID)
		p.User = user
		return err
	})
	g.Go(func() error {
		users, err := c.GetFollowers(ctx, userID)
		p.Followers = users
		return err
	})
	g.Go(func() error {
		users, err := c.GetFollowing(ctx, userID)
		p.Following = users
		return err
	})
	g.Go(func() error {
		posts, err := c.ListPosts(ctx, 1, profilePostsLimit)
		if err != nil {
			return err
		}
		for _, post := range posts {
			if post.UserID == userID {
				p.Posts = append(p.Posts, post)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &p, nil
}
