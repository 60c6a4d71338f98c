package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetUser fetches a user profile by ID.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "get user", fmt.Sprintf("/api/users/%d", id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetFollowers lists the users following id.
func (c *Client) GetFollowers(ctx context.Context, id int64) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "get followers", fmt.Sprintf("/api/users/%d/followers", id), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetFollowing lists the users id follows.
func (c *Client) GetFollowing(ctx context.Context, id int64) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "get following", fmt.Sprintf("/api/users/%d/following", id), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers matches query against usernames and emails.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	q := make(url.Values)
	q.Set("q", query)
	var users []User
	if err := c.getJSON(ctx, "search users", "/api/users/search?"+q.Encode(), &users); err != nil {
		return nil, err
	}
	return users, nil
}
