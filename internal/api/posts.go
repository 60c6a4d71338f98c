package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
)

// GetFeedPage fetches one page of the viewer's feed: posts by the user
// and everyone they follow, newest first.
func (c *Client) GetFeedPage(ctx context.Context, userID int64, page, limit int) ([]Post, error) {
	if page < 1 {
		page = 1
	}
	q := make(url.Values)
	q.Set("user_id", strconv.FormatInt(userID, 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var resp FeedResponse
	if err := c.getJSON(ctx, "get feed", "/api/feed?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// ListPosts fetches one page of all posts.
func (c *Client) ListPosts(ctx context.Context, page, limit int) ([]Post, error) {
	q := make(url.Values)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var resp PostsResponse
	if err := c.getJSON(ctx, "list posts", "/api/posts?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// GetPost fetches a single post by ID.
func (c *Client) GetPost(ctx context.Context, id int64) (*Post, error) {
	var post Post
	if err := c.getJSON(ctx, "get post", fmt.Sprintf("/api/posts/%d", id), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost publishes a post for already-uploaded media.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (*Post, error) {
	var post Post
	if err := c.sendJSON(ctx, "create post", http.MethodPost, "/api/posts", p, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes a post by ID.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, "delete post", http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, nil)
}

// ToggleLike likes or unlikes a post and reports whether the viewer likes
// it afterwards.
func (c *Client) ToggleLike(ctx context.Context, id int64) (bool, error) {
	var resp toggleLikeResponse
	if err := c.sendJSON(ctx, "toggle like", http.MethodPost, fmt.Sprintf("/api/posts/%d/like", id), nil, &resp); err != nil {
		return false, err
	}
	return resp.Liked, nil
}

// UploadMedia uploads a media file as multipart form data and returns the
// server-side media URL.
func (c *Client) UploadMedia(ctx context.Context, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filename))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	var resp uploadResponse
	if err := c.do(ctx, "upload media", http.MethodPost, "/api/upload", pr, mw.FormDataContentType(), &resp); err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	if resp.MediaURL == "" {
		return "", fmt.Errorf("upload media: no media url in response")
	}
	return resp.MediaURL, nil
}
