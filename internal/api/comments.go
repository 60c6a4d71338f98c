package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListComments fetches the comments on a post, oldest first.
func (c *Client) ListComments(ctx context.Context, postID int64) ([]Comment, error) {
	var comments []Comment
	if err := c.getJSON(ctx, "list comments", fmt.Sprintf("/api/posts/%d/comments", postID), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment adds a comment to a post as the authenticated user.
func (c *Client) CreateComment(ctx context.Context, postID int64, text string) (*Comment, error) {
	var comment Comment
	body := struct {
		Text string `json:"text"`
	}{Text: text}
	if err := c.sendJSON(ctx, "create comment", http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment deletes one of the viewer's comments.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID int64) error {
	path := fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID)
	return c.sendJSON(ctx, "delete comment", http.MethodDelete, path, nil, nil)
}
