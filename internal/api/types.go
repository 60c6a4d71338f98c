package api

import "time"

// Post is a post as returned by the posts and feed endpoints.
type Post struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Caption       string    `json:"caption"`
	MediaURL      string    `json:"media_url"`
	Flagged       bool      `json:"flagged"`
	CreatedAt     time.Time `json:"created_at"`
	LikesCount    int       `json:"likes_count"`
	LikedByViewer bool      `json:"liked_by_viewer"`
}

// FeedResponse is the paginated feed payload.
type FeedResponse struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Posts []Post `json:"posts"`
}

// PostsResponse is the paginated posts payload.
type PostsResponse struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Posts []Post `json:"posts"`
}

// NewPost is the body for creating a post after the media is uploaded.
type NewPost struct {
	UserID   int64  `json:"user_id"`
	MediaURL string `json:"media_url"`
	Caption  string `json:"caption,omitempty"`
}

// User is a user profile. The password field is never populated by a
// well-behaved server and is not decoded.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthRequest is the body for login and registration.
type AuthRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type registerResponse struct {
	Message string `json:"message"`
}

type toggleLikeResponse struct {
	Liked bool `json:"liked"`
}

type uploadResponse struct {
	MediaURL string `json:"media_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}
