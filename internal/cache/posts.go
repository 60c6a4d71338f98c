package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/fragmede/instalight/internal/api"
)

type postRow struct {
	ID            int64          `db:"id"`
	UserID        int64          `db:"user_id"`
	Caption       sql.NullString `db:"caption"`
	MediaURL      string         `db:"media_url"`
	Flagged       bool           `db:"flagged"`
	CreatedAt     int64          `db:"created_at"`
	LikesCount    int            `db:"likes_count"`
	LikedByViewer bool           `db:"liked_by_viewer"`
	FetchedAt     int64          `db:"fetched_at"`
}

func (r postRow) post() api.Post {
	return api.Post{
		ID:            r.ID,
		UserID:        r.UserID,
		Caption:       r.Caption.String,
		MediaURL:      r.MediaURL,
		Flagged:       r.Flagged,
		CreatedAt:     time.Unix(r.CreatedAt, 0),
		LikesCount:    r.LikesCount,
		LikedByViewer: r.LikedByViewer,
	}
}

const postColumns = `id, user_id, caption, media_url, flagged, created_at, likes_count, liked_by_viewer, fetched_at`

// GetPost retrieves a cached post. Returns (post, isFresh, error); post is
// nil on a cache miss.
func (d *DB) GetPost(ctx context.Context, id int64, ttl time.Duration) (*api.Post, bool, error) {
	var row postRow
	found, err := d.getOne(ctx, &row, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	if err != nil || !found {
		return nil, false, err
	}
	p := row.post()
	return &p, d.fresh(row.FetchedAt, ttl), nil
}

// PostsByUser returns cached posts by userID, newest first, regardless of
// age. Used to show something while the profile reloads.
func (d *DB) PostsByUser(ctx context.Context, userID int64, limit int) ([]api.Post, error) {
	var rows []postRow
	err := d.db.SelectContext(ctx, &rows, `SELECT `+postColumns+` FROM posts
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	posts := make([]api.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.post()
	}
	return posts, nil
}

// PutPosts stores posts in the cache.
func (d *DB) PutPosts(ctx context.Context, posts ...api.Post) error {
	if len(posts) == 0 {
		return nil
	}
	now := d.now().Unix()
	rows := make([]postRow, len(posts))
	for i, p := range posts {
		rows[i] = postRow{
			ID:            p.ID,
			UserID:        p.UserID,
			Caption:       nullStr(p.Caption),
			MediaURL:      p.MediaURL,
			Flagged:       p.Flagged,
			CreatedAt:     p.CreatedAt.Unix(),
			LikesCount:    p.LikesCount,
			LikedByViewer: p.LikedByViewer,
			FetchedAt:     now,
		}
	}
	_, err := d.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO posts (`+postColumns+`)
		VALUES (:id, :user_id, :caption, :media_url, :flagged, :created_at, :likes_count, :liked_by_viewer, :fetched_at)`, rows)
	return err
}

// SetLiked updates the viewer's like on a cached post.
func (d *DB) SetLiked(ctx context.Context, id int64, liked bool, likesCount int) error {
	_, err := d.db.ExecContext(ctx, `UPDATE posts SET liked_by_viewer = ?, likes_count = ? WHERE id = ?`, liked, likesCount, id)
	return err
}

// DeletePost removes a post from the cache.
func (d *DB) DeletePost(ctx context.Context, id int64) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}
