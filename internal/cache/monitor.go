package cache

import (
	"context"
	"time"
)

// FeedHead is the newest post a user has seen at the top of their feed.
type FeedHead struct {
	UserID     int64 `db:"user_id"`
	HeadPostID int64 `db:"head_post_id"`
	CheckedAt  int64 `db:"checked_at"`
}

// GetFeedHead returns the stored head for userID, or zero values if the
// feed has never been watched.
func (d *DB) GetFeedHead(ctx context.Context, userID int64) (int64, time.Time, error) {
	var head FeedHead
	found, err := d.getOne(ctx, &head, `SELECT user_id, head_post_id, checked_at FROM feed_watch WHERE user_id = ?`, userID)
	if err != nil || !found {
		return 0, time.Time{}, err
	}
	return head.HeadPostID, time.Unix(head.CheckedAt, 0), nil
}

// SetFeedHead records postID as the newest post seen in userID's feed.
func (d *DB) SetFeedHead(ctx context.Context, userID, postID int64) error {
	_, err := d.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO feed_watch (user_id, head_post_id, checked_at)
		VALUES (:user_id, :head_post_id, :checked_at)`, FeedHead{
		UserID:     userID,
		HeadPostID: postID,
		CheckedAt:  d.now().Unix(),
	})
	return err
}
