package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/fragmede/instalight/internal/api"
)

type userRow struct {
	ID        int64          `db:"id"`
	Username  string         `db:"username"`
	Email     sql.NullString `db:"email"`
	CreatedAt int64          `db:"created_at"`
	FetchedAt int64          `db:"fetched_at"`
}

// GetUser retrieves a cached user. Returns (user, isFresh, error); user is
// nil on a cache miss.
func (d *DB) GetUser(ctx context.Context, id int64, ttl time.Duration) (*api.User, bool, error) {
	var row userRow
	found, err := d.getOne(ctx, &row, `SELECT id, username, email, created_at, fetched_at FROM users WHERE id = ?`, id)
	if err != nil || !found {
		return nil, false, err
	}
	user := &api.User{
		ID:       row.ID,
		Username: row.Username,
		Email:    row.Email.String,
	}
	if row.CreatedAt != 0 {
		user.CreatedAt = time.Unix(row.CreatedAt, 0)
	}
	return user, d.fresh(row.FetchedAt, ttl), nil
}

// PutUsers stores users in the cache.
func (d *DB) PutUsers(ctx context.Context, users ...api.User) error {
	if len(users) == 0 {
		return nil
	}
	now := d.now().Unix()
	rows := make([]userRow, len(users))
	for i, u := range users {
		rows[i] = userRow{
			ID:        u.ID,
			Username:  u.Username,
			Email:     nullStr(u.Email),
			FetchedAt: now,
		}
		if !u.CreatedAt.IsZero() {
			rows[i].CreatedAt = u.CreatedAt.Unix()
		}
	}
	_, err := d.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO users (id, username, email, created_at, fetched_at)
		VALUES (:id, :username, :email, :created_at, :fetched_at)`, rows)
	return err
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
