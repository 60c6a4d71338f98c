package cache

import (
	"context"
	"strings"
)

const maxSearches = 20

// AddSearch records a user search query, keeping the most recent ones.
func (d *DB) AddSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO searches (query, searched_at) VALUES (?, ?)`,
		query, d.now().UnixNano()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM searches WHERE query NOT IN
		(SELECT query FROM searches ORDER BY searched_at DESC LIMIT ?)`, maxSearches); err != nil {
		return err
	}
	return tx.Commit()
}

// RecentSearches returns up to limit queries, most recent first.
func (d *DB) RecentSearches(ctx context.Context, limit int) ([]string, error) {
	var queries []string
	err := d.db.SelectContext(ctx, &queries, `SELECT query FROM searches ORDER BY searched_at DESC LIMIT ?`, limit)
	return queries, err
}
