package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListTags returns tags in the order they were added.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tags ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// AddTag appends tag. Duplicates return ErrAlreadyExists.
func (s *Store) AddTag(ctx context.Context, tag string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, tag)
		if err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
		if n == 0 {
			return ErrAlreadyExists
		}
		return nil
	})
}

// RemoveTag deletes tag. Unknown tags return ErrNotFound.
func (s *Store) RemoveTag(ctx context.Context, tag string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, tag)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
