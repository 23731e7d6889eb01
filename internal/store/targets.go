package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/threadmind/dm-concierge/internal/model"
)

// ListTargets returns every target in the order they were added.
func (s *Store) ListTargets(ctx context.Context) ([]model.Target, error) {
	return s.queryTargets(ctx, `SELECT username, added_at, active FROM targets ORDER BY rowid ASC`)
}

// ActiveTargets returns the targets the poller should watch.
func (s *Store) ActiveTargets(ctx context.Context) ([]model.Target, error) {
	return s.queryTargets(ctx, `SELECT username, added_at, active FROM targets WHERE active = 1 ORDER BY rowid ASC`)
}

// AddTarget adds an active target. Adding an existing username returns
// ErrAlreadyExists.
func (s *Store) AddTarget(ctx context.Context, username string) (model.Target, error) {
	t := model.Target{
		Username: username,
		AddedAt:  time.Now().UTC(),
		Active:   true,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO targets (username, added_at, active) VALUES (?, ?, 1)
			 ON CONFLICT(username) DO NOTHING`,
			username, t.AddedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert target: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert target: %w", err)
		}
		if n == 0 {
			return ErrAlreadyExists
		}
		return nil
	})
	return t, err
}

// RemoveTarget deletes a target. Removing an unknown username returns
// ErrNotFound.
func (s *Store) RemoveTarget(ctx context.Context, username string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("delete target: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete target: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) queryTargets(ctx context.Context, query string) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	targets := make([]model.Target, 0)
	for rows.Next() {
		var (
			t       model.Target
			addedAt string
			active  int
		)
		if err := rows.Scan(&t.Username, &addedAt, &active); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		t.AddedAt, err = time.Parse(time.RFC3339Nano, addedAt)
		if err != nil {
			return nil, fmt.Errorf("parse added_at %q: %w", addedAt, err)
		}
		t.Active = active != 0
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate targets: %w", err)
	}
	return targets, nil
}
