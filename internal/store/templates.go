package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/threadmind/dm-concierge/internal/model"
)

const templateColumns = `id, intent, title, content, tags`

// ListTemplates returns all templates ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := make([]model.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// GetTemplate returns the template with id.
func (s *Store) GetTemplate(ctx context.Context, id int) (model.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// FindTemplateByIntent returns the lowest-id template for intent.
func (s *Store) FindTemplateByIntent(ctx context.Context, intent model.Intent) (model.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE intent = ? ORDER BY id ASC LIMIT 1`,
		string(intent),
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// CreateTemplate inserts a template with id one greater than the current
// maximum and returns it.
func (s *Store) CreateTemplate(ctx context.Context, req model.CreateTemplateRequest) (model.Template, error) {
	t := model.Template{
		Intent:  req.Intent,
		Title:   req.Title,
		Content: req.Content,
		Tags:    normalizeTags(req.Tags),
	}
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return t, fmt.Errorf("encode tags: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO templates (id, intent, title, content, tags)
			 VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM templates), ?, ?, ?, ?)
			 RETURNING id`,
			string(t.Intent), t.Title, t.Content, string(tags),
		).Scan(&t.ID)
	})
	if err != nil {
		return t, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

// UpdateTemplate applies the non-nil fields of req to template id.
func (s *Store) UpdateTemplate(ctx context.Context, id int, req model.UpdateTemplateRequest) (model.Template, error) {
	var t model.Template
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
		var err error
		t, err = scanTemplate(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if req.Intent != nil {
			t.Intent = *req.Intent
		}
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Content != nil {
			t.Content = *req.Content
		}
		if req.Tags != nil {
			t.Tags = normalizeTags(*req.Tags)
		}

		tags, err := json.Marshal(t.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE templates SET intent = ?, title = ?, content = ?, tags = ? WHERE id = ?`,
			string(t.Intent), t.Title, t.Content, string(tags), id,
		)
		if err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		return nil
	})
	return t, err
}

// DeleteTemplate removes template id.
func (s *Store) DeleteTemplate(ctx context.Context, id int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanTemplate(row scanner) (model.Template, error) {
	var (
		t      model.Template
		intent string
		tags   string
	)
	if err := row.Scan(&t.ID, &intent, &t.Title, &t.Content, &tags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan template: %w", err)
	}
	t.Intent = model.Intent(intent)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decode tags for template %d: %w", t.ID, err)
	}
	t.Tags = normalizeTags(t.Tags)
	return t, nil
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
