package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/threadmind/dm-concierge/internal/model"
)

const logColumns = `timestamp, message_id, thread_id, username, original_message, intent,
	suggestion, used_template, resolved, response_time, template_id`

// AppendLog appends one interaction record in its own transaction.
func (s *Store) AppendLog(ctx context.Context, e model.LogEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO interaction_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.ID,
			e.ThreadID,
			e.Username,
			e.OriginalMessage,
			string(e.Intent),
			e.Suggestion,
			boolToInt(e.UsedTemplate),
			boolToInt(e.Resolved),
			nullFloat(e.ResponseTime),
			nullInt(e.TemplateID),
		)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		return nil
	})
}

// ListLogs returns log entries in insertion order. A positive limit keeps
// only the most recent entries.
func (s *Store) ListLogs(ctx context.Context, f model.LogFilter) ([]model.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM interaction_logs` + whereUsername(f.Username) + ` ORDER BY seq ASC`
	var args []any
	if f.Username != "" {
		args = append(args, f.Username)
	}
	if f.Limit > 0 {
		query = `SELECT ` + logColumns + ` FROM (SELECT seq, ` + logColumns + ` FROM interaction_logs` +
			whereUsername(f.Username) + ` ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	logs := make([]model.LogEntry, 0)
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}

// HasLog reports whether a message in a thread has already been logged.
func (s *Store) HasLog(ctx context.Context, threadID, messageID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM interaction_logs WHERE thread_id = ? AND message_id = ?`,
		threadID, messageID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check log: %w", err)
	}
	return n > 0, nil
}

func whereUsername(username string) string {
	if username == "" {
		return ""
	}
	return ` WHERE username = ?`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner) (model.LogEntry, error) {
	var (
		e            model.LogEntry
		ts, intent   string
		usedTemplate int
		resolved     int
		responseTime sql.NullFloat64
		templateID   sql.NullInt64
	)
	err := row.Scan(&ts, &e.ID, &e.ThreadID, &e.Username, &e.OriginalMessage, &intent,
		&e.Suggestion, &usedTemplate, &resolved, &responseTime, &templateID)
	if err != nil {
		return e, fmt.Errorf("scan log: %w", err)
	}

	e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return e, fmt.Errorf("parse log timestamp %q: %w", ts, err)
	}
	e.Intent = model.Intent(intent)
	e.UsedTemplate = usedTemplate != 0
	e.Resolved = resolved != 0
	if responseTime.Valid {
		v := responseTime.Float64
		e.ResponseTime = &v
	}
	if templateID.Valid {
		v := int(templateID.Int64)
		e.TemplateID = &v
	}
	return e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
