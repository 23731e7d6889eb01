package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/threadmind/dm-concierge/internal/model"
)

// ErrNotAList is returned when a legacy log file is not a JSON array.
var ErrNotAList = errors.New("expected a JSON list of log entries")

// NormalizeLegacyLogs rewrites the entries of a legacy logs.json document
// into the current shape. Entries that cannot be normalized are skipped and
// described in warnings. Unknown keys are preserved.
func NormalizeLegacyLogs(data []byte) (entries []map[string]any, warnings []string, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode legacy logs: %w", err)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w, got %T", ErrNotAList, raw)
	}

	entries = make([]map[string]any, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipping non-object entry %d: %v", i, item))
			continue
		}

		id := entry["id"]
		if isBlank(id) {
			id = entry["message_id"]
		}
		if isBlank(id) {
			warnings = append(warnings, fmt.Sprintf("skipping entry %d: missing both id and message_id", i))
			continue
		}

		suggestion := entry["suggestion"]
		if isBlank(suggestion) {
			suggestion = entry["reply"]
			if isBlank(suggestion) {
				suggestion = ""
			}
		}

		norm := make(map[string]any, len(entry))
		for k, v := range entry {
			norm[k] = v
		}
		norm["id"] = id
		norm["suggestion"] = suggestion
		if norm["used_template"] == nil {
			norm["used_template"] = false
		}
		if norm["resolved"] == nil {
			norm["resolved"] = false
		}
		delete(norm, "message_id")
		delete(norm, "reply")

		entries = append(entries, norm)
	}
	return entries, warnings, nil
}

// LegacyEntry converts a normalized legacy entry into a LogEntry.
func LegacyEntry(m map[string]any) (model.LogEntry, error) {
	var e model.LogEntry

	e.ID = stringOf(m["id"])
	if e.ID == "" {
		return e, errors.New("entry has no id")
	}
	e.ThreadID = stringOf(m["thread_id"])
	e.Username = stringOf(m["username"])
	e.OriginalMessage = stringOf(m["original_message"])
	e.Intent = model.Intent(stringOf(m["intent"]))
	if e.Intent == "" {
		e.Intent = model.IntentOther
	}
	e.Suggestion = stringOf(m["suggestion"])
	e.UsedTemplate, _ = m["used_template"].(bool)
	e.Resolved, _ = m["resolved"].(bool)

	if ts := stringOf(m["timestamp"]); ts != "" {
		parsed, err := parseLegacyTime(ts)
		if err != nil {
			return e, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		e.Timestamp = parsed
	} else {
		e.Timestamp = time.Now().UTC()
	}

	if n, ok := m["response_time"].(json.Number); ok {
		if v, err := n.Float64(); err == nil {
			e.ResponseTime = &v
		}
	}
	// Entries written by the old poller carry the template as template_used.
	for _, key := range []string{"template_id", "template_used"} {
		if n, ok := m[key].(json.Number); ok {
			if v, err := n.Int64(); err == nil {
				id := int(v)
				e.TemplateID = &id
				break
			}
		}
	}
	return e, nil
}

// ImportLogs appends entries to the log table, returning how many were stored.
func (s *Store) ImportLogs(ctx context.Context, entries []model.LogEntry) (int, error) {
	for i, e := range entries {
		if err := s.AppendLog(ctx, e); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}

func parseLegacyTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		return x.String() == "0"
	}
	return false
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
