package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmind/dm-concierge/internal/model"
	"github.com/threadmind/dm-concierge/internal/store"
)

const legacy = `[
  {"message_id": "m1", "reply": "Hi!", "username": "alice", "intent": "greeting", "timestamp": "2024-05-01T10:00:00"},
  {"thread_id": "orphan"}
]`

func TestRun_NormalizesAndBacksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.json")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, path, false, ""))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	assert.Equal(t, legacy, string(backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0]["id"])
	assert.Equal(t, "Hi!", entries[0]["suggestion"])
	assert.Equal(t, false, entries[0]["resolved"])
	assert.NotContains(t, entries[0], "reply")

	assert.Contains(t, out.String(), "warning:")
	assert.Contains(t, out.String(), "normalized 1 entries")
}

func TestRun_Import(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.json")
	db := filepath.Join(dir, "concierge.db")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, path, true, db))
	assert.Contains(t, out.String(), "imported 1 entries")

	st, err := store.Open(context.Background(), db)
	require.NoError(t, err)
	defer st.Close()
	logs, err := st.ListLogs(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "alice", logs[0].Username)
	assert.Equal(t, model.IntentGreeting, logs[0].Intent)
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()

	err := run(context.Background(), &bytes.Buffer{}, filepath.Join(dir, "missing.json"), false, "")
	assert.Error(t, err)

	path := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"m1"}`), 0o644))
	err = run(context.Background(), &bytes.Buffer{}, path, false, "")
	assert.ErrorIs(t, err, store.ErrNotAList)
	_, statErr := os.Stat(path + ".backup")
	assert.True(t, os.IsNotExist(statErr))
}
