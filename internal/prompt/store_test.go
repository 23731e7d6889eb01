package prompt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmind/dm-concierge/pkg/logger"
)

func TestStore_GetSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prompt.txt")

	s, err := NewStore(path, logger.NewNop())
	require.NoError(t, err)
	assert.Empty(t, s.Get())

	require.NoError(t, s.Set("  Be brief.  "))
	assert.Equal(t, "Be brief.", s.Get())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", string(data))

	// A fresh store sees the persisted override.
	s2, err := NewStore(path, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", s2.Get())

	require.NoError(t, s.Set("   "))
	assert.Empty(t, s.Get())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	require.NoError(t, s.Set(""))
}

func TestStore_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	s, err := NewStore(path, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher a moment to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("edited by hand"), 0o644))

	assert.Eventually(t, func() bool {
		return s.Get() == "edited by hand"
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
