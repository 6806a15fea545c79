package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_TriggersOnTargetOnly(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o600))

	var calls atomic.Int32
	w, err := NewWatcher(target, 50*time.Millisecond, func(context.Context) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.aux"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o600))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.tex")

	var calls atomic.Int32
	w, err := NewWatcher(target, 300*time.Millisecond, func(context.Context) { calls.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, target, w.Path())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte('a' + i)}, 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "doc.tex"), 0, func(context.Context) {})
	require.Error(t, err)
}

func TestWatcher_CloseWithoutRun(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, "doc.tex"), 0, func(context.Context) {})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	done := make(chan error, 1)
	go func() { done <- w.Run(t.Context()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)

	var runs atomic.Int32
	id, err := s.Every(50*time.Millisecond, "rebuild", func() { runs.Add(1) })
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)

	_, err = s.Every(0, "bad", func() {})
	require.Error(t, err)
}
