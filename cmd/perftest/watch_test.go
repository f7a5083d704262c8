package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&rootOptions{})

	assert.Equal(t, "watch", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("output"))

	flag := cmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)
}

func TestIsWatched(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "perftest.yaml")

	assert.True(t, isWatched(fsnotify.Event{Name: cfg, Op: fsnotify.Write}, cfg))
	assert.True(t, isWatched(fsnotify.Event{Name: filepath.Join(dir, ".env"), Op: fsnotify.Create}, cfg))
	assert.False(t, isWatched(fsnotify.Event{Name: cfg, Op: fsnotify.Chmod}, cfg))
	assert.False(t, isWatched(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write}, cfg))
}

func TestRunWatchBuild(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "template.json")
	var out bytes.Buffer

	runWatchBuild(context.Background(), &out, writeConfig(t, enabledYAML), watchOptions{
		outputFormat: "json",
		outputFile:   outFile,
	})

	assert.Contains(t, out.String(), "Build successful, wrote "+outFile)
	_, err := os.Stat(outFile)
	require.NoError(t, err)
}

func TestRunWatchBuild_PicksUpDotenvEdits(t *testing.T) {
	const key = "PERFTEST_ECS_TASK_PERF_TAG_VERSION"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeConfig(t, enabledYAML)
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	outFile := filepath.Join(t.TempDir(), "template.json")
	opts := watchOptions{outputFormat: "json", outputFile: outFile}

	require.NoError(t, os.WriteFile(dotenv, []byte(key+"=2.0.0\n"), 0o644))
	runWatchBuild(context.Background(), &bytes.Buffer{}, path, opts)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "perftest:2.0.0")

	require.NoError(t, os.WriteFile(dotenv, []byte(key+"=2.1.0\n"), 0o644))
	runWatchBuild(context.Background(), &bytes.Buffer{}, path, opts)
	data, err = os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "perftest:2.1.0")
	assert.NotContains(t, string(data), "perftest:2.0.0")
}

func TestRunWatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	path := writeConfig(t, disabledYAML)

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- runWatch(ctx, &out, path, watchOptions{debounce: 10 * time.Millisecond, outputFormat: "json"})
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
