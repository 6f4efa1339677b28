package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/charsheet/internal/db"
	"github.com/udisondev/charsheet/internal/ruleset"
	"github.com/udisondev/charsheet/internal/testutil"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func writeSystem(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tiny.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testutil.Fixtures.SystemYAML), 0o644))
	return path
}

func TestCollectSources(t *testing.T) {
	t.Run("builtins when nothing given", func(t *testing.T) {
		sources, err := collectSources(nil, "")
		require.NoError(t, err)
		require.Len(t, sources, len(ruleset.Builtins()))
		assert.True(t, strings.HasPrefix(sources[0].label, "builtin:"))
	})

	t.Run("systems dir", func(t *testing.T) {
		dir := t.TempDir()
		path := writeSystem(t, dir)
		sources, err := collectSources(nil, dir)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, path, sources[0].label)
	})

	t.Run("arguments win over dir", func(t *testing.T) {
		dir := t.TempDir()
		writeSystem(t, dir)
		sources, err := collectSources([]string{"other.yaml"}, dir)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "other.yaml", sources[0].label)
	})
}

func TestCheckAll(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, testutil.DefaultTimeout)
	sources, err := collectSources(nil, "")
	require.NoError(t, err)

	reports, err := checkAll(ctx, sources, 2)
	require.NoError(t, err)
	require.Len(t, reports, len(sources))
	for i, r := range reports {
		assert.Equal(t, "builtin:"+r.system.Name, sources[i].label)
		assert.NotEmpty(t, r.lines)
		assert.Positive(t, r.roots)
		assert.Positive(t, r.leaves)
	}
}

func TestCheckAll_BadFile(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, testutil.DefaultTimeout)
	dir := t.TempDir()
	bad := filepath.Join(dir, "loop.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: loop\nstats:\n  - {name: a, formula: \"$b\"}\n  - {name: b, formula: \"$a\"}\n"), 0o644))

	sources, err := collectSources([]string{bad}, "")
	require.NoError(t, err)
	_, err = checkAll(ctx, sources, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestRun(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, testutil.DefaultTimeout)
	dir := t.TempDir()
	writeSystem(t, dir)
	dbPath := filepath.Join(dir, "sheets.db")
	cfgPath := filepath.Join(dir, "sheetcheck.yaml")
	cfg := "log_level: error\nworkers: 1\nsystems_dir: " + dir + "\nstorage:\n  driver: sqlite\n  dsn: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-config", cfgPath, "-persist"}, &out))

	assert.Contains(t, out.String(), "== tiny (")
	assert.Contains(t, out.String(), "3 stats, 1 roots, 1 leaves")
	assert.Contains(t, out.String(), "-l  12 ac (b:0/0 ?:0/0)")

	store, err := db.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()
	names, err := store.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiny"}, names)
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, testutil.DefaultTimeout)
	cfgPath := filepath.Join(t.TempDir(), "sheetcheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 0\n"), 0o644))

	err := run(ctx, []string{"-config", cfgPath}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
