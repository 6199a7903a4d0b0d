package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedWriter(t time.Time) *FileResultWriter {
	return &FileResultWriter{now: func() time.Time { return t }}
}

func TestResultFileName(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 5, 1, 0, time.Local)
	assert.Equal(t, "scan_results_20240307_090501.json", ResultFileName(ts))
}

func TestFileResultWriterWritesIndentedJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := fixedWriter(time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))

	rs := models.ResultSet{{Symbol: "AAA", Setup: models.Bullish, Confidence: 80}}
	path, err := w.Write(context.Background(), dir, rs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan_results_20240102_030405.json"), path)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  {\n    \"symbol\": \"AAA\"")

	var got models.ResultSet
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "AAA", got[0].Symbol)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".scan_results_*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileResultWriterEmptySetIsArray(t *testing.T) {
	dir := t.TempDir()
	path, err := fixedWriter(time.Now()).Write(context.Background(), dir, nil)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestFileResultWriterUnwritableDir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permissions are not enforced")
	}
	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o555))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })

	_, err := fixedWriter(time.Now()).Write(context.Background(), filepath.Join(parent, "out"), models.ResultSet{})
	assert.Error(t, err)
}

func TestFileResultWriterPathIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := fixedWriter(time.Now()).Write(context.Background(), file, models.ResultSet{})
	assert.Error(t, err)
}
