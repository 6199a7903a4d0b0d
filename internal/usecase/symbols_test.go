package usecase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSymbolsPrefersExplicitList(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tickers.txt")
	require.NoError(t, os.WriteFile(file, []byte("IBM\n"), 0o644))

	got, err := ResolveSymbols(models.ScanConfig{Symbols: []string{" aaa", "BBB", "aaa"}, SymbolsFile: file})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, got)
}

func TestResolveSymbolsReadsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(file, []byte("AAPL\n\n  msft  \r\nNVDA\n"), 0o644))

	got, err := ResolveSymbols(models.ScanConfig{SymbolsFile: file})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestResolveSymbolsFallsBackToDefault(t *testing.T) {
	got, err := ResolveSymbols(models.ScanConfig{SymbolsFile: filepath.Join(t.TempDir(), "missing.txt")})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA"}, got)

	got[0] = "XXX"
	assert.Equal(t, "AAPL", models.DefaultSymbols[0])
}

func TestResolveSymbolsUnreadableFileIsFatal(t *testing.T) {
	// a directory exists but cannot be read as a file
	_, err := ResolveSymbols(models.ScanConfig{SymbolsFile: t.TempDir()})

	var fe *models.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.StageResolve, fe.Stage)
}

func TestResolveSymbolsEmptyFileIsFatal(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(file, []byte("\n  \n"), 0o644))

	_, err := ResolveSymbols(models.ScanConfig{SymbolsFile: file})
	var fe *models.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, models.StageResolve, fe.Stage)
}
