package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfig(t, "environment: test\n")

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Scanner.MaxWorkers)
	assert.Equal(t, "scanner_results", c.Scanner.OutputDir)
	assert.Equal(t, 500*time.Millisecond, c.Scanner.PollInterval)
	assert.Equal(t, []string{"bullish", "bearish", "neutral"}, c.Scanner.Filters.Trend)
	assert.Equal(t, 60.0, c.Scanner.Filters.MinConfidence)
	assert.Equal(t, "none", c.Archive.Type)
	assert.Equal(t, 8080, c.Server.Port)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
environment: test
scanner:
  max_workers: 2
  symbols: [AAA, BBB]
  filters:
    trend: [bullish]
    min_confidence: 75
`)

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Scanner.MaxWorkers)
	assert.Equal(t, []string{"AAA", "BBB"}, c.Scanner.Symbols)

	crit, err := c.Scanner.Filters.Criteria()
	require.NoError(t, err)
	assert.Equal(t, []models.TrendLabel{models.Bullish}, crit.Trends)
	assert.Equal(t, 75.0, crit.MinConfidence)
	assert.Equal(t, models.Range{Min: 0, Max: 100}, crit.RSI)
}

func TestLoadRejectsInvertedRange(t *testing.T) {
	p := writeConfig(t, `
environment: test
scanner:
  filters:
    rsi_min: 80
    rsi_max: 20
`)

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}

func TestLoadRejectsUnknownTrend(t *testing.T) {
	p := writeConfig(t, `
environment: test
scanner:
  filters:
    trend: [sideways]
`)

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, models.IsConfigError(err))
}

func TestLoadRequiresArchiveSettings(t *testing.T) {
	p := writeConfig(t, `
environment: test
archive:
  type: postgres
`)

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.url")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	p := writeConfig(t, "environment: test\n")
	t.Setenv("SYMBOLS", "AAA, BBB ,CCC")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092")
	t.Setenv("SETUPSCAN_OUTPUT_DIR", "/tmp/scans")

	c, err := LoadWithEnv(p)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, c.Scanner.Symbols)
	assert.Equal(t, 3, c.Scanner.MaxWorkers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "/tmp/scans", c.Scanner.OutputDir)
}

func TestLoadWithEnvMissingFileFallsBackToDefaults(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
}

func TestScanConfigCopiesSymbols(t *testing.T) {
	s := ScannerConfig{Symbols: []string{"AAA"}, OutputDir: "out", MaxWorkers: 1}
	sc := s.ScanConfig(models.DefaultFilterCriteria())
	sc.Symbols[0] = "ZZZ"
	assert.Equal(t, "AAA", s.Symbols[0])
	assert.Equal(t, "out", sc.OutputDir)
}
