package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SetupScan/internal/domain/models"
)

// FileResultWriter writes each result set to its own timestamped JSON file.
type FileResultWriter struct {
	now func() time.Time
}

func NewFileResultWriter() *FileResultWriter {
	return &FileResultWriter{now: time.Now}
}

// Write creates dir if needed and stores rs as indented JSON. An empty set is written as [].
func (w *FileResultWriter) Write(ctx context.Context, dir string, rs models.ResultSet) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rs == nil {
		rs = models.ResultSet{}
	}
	b, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, ResultFileName(w.now()))

	tmp, err := os.CreateTemp(dir, ".scan_results_*.tmp")
	if err != nil {
		return "", fmt.Errorf("create results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write results file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close results file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod results file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename results file: %w", err)
	}
	return path, nil
}

// ResultFileName returns scan_results_YYYYMMDD_HHMMSS.json for t in local time.
func ResultFileName(t time.Time) string {
	return "scan_results_" + t.Format("20060102_150405") + ".json"
}
