package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"SetupScan/internal/domain/models"
	"SetupScan/internal/usecase"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	scanFilters   string
	scanSymbols   []string
	scanOutputDir string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the ranked setups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := decodeFilters(scanFilters)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		if len(scanSymbols) > 0 {
			cfg.Scanner.Symbols = scanSymbols
		}
		if scanOutputDir != "" {
			cfg.Scanner.OutputDir = scanOutputDir
		}
		app, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		svc := app.Service()
		done := make(chan struct{})
		go watchProgress(cmd.Context(), out, svc, cfg.Scanner.PollInterval, done)

		start := time.Now()
		rs, err := svc.Scan(cmd.Context(), o)
		close(done)
		if err != nil {
			return err
		}
		for _, e := range svc.Status().Errors {
			printWarning(out, "%s", e)
		}
		printSuccess(out, "scan finished in %s: %d setups after filtering", time.Since(start).Round(time.Millisecond), len(rs))
		printResults(out, rs)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanFilters, "filters", "", `Filter overrides as JSON, e.g. '{"trend":["bullish"],"min_confidence":70}'`)
	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbols", nil, "Symbols to scan instead of the configured universe")
	scanCmd.Flags().StringVar(&scanOutputDir, "output-dir", "", "Directory for the result file")
}

// decodeFilters parses the same JSON document the HTTP routes accept in their filters parameter.
func decodeFilters(raw string) (models.FilterOverrides, error) {
	var o models.FilterOverrides
	if strings.TrimSpace(raw) == "" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return o, &models.ConfigError{Field: "filters", Reason: "Invalid filters format"}
	}
	return o, nil
}

// watchProgress prints every new status message until done is closed.
func watchProgress(ctx context.Context, w io.Writer, svc *usecase.ScanService, every time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			snap := svc.Status()
			if !snap.IsScanning || snap.Message == last {
				continue
			}
			last = snap.Message
			printInfo(w, "[%3d%%] %s", snap.Progress, snap.Message)
		}
	}
}

func setupColor(l models.TrendLabel) func(format string, a ...interface{}) string {
	switch l {
	case models.Bullish:
		return color.GreenString
	case models.Bearish:
		return color.RedString
	default:
		return color.YellowString
	}
}

func printResults(w io.Writer, rs models.ResultSet) {
	if len(rs) == 0 {
		return
	}
	fmt.Fprintf(w, "%-4s %-8s %-8s %6s  %-5s %10s %10s %10s\n", "#", "SYMBOL", "SETUP", "CONF", "ENTRY", "PRICE", "STOP", "TARGET")
	for i, r := range rs {
		entry := "-"
		if r.EntrySignal {
			entry = color.GreenString("%-5s", "yes")
		} else {
			entry = fmt.Sprintf("%-5s", entry)
		}
		fmt.Fprintf(w, "%-4d %-8s %s %5.1f%%  %s %10.2f %10.2f %10.2f\n",
			i+1, r.Symbol, setupColor(r.Setup)("%-8s", r.Setup), r.Confidence, entry,
			r.CurrentPrice, r.StopLoss, r.TargetPrice)
	}
}
