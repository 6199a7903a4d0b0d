package main

import (
	"encoding/json"
	"errors"

	"SetupScan/internal/domain/models"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Analyze a single symbol and print the record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		app, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		rec, err := app.Service().Analyze(cmd.Context(), args[0])
		if errors.Is(err, models.ErrUnavailable) {
			printWarning(cmd.ErrOrStderr(), "no analysis available for %s", args[0])
			return err
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}
