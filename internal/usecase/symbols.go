package usecase

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"SetupScan/internal/domain/models"
	"SetupScan/pkg/util"
)

// ResolveSymbols picks the scan universe: the explicit list, else the symbols file, else the built-in list.
// A missing file falls through to the default; a file that exists but cannot be read is fatal.
func ResolveSymbols(cfg models.ScanConfig) ([]string, error) {
	if syms := util.UniqueSymbols(cfg.Symbols); len(syms) > 0 {
		return syms, nil
	}

	if cfg.SymbolsFile != "" {
		b, err := os.ReadFile(cfg.SymbolsFile)
		switch {
		case err == nil:
			syms := util.UniqueSymbols(strings.Split(string(b), "\n"))
			if len(syms) == 0 {
				return nil, models.Fatal(models.StageResolve, fmt.Errorf("symbols file %s is empty", cfg.SymbolsFile))
			}
			return syms, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, models.Fatal(models.StageResolve, fmt.Errorf("read symbols file: %w", err))
		}
	}

	return append([]string(nil), models.DefaultSymbols...), nil
}
