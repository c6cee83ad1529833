package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finwatch/expense-importer/internal/config"
	"github.com/finwatch/expense-importer/internal/core"
	"github.com/finwatch/expense-importer/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the import
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Import error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	svc *core.ImportService,
	gen core.TextGenerator,
	repo core.ExpenseRepository,
) error {
	defer logger.Sync()

	imp := cfg.GetImport()
	if imp.Sender == "" {
		return fmt.Errorf("import.sender must be configured")
	}
	month, year, err := resolveWindow(imp.Month, imp.Year, time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting import",
		zap.String("sender", imp.Sender),
		zap.Int("month", int(month)),
		zap.Int("year", year))

	summary, err := svc.Run(ctx, imp.Sender, month, year)

	// Close any resources that need closing
	if closer, ok := gen.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("Failed to close LLM client", zap.Error(cerr))
		}
	}
	if closer, ok := repo.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("Failed to close repository", zap.Error(cerr))
		}
	}
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	return nil
}

// resolveWindow fills each unset window component from now independently, so
// configuring only import.month (or only import.year) keeps the configured
// value instead of discarding it.
func resolveWindow(month, year int, now time.Time) (time.Month, int, error) {
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("import.month %d is out of range", month)
	}
	return time.Month(month), year, nil
}
