// Command scrape runs product extractions from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maltedev/supplier-scraper/internal/config"
	"github.com/maltedev/supplier-scraper/pkg/logger"
)

var (
	storeBackend string
	storeFile    string
	noBrowser    bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract supplier product pages",
	Long: `Extracts title, price, description and images from supported supplier
product pages and stores them in the configured catalog.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "store backend: postgres or file (default from STORE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&storeFile, "store-file", "", "JSON file for the file store (default from STORE_FILE_PATH)")
	rootCmd.PersistentFlags().BoolVar(&noBrowser, "no-browser", false, "disable rendered retrieval")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from LOG_LEVEL)")
}

// loadConfig applies the command line overrides on top of the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if storeFile != "" {
		cfg.Store.FilePath = storeFile
	}
	if noBrowser {
		cfg.Browser.Enabled = false
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	// the CLI never relays outbox events
	cfg.Redis.Enabled = false

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.New("error", "text").Error("command failed", "error", err)
		os.Exit(1)
	}
}
