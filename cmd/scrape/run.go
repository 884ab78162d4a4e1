package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maltedev/supplier-scraper/internal/app"
	"github.com/maltedev/supplier-scraper/internal/export"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
	"github.com/maltedev/supplier-scraper/pkg/logger"
)

const (
	outputStdout = "stdout"
	outputJSON   = "json"
	outputCSV    = "csv"
)

var (
	runURLs      []string
	runFile      string
	runOutput    string
	runCreatedAt string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape a batch of product URLs",
	Long: `Scrapes the given URLs one at a time with per-supplier pacing. A URL that
fails is recorded and the batch moves on.`,
	Example: `  scrape run --url https://www.cdiscount.com/f-1.html
  scrape run --file urls.txt --output csv --store file`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runURLs, "url", "u", nil, "product URL, repeatable or comma separated")
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "file with one URL per line, # starts a comment")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", outputStdout, "output format: stdout, json or csv")
	runCmd.Flags().StringVar(&runCreatedAt, "created-at", "", "timestamp stored on every product (RFC 3339 or YYYY-MM-DD)")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	switch runOutput {
	case outputStdout, outputJSON, outputCSV:
	default:
		return fmt.Errorf("unknown output %q", runOutput)
	}

	createdAt, err := parseCreatedAt(runCreatedAt)
	if err != nil {
		return err
	}

	urls, err := collectURLs(runURLs, runFile)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no urls given, use --url or --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	pal := newPalette()
	var stored []models.StoredProduct

	summary, runErr := a.Service.RunBatch(ctx, urls, scraper.ScrapeOptions{CreatedAt: createdAt}, func(p scraper.Progress) {
		if p.Product != nil {
			stored = append(stored, *p.Product)
		}
		if runOutput == outputStdout {
			fmt.Fprintln(out, pal.progressLine(p))
		}
	})
	if summary == nil {
		return runErr
	}

	if err := writeOutput(out, runOutput, pal, stored, summary); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("batch interrupted: %w", runErr)
	}
	return nil
}

func writeOutput(out io.Writer, format string, pal *palette, stored []models.StoredProduct, summary *models.BatchSummary) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Products []models.StoredProduct `json:"products"`
			Summary  *models.BatchSummary   `json:"summary"`
		}{Products: nonNil(stored), Summary: summary})
	case outputCSV:
		return export.WriteCSV(out, stored)
	default:
		fmt.Fprintln(out, pal.summary(summary))
		return nil
	}
}

// collectURLs merges flag URLs and the lines of file, keeping their order.
func collectURLs(flagURLs []string, file string) ([]string, error) {
	urls := make([]string, 0, len(flagURLs))
	for _, u := range flagURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	if file == "" {
		return urls, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open url file: %w", err)
	}
	defer f.Close()

	fromFile, err := readURLs(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read url file: %w", err)
	}
	return append(urls, fromFile...), nil
}

func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func parseCreatedAt(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --created-at %q, want RFC 3339 or YYYY-MM-DD", raw)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}
	return s
}
