// cmd/vidsieve/scan.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/VidSieve/internal/config"
	"github.com/valpere/VidSieve/internal/engine"
	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/scraper"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// collector keeps what a scan recorded and forwards it to next, if any
type collector struct {
	mu      sync.Mutex
	history []types.HistoryEntry
	delta   types.StatsDelta
	next    engine.Recorder
}

func (c *collector) RecordHistory(entry types.HistoryEntry) {
	c.mu.Lock()
	c.history = append(c.history, entry)
	c.mu.Unlock()
	if c.next != nil {
		c.next.RecordHistory(entry)
	}
}

func (c *collector) RecordStats(delta types.StatsDelta) {
	c.mu.Lock()
	c.delta.Add(delta)
	c.mu.Unlock()
	if c.next != nil {
		c.next.RecordStats(delta)
	}
}

// scanResult is the JSON form of a one-shot scan
type scanResult struct {
	Containers int                  `json:"containers"`
	Delta      types.StatsDelta     `json:"delta"`
	Filtered   []types.HistoryEntry `json:"filtered"`
}

type scanOptions struct {
	outputFile string
	jsonOutput bool
	persist    bool
}

func newScanCmd(global *globalOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <page.html>",
		Short: "Run one filter pass over a saved feed page",
		Long: `Scan parses a saved feed page, applies the configured filters once and prints
every hidden video with its reason.

Examples:
  vidsieve scan subscriptions.html -c vidsieve.yaml
  vidsieve scan subscriptions.html --output filtered.html --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			logger := global.logger(cfg, cmd.ErrOrStderr())
			return runScan(cmd.Context(), cfg, logger, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Write the page with filtered videos hidden")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "Record history and stats in the configured store")
	return cmd
}

func runScan(ctx context.Context, cfg *config.Config, logger utils.Logger, path string, opts *scanOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	markup, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	page, err := engine.NewDocumentPageFromHTML(string(markup))
	if err != nil {
		return err
	}

	rec := &collector{}
	if opts.persist {
		store, err := output.NewStore(ctx, cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder := output.NewRecorder(store, cfg.Storage.BufferSize, logger)
		defer recorder.Close()
		rec.next = recorder
	}

	eng := engine.New(page,
		engine.WithLogger(logger),
		engine.WithRecorder(rec),
		engine.WithExtractor(scraper.NewExtractor(scraper.ExtractorConfig{
			Logger:          logger,
			TitleTransforms: cfg.TitleTransforms,
		})),
	)
	if err := eng.Initialize(ctx, cfg.Filters); err != nil {
		return err
	}
	delta, err := eng.RunFilters(ctx)
	if err != nil {
		return err
	}

	count, err := page.Count(ctx)
	if err != nil {
		return err
	}

	if opts.outputFile != "" {
		filtered, err := page.HTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.outputFile, []byte(filtered), 0644); err != nil {
			return fmt.Errorf("failed to write filtered page: %w", err)
		}
	}

	rec.mu.Lock()
	result := scanResult{Containers: count, Delta: delta, Filtered: append([]types.HistoryEntry{}, rec.history...)}
	rec.mu.Unlock()

	if opts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	return printScan(out, result)
}

func printScan(out io.Writer, result scanResult) error {
	fmt.Fprintf(out, "Filtered %d of %d videos (%s)\n", result.Delta.Total, result.Containers, result.Delta)
	if len(result.Filtered) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REASON\tTITLE")
	for _, entry := range result.Filtered {
		fmt.Fprintf(tw, "%s\t%s\n", entry.Reason, entry.Title)
	}
	return tw.Flush()
}
