// cmd/vidsieve/export.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/VidSieve/internal/config"
	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

func newExportCmd(global *globalOptions) *cobra.Command {
	var (
		path   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored stats and history",
		Long: `Export writes the stored stats and filter history as json, csv, yaml or xlsx.
The format is taken from --format or guessed from the output file extension.

Examples:
  vidsieve export -c vidsieve.yaml --output history.xlsx
  vidsieve export -c vidsieve.yaml --format csv --output -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			logger := global.logger(cfg, cmd.ErrOrStderr())
			return withStore(cmd.Context(), cfg, logger, func(ctx context.Context, store output.Store) error {
				if path == "-" {
					f := output.OutputFormat(format)
					if f == "" {
						f = output.FormatJSON
					}
					return writeReport(ctx, store, f, cmd.OutOrStdout())
				}
				if err := output.ExportFile(ctx, store, output.OutputFormat(format), path); err != nil {
					return err
				}
				logger.WithField("file", path).Info("export written")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, csv, yaml, xlsx")
	return cmd
}

func newStatsCmd(global *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show accumulated filter stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			logger := global.logger(cfg, cmd.ErrOrStderr())
			return withStore(cmd.Context(), cfg, logger, func(ctx context.Context, store output.Store) error {
				stats, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				history, err := store.History(ctx)
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), stats, len(history), jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stats as JSON")
	return cmd
}

// withStore opens the configured store for the duration of fn
func withStore(ctx context.Context, cfg *config.Config, logger utils.Logger, fn func(context.Context, output.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := output.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func writeReport(ctx context.Context, store output.Store, format output.OutputFormat, out io.Writer) error {
	report, err := output.BuildReport(ctx, store, time.Now())
	if err != nil {
		return err
	}
	writer, err := output.NewWriter(format, out)
	if err != nil {
		return err
	}
	if err := writer.Write(report); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func printStats(out io.Writer, stats types.StatsDelta, historyLen int, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Stats   types.StatsDelta `json:"stats"`
			History int              `json:"history_entries"`
		}{stats, historyLen})
	}

	fmt.Fprintf(out, "Total filtered: %d\n", stats.Total)
	fmt.Fprintf(out, "  views:    %d\n", stats.Views)
	fmt.Fprintf(out, "  duration: %d\n", stats.Duration)
	fmt.Fprintf(out, "  age:      %d\n", stats.Age)
	fmt.Fprintf(out, "  keyword:  %d\n", stats.Keyword)
	fmt.Fprintf(out, "History entries: %d\n", historyLen)
	return nil
}
