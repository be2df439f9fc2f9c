// cmd/vidsieve/config_cmds.go
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/VidSieve/internal/config"
)

func newTemplateCmd() *cobra.Command {
	var (
		outputFile string
		list       bool
	)

	cmd := &cobra.Command{
		Use:   "template [name]",
		Short: "Generate a configuration template",
		Long: fmt.Sprintf(`Generate a ready-to-edit configuration.

Templates: %s (default basic)`, strings.Join(config.TemplateNames(), ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, name := range config.TemplateNames() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			name := "basic"
			if len(args) > 0 {
				name = args[0]
			}
			cfg, err := config.GenerateTemplate(name)
			if err != nil {
				return err
			}

			if outputFile != "" {
				if err := config.SaveToFile(cfg, outputFile); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Template %q written to %s\n", name, outputFile)
				return nil
			}
			return config.SaveToWriter(cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the template to a file instead of stdout")
	cmd.Flags().BoolVar(&list, "list", false, "List available templates")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(args[0])
			if err != nil {
				var verrs config.ValidationErrors
				if errors.As(err, &verrs) {
					for _, e := range verrs {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e.Error())
					}
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration file '%s' is valid\n", args[0])
			fmt.Fprintf(out, "  Storage: %s\n", cfg.Storage.Type)
			fmt.Fprintf(out, "  Filters: views=%t duration=%t age=%t keyword=%t\n",
				cfg.Filters.ViewsFilterEnabled, cfg.Filters.DurationFilterEnabled,
				cfg.Filters.AgeFilterEnabled, cfg.Filters.KeywordFilterEnabled)
			if cfg.Report.Enabled() {
				fmt.Fprintf(out, "  Report: %s -> %s\n", cfg.Report.Schedule, cfg.Report.Path)
			}
			return nil
		},
	}
}
