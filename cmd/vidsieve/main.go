// cmd/vidsieve/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/VidSieve/internal/config"
	"github.com/valpere/VidSieve/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	envFiles   []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "vidsieve",
		Short: "VidSieve hides low-value videos from a rendered video feed",
		Long: `VidSieve watches a video site's feed page, extracts each rendered video card,
applies view, duration, age and keyword filters, and hides the cards that fail.

Usage:
  vidsieve watch [url] --config vidsieve.yaml
  vidsieve scan page.html --output filtered.html`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnv(opts.envFiles...)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Configuration file (YAML)")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "Env files loaded before the configuration (default .env)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override log_level: debug, info, warn, error")

	root.AddCommand(
		newWatchCmd(opts),
		newScanCmd(opts),
		newWalkCmd(opts),
		newExportCmd(opts),
		newStatsCmd(opts),
		newTemplateCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration file, or the defaults when none is given
func (o *globalOptions) load() (*config.Config, error) {
	if o.configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(o.configFile)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "failed to load configuration").
			WithContext("file", o.configFile)
	}
	return cfg, nil
}

// logger builds the process logger writing to w
func (o *globalOptions) logger(cfg *config.Config, w io.Writer) utils.Logger {
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	return utils.NewLoggerWithWriter(utils.ParseLogLevel(level), w)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "VidSieve %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}

// exitCode is 2 for configuration problems and 1 for everything else
func exitCode(err error) int {
	switch utils.CodeOf(err) {
	case utils.ErrCodeInvalidConfig, utils.ErrCodeMissingConfig:
		return 2
	default:
		return 1
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var se *utils.StructuredError
		if errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, utils.GetUserFriendlyMessage(err))
		}
		os.Exit(exitCode(err))
	}
}
