// cmd/vidsieve/watch.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/VidSieve/internal/api"
	"github.com/valpere/VidSieve/internal/browser"
	"github.com/valpere/VidSieve/internal/config"
	"github.com/valpere/VidSieve/internal/engine"
	"github.com/valpere/VidSieve/internal/monitoring"
	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/scheduler"
	"github.com/valpere/VidSieve/internal/scraper"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/internal/watch"
	"github.com/valpere/VidSieve/pkg/types"
)

const shutdownTimeout = 10 * time.Second

type watchOptions struct {
	apiAddr   string
	noReload  bool
	headed    bool
	reportNow bool
}

func newWatchCmd(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [url]",
		Short: "Open the feed in a browser and keep it filtered",
		Long: `Watch opens the feed page in Chrome, hides every video that fails the
configured filters and keeps rescanning as cards are inserted, the page is
scrolled or the location changes. Runs until interrupted.

The URL comes from the argument or the url key of the configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.URL = args[0]
			}
			if cfg.URL == "" {
				return utils.NewError(utils.ErrCodeMissingConfig, "no feed URL given").
					WithUserMessage("Pass the feed URL as an argument or set url in the configuration file.")
			}
			if opts.apiAddr != "" {
				cfg.API.Enabled = true
				cfg.API.Addr = opts.apiAddr
			}
			if opts.headed {
				cfg.Browser.Headless = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := global.logger(cfg, cmd.ErrOrStderr())
			reloadPath := global.configFile
			if opts.noReload {
				reloadPath = ""
			}
			return runWatch(ctx, cfg, logger, reloadPath, opts.reportNow)
		},
	}

	cmd.Flags().StringVar(&opts.apiAddr, "api", "", "Serve the control API on this address")
	cmd.Flags().BoolVar(&opts.noReload, "no-reload", false, "Do not reload filters when the configuration file changes")
	cmd.Flags().BoolVar(&opts.headed, "headed", false, "Show the browser window")
	cmd.Flags().BoolVar(&opts.reportNow, "report-now", false, "Write one report at startup when a report is configured")
	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, logger utils.Logger, reloadPath string, reportNow bool) error {
	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{Namespace: "vidsieve", EnableRuntimeMetrics: true})

	store, err := output.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "store", store.Close)

	recorder := output.NewRecorder(store, cfg.Storage.BufferSize, logger,
		output.WithErrorHook(metrics.StorageError),
		output.WithWriteTimeout(cfg.Storage.Timeout),
	)
	defer closeLogged(logger, "recorder", recorder.Close)

	client, err := browser.NewChromeClient(&cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "browser", client.Close)

	if err := client.Navigate(ctx, cfg.URL); err != nil {
		return err
	}

	page := browser.NewLivePage(client, logger)
	if err := page.Install(ctx); err != nil {
		return err
	}

	extractor := scraper.NewExtractor(scraper.ExtractorConfig{
		Logger:          logger,
		TitleTransforms: cfg.TitleTransforms,
		OnMissingFields: metrics.MissingFields,
	})
	eng := engine.New(page,
		engine.WithLogger(logger),
		engine.WithExtractor(extractor),
		engine.WithRecorder(recorder),
		engine.WithObserver(metrics),
	)
	if err := eng.Initialize(ctx, cfg.Filters); err != nil {
		return err
	}
	defer func() {
		destroyCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := eng.Destroy(destroyCtx); err != nil {
			logger.Warnf("failed to restore hidden videos: %v", err)
		}
	}()

	if reloadPath != "" {
		cw, err := config.NewConfigWatcher(reloadPath, logger)
		if err != nil {
			return err
		}
		defer closeLogged(logger, "config watcher", cw.Close)
		cw.OnChange(func(next *config.Config) {
			eng.UpdateSettings(next.Filters)
			logger.WithField("file", reloadPath).Info("filters reloaded")
		})
	}

	watcher := watch.NewWatcher(page, eng, cfg.Watch, logger,
		watch.WithTriggerObserver(metrics),
		watch.WithScanCallback(func(source string, delta types.StatsDelta) {
			logger.Debugf("%s scan: %s", source, delta)
		}),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return watcher.Run(groupCtx) })

	if cfg.API.Enabled {
		health := monitoring.NewHealthChecker(version, 5*time.Second)
		health.Register("engine", true, func(context.Context) error {
			if !eng.Initialized() {
				return engine.ErrNotInitialized
			}
			return nil
		})
		health.Register("browser", true, func(ctx context.Context) error {
			_, err := page.Count(ctx)
			return err
		})
		health.Register("store", false, func(ctx context.Context) error {
			_, err := store.Stats(ctx)
			return err
		})

		server := api.NewServer(api.Config{
			Addr:      cfg.API.Addr,
			Token:     cfg.API.Token,
			RateLimit: cfg.API.RateLimit,
		}, eng,
			api.WithStore(store),
			api.WithScan(eng.RunFilters),
			api.WithHealth(health.Handler()),
			api.WithMetrics(metrics.Handler()),
			api.WithLogger(logger),
		)
		group.Go(func() error { return server.ListenAndServe(groupCtx) })
	}

	if cfg.Report.Enabled() {
		sched, err := scheduler.New(scheduler.ReportConfig{
			Schedule: cfg.Report.Schedule,
			Path:     cfg.Report.Path,
			Format:   cfg.Report.Format,
		}, store, logger)
		if err != nil {
			return err
		}
		if reportNow {
			if err := sched.RunOnce(ctx); err != nil {
				logger.Warnf("startup report failed: %v", err)
			}
		}
		group.Go(func() error { return sched.Start(groupCtx) })
	}

	logger.WithField("url", cfg.URL).Info("watching feed")
	err = group.Wait()
	if ctx.Err() != nil {
		totals := eng.Totals()
		logger.Infof("stopped, session totals: %s", totals)
		return nil
	}
	return err
}

func closeLogged(logger utils.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warnf("failed to close %s: %v", name, err)
	}
}
