// internal/browser/chromedp.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/valpere/VidSieve/internal/utils"
)

// ChromeClient drives one Chrome tab through chromedp
type ChromeClient struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      *BrowserConfig
	logger      utils.Logger

	mu    sync.Mutex
	stats BrowserStats
}

// NewChromeClient starts a browser and opens a tab
func NewChromeClient(config *BrowserConfig, logger utils.Logger) (*ChromeClient, error) {
	if config == nil {
		config = DefaultBrowserConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	client := &ChromeClient{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
		logger:      utils.NewModuleLogger(logger, "browser"),
	}

	if err := chromedp.Run(ctx, chromedp.EmulateViewport(int64(config.ViewportWidth), int64(config.ViewportHeight))); err != nil {
		client.Close()
		return nil, utils.WrapError(err, utils.ErrCodeBrowserFailed, "failed to start browser")
	}
	return client, nil
}

// Navigate loads url and waits for the page shell to render
func (c *ChromeClient) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if c.config.WaitForElement != "" {
		tasks = append(tasks, chromedp.WaitVisible(c.config.WaitForElement))
	}
	if c.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(c.config.WaitDelay))
	}

	runCtx, cancel := c.runContext(ctx)
	defer cancel()
	err := chromedp.Run(runCtx, tasks)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.Errors++
		return utils.WrapError(err, utils.ErrCodeBrowserFailed, "navigation failed").WithContext("url", url)
	}

	loadTime := time.Since(start)
	c.stats.PagesLoaded++
	if c.stats.PagesLoaded == 1 {
		c.stats.AverageLoadTime = loadTime
	} else {
		c.stats.AverageLoadTime = (c.stats.AverageLoadTime + loadTime) / 2
	}
	c.logger.WithFields(map[string]interface{}{
		"url":     url,
		"load_ms": loadTime.Milliseconds(),
	}).Info("page loaded")
	return nil
}

// Evaluate runs expression in the tab
func (c *ChromeClient) Evaluate(ctx context.Context, expression string, res interface{}) error {
	runCtx, cancel := c.runContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, res)); err != nil {
		c.mu.Lock()
		c.stats.JavaScriptErrors++
		c.mu.Unlock()
		return utils.WrapError(err, utils.ErrCodeBrowserFailed, "script evaluation failed")
	}
	return nil
}

// HTML returns the current page markup
func (c *ChromeClient) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := c.runContext(ctx)
	defer cancel()

	var markup string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &markup)); err != nil {
		c.mu.Lock()
		c.stats.Errors++
		c.mu.Unlock()
		return "", utils.WrapError(err, utils.ErrCodeBrowserFailed, "failed to get HTML")
	}
	return markup, nil
}

// Stats returns a copy of the browser statistics
func (c *ChromeClient) Stats() BrowserStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close shuts down the tab and the browser process
func (c *ChromeClient) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

// runContext derives a per-call context from the tab context that also ends
// when ctx does, bounded by the configured timeout
func (c *ChromeClient) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(c.ctx)
	if c.config.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, c.config.Timeout)
		prev := cancel
		cancel = func() {
			timeoutCancel()
			prev()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
