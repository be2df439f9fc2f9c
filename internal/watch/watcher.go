// internal/watch/watcher.go
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// Default timings
const (
	DefaultMutationDebounce = 500 * time.Millisecond
	DefaultScrollDebounce   = 250 * time.Millisecond
	DefaultNavigationDelay  = 1500 * time.Millisecond
	DefaultInitialDelay     = 1000 * time.Millisecond
	DefaultPollRate         = 4.0
)

// Config holds trigger timings
type Config struct {
	MutationDebounce time.Duration `yaml:"mutation_debounce" json:"mutation_debounce"`
	ScrollDebounce   time.Duration `yaml:"scroll_debounce" json:"scroll_debounce"`
	NavigationDelay  time.Duration `yaml:"navigation_delay" json:"navigation_delay"`
	InitialDelay     time.Duration `yaml:"initial_delay" json:"initial_delay"`
	// PollRate is signal polls per second
	PollRate float64 `yaml:"poll_rate" json:"poll_rate"`
}

// DefaultConfig returns the default timings
func DefaultConfig() Config {
	return Config{
		MutationDebounce: DefaultMutationDebounce,
		ScrollDebounce:   DefaultScrollDebounce,
		NavigationDelay:  DefaultNavigationDelay,
		InitialDelay:     DefaultInitialDelay,
		PollRate:         DefaultPollRate,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MutationDebounce <= 0 {
		c.MutationDebounce = d.MutationDebounce
	}
	if c.ScrollDebounce <= 0 {
		c.ScrollDebounce = d.ScrollDebounce
	}
	if c.NavigationDelay <= 0 {
		c.NavigationDelay = d.NavigationDelay
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.PollRate <= 0 {
		c.PollRate = d.PollRate
	}
	return c
}

// Signals is a snapshot of the page's change counters
type Signals struct {
	// Document identifies the loaded document; it changes on a full reload
	Document string `json:"document"`
	// Insertions counts mutation batches that added a container
	Insertions uint64 `json:"insertions"`
	Scrolls    uint64 `json:"scrolls"`
	Location   string `json:"location"`
	Count      int    `json:"count"`
}

// SignalSource is a page that exposes change counters
type SignalSource interface {
	Counter
	Signals(ctx context.Context) (Signals, error)
}

// Scanner runs one scan pass
type Scanner interface {
	RunFilters(ctx context.Context) (types.StatsDelta, error)
}

// TriggerObserver is told each time a trigger runs a scan
type TriggerObserver interface {
	TriggerFired(source string)
}

// Watcher turns page signals into debounced scans
type Watcher struct {
	source   SignalSource
	scanner  Scanner
	config   Config
	logger   utils.Logger
	observer TriggerObserver
	onScan   func(source string, delta types.StatsDelta)
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithTriggerObserver sets the metrics observer
func WithTriggerObserver(observer TriggerObserver) WatcherOption {
	return func(w *Watcher) { w.observer = observer }
}

// WithScanCallback is called after every scan that filtered something
func WithScanCallback(fn func(source string, delta types.StatsDelta)) WatcherOption {
	return func(w *Watcher) { w.onScan = fn }
}

// NewWatcher creates a watcher
func NewWatcher(source SignalSource, scanner Scanner, config Config, logger utils.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:  source,
		scanner: scanner,
		config:  config.withDefaults(),
		logger:  utils.NewModuleLogger(logger, "watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls the source until ctx is done. Scans fired by triggers run on
// timer goroutines; the scanner is expected to serialise them.
func (w *Watcher) Run(ctx context.Context) error {
	mutation := NewMutationTrigger(w.config.MutationDebounce, func() { w.scan(ctx, SourceMutation) })
	scroll := NewScrollTrigger(ctx, w.config.ScrollDebounce, w.source, func() { w.scan(ctx, SourceScroll) })
	navigation := NewNavigationTrigger(w.config.NavigationDelay, func() { w.scan(ctx, SourceNavigation) })
	initial := NewDebouncer(w.config.InitialDelay, func() { w.scan(ctx, SourceInitial) })
	reload := NewDebouncer(w.config.InitialDelay, func() { w.scan(ctx, SourceReload) })
	defer func() {
		initial.Stop()
		reload.Stop()
		mutation.Stop()
		scroll.Stop()
		navigation.Stop()
	}()

	initial.Trigger()
	limiter := utils.NewRateLimiter(w.config.PollRate)
	w.logger.WithField("poll_rate", w.config.PollRate).Info("watching page")

	var last Signals
	primed := false
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		signals, err := w.source.Signals(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warnf("failed to read page signals: %v", err)
			continue
		}

		if !primed {
			scroll.Prime(signals.Count)
			navigation.Check(signals.Location)
			last = signals
			primed = true
			continue
		}

		if reloaded(last, signals) {
			w.logger.WithField("location", signals.Location).Info("page reloaded")
			scroll.Prime(signals.Count)
			navigation.Check(signals.Location)
			reload.Trigger()
			last = signals
			continue
		}
		if signals.Insertions > last.Insertions {
			mutation.NotifyQualified()
		}
		if signals.Scrolls > last.Scrolls {
			scroll.OnScroll()
		}
		if navigation.Check(signals.Location) {
			w.logger.WithField("location", signals.Location).Debug("navigation detected")
		}
		last = signals
	}
}

func (w *Watcher) scan(ctx context.Context, source string) {
	if ctx.Err() != nil {
		return
	}
	if w.observer != nil {
		w.observer.TriggerFired(source)
	}

	delta, err := w.scanner.RunFilters(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		w.logger.WithField("source", source).Warnf("scan failed: %v", err)
		return
	}
	if !delta.IsZero() {
		w.logger.WithFields(map[string]interface{}{
			"source": source,
			"delta":  delta.String(),
		}).Debug("scan finished")
		if w.onScan != nil {
			w.onScan(source, delta)
		}
	}
}

// reloaded reports whether the page behind the signals was replaced. A fresh
// document restarts its counters, so a counter going backwards counts too.
func reloaded(last, current Signals) bool {
	if current.Document != last.Document {
		return true
	}
	return current.Insertions < last.Insertions || current.Scrolls < last.Scrolls
}
