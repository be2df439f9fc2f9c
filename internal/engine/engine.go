// internal/engine/engine.go
package engine

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/valpere/VidSieve/internal/filter"
	"github.com/valpere/VidSieve/internal/scraper"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// ErrNotInitialized is returned by scans on an engine that was never
// initialized or was destroyed
var ErrNotInitialized = utils.NewError(utils.ErrCodeNotInitialized, "engine not initialized")

// Recorder receives history entries and stats deltas. Calls must not block
// on persistence.
type Recorder interface {
	RecordHistory(entry types.HistoryEntry)
	RecordStats(delta types.StatsDelta)
}

// Observer receives scan measurements
type Observer interface {
	ScanCompleted(elapsed time.Duration, evaluated int)
	ItemFiltered(reason types.Reason)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger utils.Logger) Option {
	return func(e *Engine) { e.logger = utils.NewModuleLogger(logger, "engine") }
}

// WithExtractor replaces the default extractor
func WithExtractor(extractor *scraper.Extractor) Option {
	return func(e *Engine) { e.extractor = extractor }
}

// WithRecorder sets where history and stats go
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithObserver sets the metrics observer
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observer = observer }
}

// WithClock overrides the history timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs scan passes over a Page. Passes are serialised: a pass
// enumerates, evaluates and tags without another pass interleaving, so
// triggers may fire as often as they like.
type Engine struct {
	page      Page
	extractor *scraper.Extractor
	recorder  Recorder
	observer  Observer
	logger    utils.Logger
	now       func() time.Time

	// scanMu serialises passes and guards registry and emptyWarned
	scanMu      sync.Mutex
	registry    *Registry
	emptyWarned bool

	mu          sync.RWMutex
	settings    types.Settings
	generation  uint64
	totals      types.StatsDelta
	initialized bool
}

// New creates an engine over page
func New(page Page, opts ...Option) *Engine {
	e := &Engine{
		page:     page,
		registry: NewRegistry(),
		logger:   utils.NewModuleLogger(utils.NopLogger(), "engine"),
		now:      time.Now,
		settings: types.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = scraper.NewExtractor(scraper.ExtractorConfig{Logger: e.logger})
	}
	return e
}

// Initialize installs the first settings snapshot and enables scanning
func (e *Engine) Initialize(ctx context.Context, settings types.Settings) error {
	if e.page == nil {
		return utils.NewError(utils.ErrCodeInvalidConfig, "engine has no page")
	}

	e.mu.Lock()
	e.settings = settings.Normalize()
	e.generation++
	e.initialized = true
	e.mu.Unlock()

	e.logger.WithField("active", filter.Active(settings)).Info("engine initialized")
	return nil
}

// UpdateSettings replaces the settings used by subsequent passes. Items
// already filtered stay filtered; items that passed are re-evaluated.
func (e *Engine) UpdateSettings(settings types.Settings) {
	settings = settings.Normalize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if reflect.DeepEqual(settings, e.settings) {
		return
	}
	e.settings = settings
	e.generation++
	e.logger.WithField("generation", e.generation).Info("settings updated")
}

// Settings returns a copy of the current settings
func (e *Engine) Settings() types.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Clone()
}

// Totals returns the running sum of all deltas
func (e *Engine) Totals() types.StatsDelta {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totals
}

// Initialized reports whether the engine accepts scans
func (e *Engine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

func (e *Engine) snapshot() (types.Settings, uint64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings.Clone(), e.generation, e.initialized
}

// RunFilters performs one scan pass and returns what it filtered. A pass
// with no undecided containers, or with every filter off, does no work
// beyond enumeration and returns a zero delta.
func (e *Engine) RunFilters(ctx context.Context) (types.StatsDelta, error) {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	var delta types.StatsDelta
	settings, generation, initialized := e.snapshot()
	if !initialized {
		return delta, ErrNotInitialized
	}

	start := time.Now()
	keys, err := e.page.Keys(ctx)
	if err != nil {
		return delta, err
	}
	if len(keys) == 0 {
		// warn once per empty streak; a changed page layout keeps every pass empty
		if !e.emptyWarned {
			e.logger.Warn("no containers on page, selectors may be out of date")
			e.emptyWarned = true
		}
		return delta, nil
	}
	e.emptyWarned = false
	if dropped := e.registry.Retain(keys); dropped > 0 {
		e.logger.WithField("dropped", dropped).Debug("pruned tags of removed containers")
	}

	if !filter.Active(settings) {
		return delta, nil
	}

	var undecided []string
	for _, key := range keys {
		if !e.registry.Decided(key, generation) {
			undecided = append(undecided, key)
		}
	}
	if len(undecided) == 0 {
		return delta, nil
	}

	containers, err := e.page.Resolve(ctx, undecided)
	if err != nil {
		return delta, err
	}

	var hide []string
	var history []types.HistoryEntry
	evaluated := 0
	for _, key := range undecided {
		container, ok := containers[key]
		if !ok {
			continue
		}
		evaluated++

		record := e.extractor.Extract(container)
		decision, filtered := filter.Evaluate(record, settings)
		if !filtered {
			e.registry.MarkPassed(key, generation)
			continue
		}

		e.registry.MarkFiltered(key, decision.Reason)
		delta.Increment(decision.Reason)
		hide = append(hide, key)
		history = append(history, types.NewHistoryEntry(historyTitle(record), decision.Details, e.now()))
		if e.observer != nil {
			e.observer.ItemFiltered(decision.Reason)
		}
		e.logger.WithFields(map[string]interface{}{
			"key":    key,
			"reason": decision.Reason,
		}).Debugf("filtered %q: %s", record.Title, decision.Details)
	}

	if len(hide) > 0 {
		if err := e.page.Hide(ctx, hide); err != nil {
			e.logger.Warnf("hide failed, decisions kept: %v", err)
		}
	}

	e.publish(history, delta)
	if e.observer != nil {
		e.observer.ScanCompleted(time.Since(start), evaluated)
	}
	if !delta.IsZero() {
		e.logger.WithField("delta", delta.String()).Info("scan filtered items")
	}
	return delta, nil
}

func (e *Engine) publish(history []types.HistoryEntry, delta types.StatsDelta) {
	if delta.IsZero() {
		return
	}

	e.mu.Lock()
	e.totals.Add(delta)
	e.mu.Unlock()

	if e.recorder == nil {
		return
	}
	for _, entry := range history {
		e.recorder.RecordHistory(entry)
	}
	e.recorder.RecordStats(delta)
}

// Destroy shows every container this engine hid and stops scanning
func (e *Engine) Destroy(ctx context.Context) error {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	e.mu.Lock()
	e.initialized = false
	e.mu.Unlock()

	hidden := e.registry.Filtered()
	e.registry.Reset()
	if len(hidden) == 0 {
		return nil
	}
	if err := e.page.Show(ctx, hidden); err != nil {
		return utils.WrapError(err, utils.ErrCodeInternal, "failed to restore hidden containers")
	}
	e.logger.WithField("restored", len(hidden)).Info("engine destroyed")
	return nil
}

func historyTitle(record types.VideoRecord) string {
	if record.Title == "" {
		return "Unknown title"
	}
	return record.Title
}
