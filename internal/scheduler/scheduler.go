// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/utils"
)

// DatePlaceholder in a report path is replaced by the run time
const DatePlaceholder = "{date}"

// ReportConfig describes one periodic export
type ReportConfig struct {
	Schedule string
	Path     string
	Format   output.OutputFormat
}

// RunResult describes the last report run
type RunResult struct {
	Path     string        `json:"path"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Scheduler exports the store on a cron schedule. Overlapping runs are
// skipped.
type Scheduler struct {
	config ReportConfig
	store  output.Store
	logger utils.Logger
	cron   *cron.Cron
	now    func() time.Time

	mu   sync.Mutex
	last *RunResult
	runs int
}

// New validates the schedule and prepares the cron runner
func New(config ReportConfig, store output.Store, logger utils.Logger) (*Scheduler, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("report path is required")
	}
	s := &Scheduler{
		config: config,
		store:  store,
		logger: utils.NewModuleLogger(logger, "scheduler"),
		now:    time.Now,
	}

	cronLogger := cronLogAdapter{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(config.Schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled and waits for a running
// report to finish
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.WithField("schedule", s.config.Schedule).Info("report scheduler started")
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("report scheduler stopped")
	return nil
}

// RunOnce exports the store immediately
func (s *Scheduler) RunOnce(ctx context.Context) error {
	started := s.now()
	path := s.resolvePath(started)

	err := output.ExportFile(ctx, s.store, s.config.Format, path)

	result := &RunResult{Path: path, Started: started, Duration: s.now().Sub(started)}
	if err != nil {
		result.Error = err.Error()
		s.logger.WithFields(map[string]interface{}{"path": path, "error": err.Error()}).Error("report failed")
	} else {
		s.logger.WithField("path", path).Info("report written")
	}

	s.mu.Lock()
	s.last = result
	s.runs++
	s.mu.Unlock()
	return err
}

// LastRun returns the most recent result, or nil before the first run
func (s *Scheduler) LastRun() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	result := *s.last
	return &result
}

// Runs returns how many reports were attempted
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Next returns the next scheduled run time
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(s.now())
}

func (s *Scheduler) resolvePath(at time.Time) string {
	return strings.ReplaceAll(s.config.Path, DatePlaceholder, at.UTC().Format("20060102-150405"))
}

// cronLogAdapter routes cron's key/value logging through utils.Logger
type cronLogAdapter struct {
	logger utils.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	a.logger.WithFields(fields).Error(msg)
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
