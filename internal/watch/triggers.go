// internal/watch/triggers.go
package watch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/valpere/VidSieve/internal/scraper"
)

// Trigger sources, used in logs and metrics
const (
	SourceInitial    = "initial"
	SourceMutation   = "mutation"
	SourceScroll     = "scroll"
	SourceNavigation = "navigation"
	SourceReload     = "reload"
)

// Counter reports the current number of containers
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// MutationTrigger schedules a scan once insertions of containers settle
type MutationTrigger struct {
	debouncer *Debouncer
}

// NewMutationTrigger creates a mutation trigger calling scan after delay
func NewMutationTrigger(delay time.Duration, scan func()) *MutationTrigger {
	return &MutationTrigger{debouncer: NewDebouncer(delay, scan)}
}

// Notify inspects one batch of inserted nodes and schedules a scan when any
// of them is or contains a container. It reports whether the batch
// qualified.
func (m *MutationTrigger) Notify(added []*html.Node) bool {
	for _, n := range added {
		if scraper.IsOrContainsContainer(n) {
			m.debouncer.Trigger()
			return true
		}
	}
	return false
}

// NotifyQualified schedules a scan for a batch the source already checked
func (m *MutationTrigger) NotifyQualified() {
	m.debouncer.Trigger()
}

// Stop cancels any pending scan
func (m *MutationTrigger) Stop() {
	m.debouncer.Stop()
}

// ScrollTrigger scans after scrolling settles, and only when the number of
// containers grew since the last check
type ScrollTrigger struct {
	debouncer *Debouncer
	counter   Counter
	scan      func()

	ctx       context.Context
	mu        sync.Mutex
	lastCount int
}

// NewScrollTrigger creates a scroll trigger
func NewScrollTrigger(ctx context.Context, delay time.Duration, counter Counter, scan func()) *ScrollTrigger {
	s := &ScrollTrigger{counter: counter, scan: scan, ctx: ctx}
	s.debouncer = NewDebouncer(delay, s.fire)
	return s
}

// Prime records the count the next comparison starts from
func (s *ScrollTrigger) Prime(count int) {
	s.mu.Lock()
	s.lastCount = count
	s.mu.Unlock()
}

// OnScroll handles one scroll event
func (s *ScrollTrigger) OnScroll() {
	s.debouncer.Trigger()
}

// Stop cancels any pending check
func (s *ScrollTrigger) Stop() {
	s.debouncer.Stop()
}

func (s *ScrollTrigger) fire() {
	count, err := s.counter.Count(s.ctx)
	if err != nil {
		return
	}

	s.mu.Lock()
	grew := count > s.lastCount
	s.lastCount = count
	s.mu.Unlock()

	if grew {
		s.scan()
	}
}

// NavigationTrigger schedules a scan when the page location changes. The
// site navigates without reloading, so the location has to be polled.
type NavigationTrigger struct {
	debouncer *Debouncer

	mu       sync.Mutex
	location string
	seen     bool
}

// NewNavigationTrigger creates a navigation trigger calling scan after delay
func NewNavigationTrigger(delay time.Duration, scan func()) *NavigationTrigger {
	return &NavigationTrigger{debouncer: NewDebouncer(delay, scan)}
}

// Check compares location with the last one seen and schedules a scan on
// change. The first location only sets the baseline.
func (n *NavigationTrigger) Check(location string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.seen {
		n.location = location
		n.seen = true
		return false
	}
	if location == n.location {
		return false
	}
	n.location = location
	n.debouncer.Trigger()
	return true
}

// Location returns the last location seen
func (n *NavigationTrigger) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Stop cancels any pending scan
func (n *NavigationTrigger) Stop() {
	n.debouncer.Stop()
}
