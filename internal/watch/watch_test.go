// internal/watch/watch_test.go
package watch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/valpere/VidSieve/pkg/types"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	var calls int32
	d := NewDebouncer(30*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 call, got %d", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var calls int32
	d := NewDebouncer(20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	d.Trigger()
	d.Stop()
	d.Trigger()

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("stopped debouncer fired %d times", got)
	}
}

func parseNodes(t *testing.T, markup string) []*html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		t.Fatalf("failed to parse fragment: %v", err)
	}
	return nodes
}

func TestMutationTrigger_Notify(t *testing.T) {
	var calls int32
	m := NewMutationTrigger(20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	defer m.Stop()

	if m.Notify(parseNodes(t, `<div class="spinner"></div><p>text</p>`)) {
		t.Error("batch without containers should not qualify")
	}
	if !m.Notify(parseNodes(t, `<div id="batch"><ytd-rich-item-renderer></ytd-rich-item-renderer></div>`)) {
		t.Error("batch wrapping a container should qualify")
	}
	if !m.Notify(parseNodes(t, `<yt-lockup-view-model></yt-lockup-view-model>`)) {
		t.Error("container itself should qualify")
	}

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
}

type fakeCounter struct {
	mu    sync.Mutex
	count int
}

func (c *fakeCounter) set(n int) {
	c.mu.Lock()
	c.count = n
	c.mu.Unlock()
}

func (c *fakeCounter) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, nil
}

func TestScrollTrigger_OnlyWhenCountGrows(t *testing.T) {
	var calls int32
	counter := &fakeCounter{count: 10}
	s := NewScrollTrigger(context.Background(), 10*time.Millisecond, counter, func() { atomic.AddInt32(&calls, 1) })
	defer s.Stop()
	s.Prime(10)

	s.OnScroll()
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("scroll without new content scanned %d times", got)
	}

	counter.set(14)
	s.OnScroll()
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })

	s.OnScroll()
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("count unchanged since last scan, expected 1 call, got %d", got)
	}
}

func TestNavigationTrigger_Check(t *testing.T) {
	var calls int32
	n := NewNavigationTrigger(10*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	defer n.Stop()

	if n.Check("/feed/subscriptions") {
		t.Error("first location is only the baseline")
	}
	if n.Check("/feed/subscriptions") {
		t.Error("same location is not a navigation")
	}
	if !n.Check("/results?search_query=go") {
		t.Error("changed location should schedule a scan")
	}
	if n.Location() != "/results?search_query=go" {
		t.Errorf("unexpected location %q", n.Location())
	}

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
}

type fakeSource struct {
	fakeCounter
	signals Signals
}

func (s *fakeSource) update(fn func(*Signals)) {
	s.mu.Lock()
	fn(&s.signals)
	s.mu.Unlock()
}

func (s *fakeSource) Signals(ctx context.Context) (Signals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := s.signals
	sig.Count = s.count
	return sig, nil
}

type recordingScanner struct {
	mu      sync.Mutex
	sources []string
}

func (r *recordingScanner) RunFilters(ctx context.Context) (types.StatsDelta, error) {
	return types.StatsDelta{Views: 1, Total: 1}, nil
}

func (r *recordingScanner) TriggerFired(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

func (r *recordingScanner) fired(source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sources {
		if s == source {
			return true
		}
	}
	return false
}

func TestWatcher_Run(t *testing.T) {
	source := &fakeSource{signals: Signals{Location: "/"}}
	scanner := &recordingScanner{}
	var callbacks int32

	config := Config{
		MutationDebounce: 10 * time.Millisecond,
		ScrollDebounce:   10 * time.Millisecond,
		NavigationDelay:  20 * time.Millisecond,
		InitialDelay:     10 * time.Millisecond,
		PollRate:         200,
	}
	w := NewWatcher(source, scanner, config, nil,
		WithTriggerObserver(scanner),
		WithScanCallback(func(string, types.StatsDelta) { atomic.AddInt32(&callbacks, 1) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return scanner.fired(SourceInitial) })

	source.update(func(s *Signals) { s.Insertions++ })
	waitFor(t, time.Second, func() bool { return scanner.fired(SourceMutation) })

	source.set(5)
	source.update(func(s *Signals) { s.Scrolls++ })
	waitFor(t, time.Second, func() bool { return scanner.fired(SourceScroll) })

	source.update(func(s *Signals) { s.Location = "/watch?v=x" })
	waitFor(t, time.Second, func() bool { return scanner.fired(SourceNavigation) })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v after cancel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := atomic.LoadInt32(&callbacks); got < 4 {
		t.Errorf("expected scan callbacks for each trigger, got %d", got)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{ScrollDebounce: time.Second}.withDefaults()
	if c.ScrollDebounce != time.Second {
		t.Error("explicit value should be kept")
	}
	if c.MutationDebounce != DefaultMutationDebounce || c.PollRate != DefaultPollRate {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestReloaded(t *testing.T) {
	base := Signals{Document: "d1", Insertions: 4, Scrolls: 9, Location: "/feed"}
	tests := []struct {
		name     string
		current  Signals
		expected bool
	}{
		{"unchanged", base, false},
		{"counters grow", Signals{Document: "d1", Insertions: 5, Scrolls: 10, Location: "/feed"}, false},
		{"new document", Signals{Document: "d2", Insertions: 4, Scrolls: 9, Location: "/feed"}, true},
		{"insertions restart", Signals{Document: "d1", Insertions: 0, Scrolls: 9, Location: "/feed"}, true},
		{"scrolls restart", Signals{Document: "d1", Insertions: 4, Scrolls: 0, Location: "/feed"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reloaded(base, tt.current); got != tt.expected {
				t.Errorf("reloaded() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWatcher_RunAfterReload(t *testing.T) {
	source := &fakeSource{signals: Signals{Document: "d1", Insertions: 5, Scrolls: 4, Location: "/feed"}}
	scanner := &recordingScanner{}
	config := Config{
		MutationDebounce: 10 * time.Millisecond,
		ScrollDebounce:   10 * time.Millisecond,
		NavigationDelay:  20 * time.Millisecond,
		InitialDelay:     10 * time.Millisecond,
		PollRate:         200,
	}
	w := NewWatcher(source, scanner, config, nil, WithTriggerObserver(scanner))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	waitFor(t, time.Second, func() bool { return scanner.fired(SourceInitial) })

	// same location, fresh document with its counters back at zero
	source.update(func(s *Signals) {
		s.Document = "d2"
		s.Insertions = 0
		s.Scrolls = 0
	})
	waitFor(t, time.Second, func() bool { return scanner.fired(SourceReload) })
	if scanner.fired(SourceNavigation) {
		t.Error("a reload at the same location is not a navigation")
	}

	source.update(func(s *Signals) { s.Insertions++ })
	waitFor(t, time.Second, func() bool { return scanner.fired(SourceMutation) })
}
