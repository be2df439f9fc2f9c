// internal/browser/live.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/VidSieve/internal/engine"
	"github.com/valpere/VidSieve/internal/scraper"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/internal/watch"
)

// observerScript installs window.__vidsieve once per document and evaluates
// to it. It stamps container keys, counts insertion batches that carry a
// container and counts scroll events. Keys and signals carry a per-document
// id so a reloaded tab never reuses the keys of the previous document. Placeholders: container selector,
// key attribute, hidden style.
const observerScript = `(() => {
  if (window.__vidsieve) return window.__vidsieve;
  const sel = %[1]s;
  const attr = %[2]s;
  const doc = Date.now().toString(36) + Math.random().toString(36).slice(2, 6);
  const state = { next: 0, insertions: 0, scrolls: 0 };
  const outermost = () => Array.from(document.querySelectorAll(sel))
    .filter(el => !el.parentElement || !el.parentElement.closest(sel));
  const byKey = k => document.querySelector('[' + attr + '="' + k + '"]');
  const stamp = el => {
    if (!el.getAttribute(attr)) el.setAttribute(attr, doc + '-' + (++state.next));
    return el.getAttribute(attr);
  };
  new MutationObserver(records => {
    for (const r of records) {
      for (const n of r.addedNodes) {
        if (n.nodeType === 1 && (n.matches(sel) || n.querySelector(sel))) {
          state.insertions++;
          return;
        }
      }
    }
  }).observe(document.documentElement, { childList: true, subtree: true });
  window.addEventListener('scroll', () => { state.scrolls++; }, { passive: true });
  window.__vidsieve = {
    keys: () => outermost().map(stamp),
    count: () => outermost().length,
    resolve: keys => {
      const out = {};
      for (const k of keys) { const el = byKey(k); if (el) out[k] = el.outerHTML; }
      return out;
    },
    hide: keys => {
      let n = 0;
      for (const k of keys) {
        const el = byKey(k);
        if (!el) continue;
        if (el.dataset.vidsieveStyle === undefined) el.dataset.vidsieveStyle = el.getAttribute('style') || '';
        el.style.setProperty('display', 'none', 'important');
        el.setAttribute('hidden', '');
        n++;
      }
      return n;
    },
    show: keys => {
      for (const k of keys) {
        const el = byKey(k);
        if (!el) continue;
        el.removeAttribute('hidden');
        const orig = el.dataset.vidsieveStyle;
        if (orig) el.setAttribute('style', orig); else el.removeAttribute('style');
        delete el.dataset.vidsieveStyle;
      }
      return true;
    },
    signals: () => ({
      document: doc,
      insertions: state.insertions,
      scrolls: state.scrolls,
      location: location.pathname + location.search,
      count: outermost().length,
    }),
  };
  return window.__vidsieve;
})()`

// LivePage exposes a browser tab as an engine.Page and a watch.SignalSource
type LivePage struct {
	eval      Evaluator
	logger    utils.Logger
	installer string
}

var (
	_ engine.Page        = (*LivePage)(nil)
	_ watch.SignalSource = (*LivePage)(nil)
)

// NewLivePage wraps an evaluator, typically a ChromeClient
func NewLivePage(eval Evaluator, logger utils.Logger) *LivePage {
	return &LivePage{
		eval:      eval,
		logger:    utils.NewModuleLogger(logger, "live-page"),
		installer: fmt.Sprintf(observerScript, jsValue(scraper.ContainerSelector), jsValue(engine.KeyAttribute)),
	}
}

// Install injects the observer. Every other call installs it on demand, so
// this only makes the first scan cheaper.
func (p *LivePage) Install(ctx context.Context) error {
	return p.call(ctx, "count()", nil)
}

// Keys stamps and lists container keys
func (p *LivePage) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := p.call(ctx, "keys()", &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Resolve fetches and parses the requested containers
func (p *LivePage) Resolve(ctx context.Context, keys []string) (map[string]*goquery.Selection, error) {
	var markup map[string]string
	if err := p.call(ctx, "resolve("+jsKeys(keys)+")", &markup); err != nil {
		return nil, err
	}

	resolved := make(map[string]*goquery.Selection, len(markup))
	for key, outer := range markup {
		sel, err := scraper.ParseContainer(outer)
		if err != nil {
			p.logger.WithField("key", key).Warnf("skipping unparsable container: %v", err)
			continue
		}
		resolved[key] = sel
	}
	return resolved, nil
}

// Hide hides containers in the tab
func (p *LivePage) Hide(ctx context.Context, keys []string) error {
	var hidden int
	if err := p.call(ctx, "hide("+jsKeys(keys)+")", &hidden); err != nil {
		return err
	}
	if hidden < len(keys) {
		return utils.NewError(utils.ErrCodeStructureNotFound,
			fmt.Sprintf("%d of %d containers vanished before hide", len(keys)-hidden, len(keys)))
	}
	return nil
}

// Show restores hidden containers
func (p *LivePage) Show(ctx context.Context, keys []string) error {
	return p.call(ctx, "show("+jsKeys(keys)+")", nil)
}

// Count returns the number of containers
func (p *LivePage) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.call(ctx, "count()", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Signals reads the observer counters
func (p *LivePage) Signals(ctx context.Context) (watch.Signals, error) {
	var s watch.Signals
	err := p.call(ctx, "signals()", &s)
	return s, err
}

func (p *LivePage) call(ctx context.Context, method string, res interface{}) error {
	return p.eval.Evaluate(ctx, "("+p.installer+")."+method, res)
}

// jsValue renders v as a JavaScript literal
func jsValue(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func jsKeys(keys []string) string {
	if keys == nil {
		keys = []string{}
	}
	return jsValue(keys)
}
