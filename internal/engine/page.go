// internal/engine/page.go
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/valpere/VidSieve/internal/scraper"
	"github.com/valpere/VidSieve/internal/utils"
)

// KeyAttribute carries the per-instance container key on pages that can
// hold attributes
const KeyAttribute = "data-vidsieve-key"

// styleAttribute keeps a container's original inline style while hidden
const styleAttribute = "data-vidsieve-style"

// HiddenStyle is the inline style applied to hidden containers
const HiddenStyle = "display: none !important"

// Page is the rendered feed as the engine sees it. Keys are stable for the
// lifetime of a container instance; a re-rendered container gets a new key.
type Page interface {
	// Keys enumerates current containers in document order
	Keys(ctx context.Context) ([]string, error)
	// Resolve returns the container subtree for each key still present
	Resolve(ctx context.Context, keys []string) (map[string]*goquery.Selection, error)
	Hide(ctx context.Context, keys []string) error
	Show(ctx context.Context, keys []string) error
	// Count returns the current number of containers
	Count(ctx context.Context) (int, error)
}

// DocumentPage is a Page over an in-memory HTML document
type DocumentPage struct {
	mu      sync.Mutex
	doc     *goquery.Document
	nextKey int
}

// NewDocumentPage wraps a parsed document
func NewDocumentPage(doc *goquery.Document) *DocumentPage {
	return &DocumentPage{doc: doc}
}

// NewDocumentPageFromHTML parses markup into a DocumentPage
func NewDocumentPageFromHTML(markup string) (*DocumentPage, error) {
	doc, err := scraper.ParseDocument(markup)
	if err != nil {
		return nil, err
	}
	return NewDocumentPage(doc), nil
}

// Keys stamps unkeyed containers and returns every container key
func (p *DocumentPage) Keys(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	containers := scraper.FindContainers(p.doc.Selection)
	keys := make([]string, 0, containers.Length())
	containers.Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr(KeyAttribute)
		if !ok || key == "" {
			p.nextKey++
			key = "k" + strconv.Itoa(p.nextKey)
			s.SetAttr(KeyAttribute, key)
		}
		keys = append(keys, key)
	})
	return keys, nil
}

// Resolve returns detached copies of the requested containers, so callers
// can read them while the document keeps changing
func (p *DocumentPage) Resolve(ctx context.Context, keys []string) (map[string]*goquery.Selection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	resolved := make(map[string]*goquery.Selection, len(keys))
	for _, key := range keys {
		sel := p.find(key)
		if sel.Length() == 0 {
			continue
		}
		clone := cloneNode(sel.Get(0))
		resolved[key] = goquery.NewDocumentFromNode(clone).Selection
	}
	return resolved, nil
}

// Hide applies the hidden style and attribute
func (p *DocumentPage) Hide(ctx context.Context, keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var missing []string
	for _, key := range keys {
		sel := p.find(key)
		if sel.Length() == 0 {
			missing = append(missing, key)
			continue
		}
		if _, saved := sel.Attr(styleAttribute); !saved {
			sel.SetAttr(styleAttribute, sel.AttrOr("style", ""))
		}
		sel.SetAttr("style", HiddenStyle)
		sel.SetAttr("hidden", "")
	}
	if len(missing) > 0 {
		return utils.NewError(utils.ErrCodeStructureNotFound,
			fmt.Sprintf("containers vanished before hide: %s", strings.Join(missing, ",")))
	}
	return nil
}

// Show restores containers hidden by Hide
func (p *DocumentPage) Show(ctx context.Context, keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range keys {
		sel := p.find(key)
		if sel.Length() == 0 {
			continue
		}
		sel.RemoveAttr("hidden")
		original, saved := sel.Attr(styleAttribute)
		switch {
		case !saved:
		case original == "":
			sel.RemoveAttr("style")
		default:
			sel.SetAttr("style", original)
		}
		sel.RemoveAttr(styleAttribute)
	}
	return nil
}

// Count returns the number of containers
func (p *DocumentPage) Count(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return scraper.FindContainers(p.doc.Selection).Length(), nil
}

// Append parses markup as children of the first element matching
// parentSelector and returns the inserted top-level nodes
func (p *DocumentPage) Append(parentSelector, markup string) ([]*html.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	parent := p.doc.Find(parentSelector).First()
	if parent.Length() == 0 {
		return nil, utils.NewError(utils.ErrCodeStructureNotFound,
			fmt.Sprintf("no element matches %q", parentSelector))
	}
	target := parent.Get(0)

	nodes, err := html.ParseFragment(strings.NewReader(markup), target)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeMalformedData, "failed to parse fragment")
	}
	for _, n := range nodes {
		target.AppendChild(n)
	}
	return nodes, nil
}

// IsHidden reports whether the container with key is hidden
func (p *DocumentPage) IsHidden(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, hidden := p.find(key).Attr("hidden")
	return hidden
}

// HTML renders the current document
func (p *DocumentPage) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Html()
}

func (p *DocumentPage) find(key string) *goquery.Selection {
	return p.doc.Find(fmt.Sprintf(`[%s=%q]`, KeyAttribute, key)).First()
}

func cloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}
	return clone
}
