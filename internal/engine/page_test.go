// internal/engine/page_test.go
package engine

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/valpere/VidSieve/internal/scraper"
)

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func TestDocumentPage_KeysAreStable(t *testing.T) {
	page := feedPage(t, card("a", "One", "1 view"), card("b", "Two", "2 views"))
	ctx := context.Background()

	first, err := page.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	second, _ := page.Keys(ctx)

	if len(first) != 2 || first[0] != "k1" || first[1] != "k2" {
		t.Fatalf("unexpected keys %v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("key %d changed from %s to %s", i, first[i], second[i])
		}
	}
	if n, _ := page.Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestDocumentPage_HideShowRestoresStyle(t *testing.T) {
	page, err := NewDocumentPageFromHTML(`<html><body>
		<ytd-video-renderer style="color: red"><span>x</span></ytd-video-renderer>
	</body></html>`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ctx := context.Background()
	keys, _ := page.Keys(ctx)

	if err := page.Hide(ctx, keys); err != nil {
		t.Fatalf("Hide failed: %v", err)
	}
	if !page.IsHidden(keys[0]) {
		t.Fatal("container should be hidden")
	}
	if got := page.find(keys[0]).AttrOr("style", ""); got != HiddenStyle {
		t.Errorf("style = %q, want %q", got, HiddenStyle)
	}

	if err := page.Show(ctx, keys); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if got := page.find(keys[0]).AttrOr("style", ""); got != "color: red" {
		t.Errorf("original style not restored, got %q", got)
	}
	if page.IsHidden(keys[0]) {
		t.Error("hidden attribute should be removed")
	}
}

func TestDocumentPage_HideMissingKey(t *testing.T) {
	page := feedPage(t)
	if err := page.Hide(context.Background(), []string{"k99"}); err == nil {
		t.Error("expected error for vanished container")
	}
}

func TestDocumentPage_ResolveIsDetached(t *testing.T) {
	page := feedPage(t, card("a", "One", "1 view"))
	ctx := context.Background()
	keys, _ := page.Keys(ctx)

	resolved, err := page.Resolve(ctx, append(keys, "k404"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved container, got %d", len(resolved))
	}

	resolved[keys[0]].SetAttr("data-touched", "yes")
	if _, ok := page.find(keys[0]).Attr("data-touched"); ok {
		t.Error("resolved container must be a copy")
	}
}

func TestDocumentPage_Append(t *testing.T) {
	page := feedPage(t)
	nodes, err := page.Append("#contents", card("n", "New", "5 views")+"<p>footer</p>")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	qualifying := 0
	for _, n := range nodes {
		if scraper.IsOrContainsContainer(n) {
			qualifying++
		}
	}
	if qualifying != 1 {
		t.Errorf("expected 1 qualifying node, got %d of %d", qualifying, len(nodes))
	}
	if n, _ := page.Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d after append, want 1", n)
	}

	if _, err := page.Append("#missing", "<div></div>"); err == nil {
		t.Error("expected error for missing parent")
	}
}
