// internal/scraper/parser.go
package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/valpere/VidSieve/internal/pipeline"
	"github.com/valpere/VidSieve/internal/utils"
)

// initialDataMarkers are the assignments the feed page uses to embed its
// structured payload
var initialDataMarkers = []string{
	`var ytInitialData =`,
	`window["ytInitialData"] =`,
	`ytInitialData =`,
}

// skippedElements never contribute visible text
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
}

// ParseDocument builds a goquery document from raw markup
func ParseDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeMalformedData, "failed to parse HTML")
	}
	return doc, nil
}

// ParseContainer parses the outer HTML of a single container into a
// detached selection rooted at the container element
func ParseContainer(markup string) (*goquery.Selection, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeMalformedData, "failed to parse container")
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return goquery.NewDocumentFromNode(n).Selection, nil
		}
	}
	return nil, utils.NewError(utils.ErrCodeStructureNotFound, "container markup has no element")
}

// FindContainers returns the outermost item containers under root in
// document order. A container nested inside another container is part of
// its parent's item and is not returned separately.
func FindContainers(root *goquery.Selection) *goquery.Selection {
	return root.Find(ContainerSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(ContainerSelector).Length() == 0
	})
}

// VisibleText concatenates the rendered text of a selection, skipping
// non-rendered elements, with whitespace collapsed
func VisibleText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return pipeline.TextNormalization.MustApply(strings.Join(parts, " "))
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
		if _, hidden := attr(n, "hidden"); hidden {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ExtractInitialData locates the embedded structured payload in a page and
// decodes it. It returns STRUCTURE_NOT_FOUND when the page carries none.
func ExtractInitialData(markup string) (interface{}, error) {
	for _, marker := range initialDataMarkers {
		idx := strings.Index(markup, marker)
		if idx < 0 {
			continue
		}
		start := strings.IndexByte(markup[idx+len(marker):], '{')
		if start < 0 {
			continue
		}

		var payload interface{}
		decoder := json.NewDecoder(strings.NewReader(markup[idx+len(marker)+start:]))
		if err := decoder.Decode(&payload); err != nil {
			return nil, utils.WrapError(err, utils.ErrCodeMalformedData,
				fmt.Sprintf("failed to decode payload after %q", marker))
		}
		return payload, nil
	}
	return nil, utils.NewError(utils.ErrCodeStructureNotFound, "no embedded initial data found")
}
