package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a markup-only session over an already fetched page.
// It never scrolls, clicks or waits: absent elements are reported immediately.
type Document struct {
	url    string
	markup string
	doc    *goquery.Document
}

// NewDocument parses markup into a session
func NewDocument(url, markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{url: url, markup: markup, doc: doc}, nil
}

func (d *Document) URL() string { return d.url }

func (d *Document) Markup(ctx context.Context) (string, error) { return d.markup, nil }

// Scroll is a no-op: static markup has nothing more to load
func (d *Document) Scroll(ctx context.Context) error { return nil }

func (d *Document) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return wrapSelection(d.doc.Find(selector)), nil
}

func (d *Document) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	sel := d.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, ErrWaitTimeout
	}
	return &docElement{sel: sel.First()}, nil
}

func (d *Document) Navigate(ctx context.Context, url string) error { return ErrNotInteractive }

func (d *Document) Close() error { return nil }

// Selection exposes the parsed document for callers that need raw goquery access
func (d *Document) Selection() *goquery.Selection { return d.doc.Selection }

func wrapSelection(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &docElement{sel: s})
	})
	return out
}

// docElement is a goquery-backed element
type docElement struct {
	sel *goquery.Selection
}

func (e *docElement) Text() string { return BlockText(e.sel) }

func (e *docElement) Attr(name string) (string, bool) { return e.sel.Attr(name) }

func (e *docElement) HTML() string {
	h, err := goquery.OuterHtml(e.sel)
	if err != nil {
		return ""
	}
	return h
}

func (e *docElement) Find(selector string) []Element { return wrapSelection(e.sel.Find(selector)) }

func (e *docElement) Visible(ctx context.Context) bool {
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		if v, _ := s.Attr("aria-hidden"); v == "true" {
			return false
		}
		style, _ := s.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func (e *docElement) Enabled(ctx context.Context) bool {
	if _, ok := e.sel.Attr("disabled"); ok {
		return false
	}
	if v, _ := e.sel.Attr("aria-disabled"); v == "true" {
		return false
	}
	return !e.sel.HasClass("disabled")
}

func (e *docElement) Click(ctx context.Context) error { return ErrNotInteractive }

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "section": true, "article": true, "header": true,
	"footer": true, "dd": true, "dt": true,
}

// BlockText returns the text of sel with a line break after every block
// element, so callers can split it into lines.
func BlockText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch {
			case blockTags[n.Data]:
				b.WriteByte('\n')
			case n.Data == "td" || n.Data == "th":
				b.WriteByte(' ')
			}
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
