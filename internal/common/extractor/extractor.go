package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// Strategy turns one candidate container into a candidate posting, or nil.
// Strategies only read from the container and page.
type Strategy interface {
	Name() string
	Extract(el fetcher.Element, page *PageContext) *domain.Candidate
}

// PageContext is read once per listing page and shared by all containers on it
type PageContext struct {
	URL     string
	Text    string
	Headers []string // folded header cells of the first table with headers
}

// NewPageContext reads the current markup of s
func NewPageContext(ctx context.Context, s fetcher.Session) (*PageContext, error) {
	markup, err := s.Markup(ctx)
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}
	return PageContextFromMarkup(s.URL(), markup)
}

// PageContextFromMarkup builds a page context from raw markup
func PageContextFromMarkup(url, markup string) (*PageContext, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &PageContext{URL: url}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	page.Text = fetcher.BlockText(body)

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		ths := table.Find("th")
		if ths.Length() == 0 {
			return true
		}
		ths.Each(func(_ int, th *goquery.Selection) {
			page.Headers = append(page.Headers, region.Fold(th.Text()))
		})
		return false
	})
	return page, nil
}

// Result is a candidate that passed the title rule and region classification
type Result struct {
	Candidate domain.Candidate
	Region    region.Result
}

// Extractor tries its strategies in order; the first one producing a valid
// title inside the target region wins.
type Extractor struct {
	strategies []Strategy
	classifier *region.Classifier
}

// New creates an extractor with the card, table, list and semantic strategies
func New(classifier *region.Classifier) *Extractor {
	return &Extractor{
		strategies: []Strategy{
			CardStrategy{},
			TableStrategy{},
			ListStrategy{classifier: classifier},
			SemanticStrategy{classifier: classifier},
		},
		classifier: classifier,
	}
}

// Extract runs the strategy cascade over one container. A nil result is the
// normal outcome for boilerplate containers.
func (e *Extractor) Extract(el fetcher.Element, page *PageContext) *Result {
	if page == nil {
		page = &PageContext{}
	}
	for _, s := range e.strategies {
		cand := s.Extract(el, page)
		if cand == nil || !IsValidTitle(cand.Title) {
			continue
		}
		res, ok := e.classify(cand, el)
		if !ok {
			continue
		}
		cand.Method = s.Name()
		if cand.Link != "" {
			cand.Link = fetcher.Resolve(page.URL, cand.Link)
		}
		return &Result{Candidate: *cand, Region: res}
	}
	return nil
}

// ScanText runs the semantic patterns across a whole page text. It is used
// when a page exposes no candidate containers at all.
func (e *Extractor) ScanText(page *PageContext) []Result {
	var out []Result
	seen := make(map[string]bool)
	for _, m := range semanticMatches(page.Text) {
		if !IsValidTitle(m.title) {
			continue
		}
		key := region.Fold(m.title)
		if seen[key] {
			continue
		}
		res := e.classifier.Classify(m.window)
		if !res.IsRegion {
			continue
		}
		seen[key] = true
		out = append(out, Result{
			Candidate: domain.Candidate{
				Title:    m.title,
				Location: res.RawMatch,
				Method:   SemanticStrategy{}.Name(),
			},
			Region: res,
		})
	}
	return out
}

// classify prefers the candidate's own location text. Without one, the
// whole container text is tried.
func (e *Extractor) classify(cand *domain.Candidate, el fetcher.Element) (region.Result, bool) {
	if cand.Location != "" {
		res := e.classifier.Classify(cand.Location)
		return res, res.IsRegion
	}
	text := el.Text()
	res := e.classifier.Classify(text)
	if res.IsRegion {
		cand.Location = MatchedLine(text, e.classifier)
	}
	return res, res.IsRegion
}

// MatchedLine returns the first line of text that classifies on its own,
// falling back to the first line.
func MatchedLine(text string, c *region.Classifier) string {
	for _, line := range strings.Split(text, "\n") {
		if c.Classify(line).IsRegion {
			return strings.TrimSpace(line)
		}
	}
	return firstLine(text)
}
