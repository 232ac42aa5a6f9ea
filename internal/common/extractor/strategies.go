package extractor

import (
	"regexp"
	"strings"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

var (
	cardTitleSelectors = []string{
		"[data-testid*='title']", ".job-title", ".vacancy-title", ".titulo",
		"[class*='job-title']", "[class*='jobTitle']", "[class*='title']",
		"h2", "h3", "h4", "a[href]",
	}
	cardLocationSelectors = []string{
		"[data-testid*='location']", ".location", ".job-location",
		"[class*='location']", "[class*='localizacao']", "[class*='local']",
		"[class*='cidade']", "[class*='city']", ".address", "address",
	}
	cardCompanySelectors  = []string{"[class*='company']", "[class*='empresa']"}
	cardDateSelectors     = []string{"time", "[class*='date']", "[class*='posted']", "[class*='publicad']"}
	cardSalarySelectors   = []string{"[class*='salary']", "[class*='salario']", "[class*='remuneracao']"}
	cardContractSelectors = []string{"[class*='contract']", "[class*='contrato']", "[class*='regime']"}
)

// CardStrategy reads title, location and friends from well-known sub-elements
type CardStrategy struct{}

func (CardStrategy) Name() string { return "card" }

func (CardStrategy) Extract(el fetcher.Element, page *PageContext) *domain.Candidate {
	title := ""
	for _, sel := range cardTitleSelectors {
		for _, t := range el.Find(sel) {
			if line := firstLine(t.Text()); IsValidTitle(line) {
				title = line
				break
			}
		}
		if title != "" {
			break
		}
	}
	if title == "" {
		return nil
	}

	return &domain.Candidate{
		Title:    title,
		Location: firstText(el, cardLocationSelectors),
		Company:  firstText(el, cardCompanySelectors),
		Date:     firstText(el, cardDateSelectors),
		Salary:   firstText(el, cardSalarySelectors),
		Contract: firstText(el, cardContractSelectors),
		Link:     linkOf(el),
	}
}

// TableStrategy maps row cells to fields using the page's header names, or
// by position when headers are missing or unrecognised.
type TableStrategy struct{}

func (TableStrategy) Name() string { return "table" }

var headerAliases = map[string][]string{
	"title":    {"cargo", "vaga", "titulo", "title", "position", "oportunidade", "funcao", "job"},
	"location": {"local", "cidade", "city", "location", "unidade", "municipio"},
	"contract": {"contrato", "tipo", "regime", "contract", "modalidade"},
}

func (TableStrategy) Extract(el fetcher.Element, page *PageContext) *domain.Candidate {
	cells := el.Find("td")
	if len(cells) == 0 {
		return nil
	}
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = firstLine(c.Text())
	}

	idx := map[string]int{"title": 0, "location": 1, "contract": 2}
	if len(page.Headers) == len(texts) {
		for field, aliases := range headerAliases {
			if i := headerIndex(page.Headers, aliases); i >= 0 {
				idx[field] = i
			}
		}
	}

	cell := func(field string) string {
		if i := idx[field]; i < len(texts) {
			return texts[i]
		}
		return ""
	}

	return &domain.Candidate{
		Title:    cell("title"),
		Location: cell("location"),
		Contract: cell("contract"),
		Link:     linkOf(el),
	}
}

func headerIndex(headers, aliases []string) int {
	for i, h := range headers {
		for _, a := range aliases {
			if strings.Contains(h, a) {
				return i
			}
		}
	}
	return -1
}

// ListStrategy treats a text block as a posting when it carries job
// vocabulary: the first valid line is the title and the first line that
// classifies is the location.
type ListStrategy struct {
	classifier *region.Classifier
}

func (ListStrategy) Name() string { return "list" }

func (s ListStrategy) Extract(el fetcher.Element, page *PageContext) *domain.Candidate {
	text := el.Text()
	if text == "" || !HasJobKeyword(text) {
		return nil
	}

	cand := &domain.Candidate{Link: linkOf(el)}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case cand.Title == "" && IsValidTitle(line):
			cand.Title = line
		case cand.Location == "" && s.classifier != nil && s.classifier.Classify(line).IsRegion:
			cand.Location = line
		}
	}
	if cand.Title == "" {
		return nil
	}
	return cand
}

// windowRadius is half of the text window validated around a semantic match
const windowRadius = 200

var semanticPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)vagas?\s+(?:de|para)\s+([^\n.;|!]{3,90})`),
	regexp.MustCompile(`(?i)oportunidade\s+(?:para|de)\s+([^\n.;|!]{3,90})`),
	regexp.MustCompile(`(?i)contratando\s+(?:um|uma)?\s*([^\n.;|!]{3,90})`),
	regexp.MustCompile(`(?i)cargo\s+de\s+([^\n.;|!]{3,90})`),
	regexp.MustCompile(`(?i)vacancy\s+for\s+(?:an?\s+)?([^\n.;|!]{3,90})`),
	regexp.MustCompile(`(?i)hiring\s+(?:an?\s+)?([^\n.;|!]{3,90})`),
	regexp.MustCompile(`(?i)position\s+of\s+(?:an?\s+)?([^\n.;|!]{3,90})`),
}

type semanticMatch struct {
	title  string
	window string
}

func semanticMatches(text string) []semanticMatch {
	var out []semanticMatch
	for _, re := range semanticPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			out = append(out, semanticMatch{
				title:  cleanTitle(text[start:end]),
				window: window(text, loc[0], loc[1]),
			})
		}
	}
	return out
}

// SemanticStrategy is the last resort: regex patterns over raw text, with
// the surrounding window checked by the classifier.
type SemanticStrategy struct {
	classifier *region.Classifier
}

func (SemanticStrategy) Name() string { return "semantic" }

func (s SemanticStrategy) Extract(el fetcher.Element, page *PageContext) *domain.Candidate {
	text := el.Text()
	if text == "" {
		text = page.Text
	}
	if s.classifier == nil {
		return nil
	}
	for _, m := range semanticMatches(text) {
		if !IsValidTitle(m.title) {
			continue
		}
		if !s.classifier.Classify(m.window).IsRegion {
			continue
		}
		return &domain.Candidate{
			Title:    m.title,
			Location: MatchedLine(m.window, s.classifier),
			Link:     linkOf(el),
		}
	}
	return nil
}

// window returns up to windowRadius bytes either side of [start,end),
// snapped to rune boundaries.
func window(text string, start, end int) string {
	lo := start - windowRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + windowRadius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !isRuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !isRuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	for _, cut := range []string{" em ", " in ", " - ", " – ", ","} {
		if i := strings.Index(s, cut); i > 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func firstText(el fetcher.Element, selectors []string) string {
	for _, sel := range selectors {
		for _, m := range el.Find(sel) {
			if t := firstLine(m.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

func linkOf(el fetcher.Element) string {
	if href, ok := el.Attr("href"); ok && href != "" {
		return href
	}
	for _, a := range el.Find("a[href]") {
		if href, ok := a.Attr("href"); ok && href != "" && !strings.HasPrefix(href, "#") &&
			!strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return href
		}
	}
	return ""
}
