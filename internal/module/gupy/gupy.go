// Package gupy extracts company portals hosted on gupy.io
package gupy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/dedup"
	"github.com/project-tktt/ms-job-crawler/internal/common/extractor"
	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/pagination"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/module"
)

var (
	rowSelectors = []string{
		"tr[data-testid^='job-list__row']",
		"li[data-testid^='job-list__listitem']",
		"a[data-testid^='job-list__listitem-href']",
		"[data-testid^='job-list__listitem']",
	}
	titleSelectors    = []string{"[data-testid^='job-list__cell-job-name']", "[data-testid*='job-name']", "h3", "h4"}
	workplaceSelector = "[data-testid*='workplace'], [data-testid*='location']"
	contractSelector  = "[data-testid*='job-type'], [data-testid*='contract']"
)

// Config holds Gupy source configuration
type Config struct {
	MaxPages    int
	WaitTimeout time.Duration
	SettleDelay time.Duration
}

// Source extracts the listing rows of each Gupy career page
type Source struct {
	fetcher   fetcher.Fetcher
	companies []domain.Company
	kit       *module.Toolkit
	cfg       Config
	log       zerolog.Logger
}

// NewSource creates the Gupy source
func NewSource(f fetcher.Fetcher, companies []domain.Company, kit *module.Toolkit, cfg Config, log zerolog.Logger) *Source {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	return &Source{
		fetcher:   f,
		companies: companies,
		kit:       kit,
		cfg:       cfg,
		log:       log.With().Str("source", string(domain.SourceGupy)).Logger(),
	}
}

func (s *Source) Name() domain.Source { return domain.SourceGupy }

func (s *Source) Run(ctx context.Context) ([]domain.JobRecord, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", module.ErrSessionSetup)
	}
	return module.EachCompany(ctx, s.companies, s.ExtractPortal, s.log)
}

// ExtractPortal opens one career page and walks its pagination
func (s *Source) ExtractPortal(ctx context.Context, c domain.Company, portal string) ([]domain.JobRecord, error) {
	session, err := s.fetcher.Open(ctx, portal)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", module.ErrSessionSetup, err)
	}
	defer session.Close()

	log := s.log.With().Str("company", c.Name).Logger()
	rowSel := s.waitRows(ctx, session)
	if rowSel == "" {
		log.Info().Msg("no job rows on page")
		return nil, nil
	}

	seen := dedup.NewSet()
	var out []domain.JobRecord
	collect := func() {
		els, err := session.FindAll(ctx, rowSel)
		if err != nil {
			log.Debug().Err(err).Msg("find rows")
			return
		}
		for _, el := range els {
			cand, res, ok := s.row(el, session.URL())
			if !ok {
				continue
			}
			rec := s.kit.Normalizer.Build(domain.SourceGupy, &c, cand, res)
			if seen.Add(dedup.Key(rec)) {
				out = append(out, rec)
			}
		}
	}
	collect()

	p := pagination.NewClickPaginator(session, pagination.ClickConfig{
		ItemSelector: rowSel,
		WaitTimeout:  s.cfg.WaitTimeout,
		SettleDelay:  s.cfg.SettleDelay,
	}, log)
	for page := 1; page < s.cfg.MaxPages && p.HasMore() && p.Advance(ctx); page++ {
		collect()
	}

	log.Debug().Int("records", len(out)).Int("clicks", p.Clicks()).Msg("portal extracted")
	return out, nil
}

// waitRows returns the first row selector present on the page
func (s *Source) waitRows(ctx context.Context, session fetcher.Session) string {
	if _, err := session.WaitFor(ctx, strings.Join(rowSelectors, ", "), s.cfg.WaitTimeout); err != nil {
		return ""
	}
	for _, sel := range rowSelectors {
		if els, err := session.FindAll(ctx, sel); err == nil && len(els) > 0 {
			return sel
		}
	}
	return ""
}

// row reads one listing row. Rows outside the region are skipped.
func (s *Source) row(el fetcher.Element, pageURL string) (domain.Candidate, region.Result, bool) {
	text := el.Text()
	res := s.kit.Classifier.Classify(text)
	if !res.IsRegion {
		return domain.Candidate{}, res, false
	}

	title := ""
	for _, sel := range titleSelectors {
		if els := el.Find(sel); len(els) > 0 {
			if title = firstLine(els[0].Text()); title != "" {
				break
			}
		}
	}
	if title == "" {
		title = firstLine(text)
	}
	if title == "" {
		return domain.Candidate{}, res, false
	}

	location := ""
	if els := el.Find(workplaceSelector); len(els) > 0 {
		location = strings.TrimSpace(els[0].Text())
	}
	if location == "" {
		location = extractor.MatchedLine(text, s.kit.Classifier)
	}
	contract := ""
	if els := el.Find(contractSelector); len(els) > 0 {
		contract = strings.TrimSpace(els[0].Text())
	}

	link := ""
	if href, ok := el.Attr("href"); ok {
		link = href
	} else if as := el.Find("a[href]"); len(as) > 0 {
		link, _ = as[0].Attr("href")
	}
	if link != "" {
		link = fetcher.Resolve(pageURL, link)
	}

	return domain.Candidate{
		Title:    title,
		Location: location,
		Contract: contract,
		Link:     link,
		Method:   "gupy",
	}, res, true
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
