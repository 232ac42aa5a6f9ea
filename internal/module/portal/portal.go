// Package portal extracts company career portals that have no known
// platform, using the strategy cascade over candidate containers.
package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/dedup"
	"github.com/project-tktt/ms-job-crawler/internal/common/extractor"
	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/pagination"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/module"
)

// DefaultContainerSelectors are tried in order; the first selector whose
// elements yield any posting is used for the page
var DefaultContainerSelectors = []string{
	"[data-testid*='job-card']", ".job-card", ".job-item", ".vacancy", ".vaga",
	"[class*='job-card']", "[class*='jobCard']", "[class*='vaga-item']", "[class*='vacancy']",
	"li[class*='job']", "div[class*='job']", "article",
	"table tbody tr", "table tr",
	"ul li",
}

// Config holds portal extraction configuration
type Config struct {
	// MaxPages bounds pagination advances per portal
	MaxPages           int
	WaitTimeout        time.Duration
	SettleDelay        time.Duration
	ContainerSelectors []string
	Source             domain.Source
}

// Source extracts the generic company portals
type Source struct {
	fetchers  []fetcher.Fetcher
	companies []domain.Company
	kit       *module.Toolkit
	cfg       Config
	log       zerolog.Logger
}

// NewSource creates a portal source. fetchers are tried in order, cheapest
// first; the next one is used when a portal yields nothing.
func NewSource(fetchers []fetcher.Fetcher, companies []domain.Company, kit *module.Toolkit, cfg Config, log zerolog.Logger) *Source {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if len(cfg.ContainerSelectors) == 0 {
		cfg.ContainerSelectors = DefaultContainerSelectors
	}
	if cfg.Source == "" {
		cfg.Source = domain.SourcePortal
	}
	return &Source{
		fetchers:  fetchers,
		companies: companies,
		kit:       kit,
		cfg:       cfg,
		log:       log.With().Str("source", string(cfg.Source)).Logger(),
	}
}

func (s *Source) Name() domain.Source { return s.cfg.Source }

// Run extracts every company in turn. Each portal gets fresh sessions.
func (s *Source) Run(ctx context.Context) ([]domain.JobRecord, error) {
	if len(s.fetchers) == 0 {
		return nil, fmt.Errorf("%w: no fetcher configured", module.ErrSessionSetup)
	}
	return module.EachCompany(ctx, s.companies, s.ExtractPortal, s.log)
}

// ExtractPortal extracts one portal URL of company, escalating through the
// fetchers until one yields postings
func (s *Source) ExtractPortal(ctx context.Context, c domain.Company, portal string) ([]domain.JobRecord, error) {
	var errs []error
	opened := false
	for _, f := range s.fetchers {
		recs, err := s.extractWith(ctx, f, c, portal)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		opened = true
		if len(recs) > 0 {
			return recs, nil
		}
		s.log.Debug().Str("fetcher", f.Name()).Str("portal", portal).Msg("no postings found")
	}
	if opened {
		return nil, nil
	}
	return nil, errors.Join(errs...)
}

func (s *Source) extractWith(ctx context.Context, f fetcher.Fetcher, c domain.Company, portal string) ([]domain.JobRecord, error) {
	session, err := f.Open(ctx, portal)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", module.ErrSessionSetup, f.Name(), err)
	}
	defer session.Close()

	log := s.log.With().Str("company", c.Name).Str("fetcher", f.Name()).Logger()
	seen := dedup.NewSet()
	var out []domain.JobRecord

	collect := func() {
		for _, r := range s.ExtractPage(ctx, session) {
			rec := s.kit.Normalizer.Build(s.cfg.Source, &c, r.Candidate, r.Region)
			if seen.Add(dedup.Key(rec)) {
				out = append(out, rec)
			}
		}
	}
	collect()

	if f.Interactive() {
		p := pagination.NewClickPaginator(session, pagination.ClickConfig{
			WaitTimeout: s.cfg.WaitTimeout,
			SettleDelay: s.cfg.SettleDelay,
		}, log)
		for page := 1; page < s.cfg.MaxPages && p.HasMore() && p.Advance(ctx); page++ {
			collect()
		}
	}
	log.Debug().Int("records", len(out)).Msg("portal extracted")
	return out, nil
}

// ExtractPage runs the cascade over the current page. Without any usable
// container, the whole page text is scanned instead.
func (s *Source) ExtractPage(ctx context.Context, session fetcher.Session) []extractor.Result {
	page, err := extractor.NewPageContext(ctx, session)
	if err != nil {
		s.log.Debug().Err(err).Msg("read page")
		return nil
	}
	for _, sel := range s.cfg.ContainerSelectors {
		els, err := session.FindAll(ctx, sel)
		if err != nil || len(els) == 0 {
			continue
		}
		var results []extractor.Result
		for _, el := range els {
			if res := s.kit.Extractor.Extract(el, page); res != nil {
				results = append(results, *res)
			}
		}
		if len(results) > 0 {
			return results
		}
	}
	return s.kit.Extractor.ScanText(page)
}
