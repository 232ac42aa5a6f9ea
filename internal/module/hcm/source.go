package hcm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/module"
)

// FallbackFactory builds the interactive fallback for one company portal
type FallbackFactory func(c domain.Company, portal string) Fallback

// Source runs one API client per HCM company, one company at a time
type Source struct {
	companies []domain.Company
	cfg       Config
	deps      Deps
	fallback  FallbackFactory
	log       zerolog.Logger
}

// NewSource creates the HCM source
func NewSource(companies []domain.Company, cfg Config, deps Deps, fallback FallbackFactory, log zerolog.Logger) *Source {
	return &Source{
		companies: companies,
		cfg:       cfg,
		deps:      deps,
		fallback:  fallback,
		log:       log.With().Str("source", string(domain.SourceHCM)).Logger(),
	}
}

func (s *Source) Name() domain.Source { return domain.SourceHCM }

// Run extracts every company. A company failing on all its portals is
// logged and skipped.
func (s *Source) Run(ctx context.Context) ([]domain.JobRecord, error) {
	return module.EachCompany(ctx, s.companies, s.extractPortal, s.log)
}

func (s *Source) extractPortal(ctx context.Context, c domain.Company, portal string) ([]domain.JobRecord, error) {
	var fb Fallback
	if s.fallback != nil {
		fb = s.fallback(c, portal)
	}
	company := c
	client, err := NewClient(portal, &company, s.cfg, s.deps, fb, s.log)
	if err != nil {
		return nil, err
	}
	return client.Run(ctx)
}
