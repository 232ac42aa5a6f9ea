package module

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/cleaner"
	"github.com/project-tktt/ms-job-crawler/internal/common/extractor"
	"github.com/project-tktt/ms-job-crawler/internal/common/normalizer"
	"github.com/project-tktt/ms-job-crawler/internal/common/ratelimit"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// ErrSessionSetup means no fetch session could be created for a source
var ErrSessionSetup = errors.New("session setup failed")

// Source is the common interface for all job sources
type Source interface {
	// Run discovers and extracts postings. An error means the source failed
	// as a whole; any records returned alongside it are still usable.
	Run(ctx context.Context) ([]domain.JobRecord, error)
	// Name returns the source identifier
	Name() domain.Source
}

// Toolkit bundles the helpers every source builds records with. All of
// them are safe for concurrent use.
type Toolkit struct {
	Classifier *region.Classifier
	Extractor  *extractor.Extractor
	Normalizer *normalizer.Normalizer
	Cleaner    *cleaner.Cleaner
	Limiter    *ratelimit.HostLimiter
}

// NewToolkit wires the default helpers around one classifier
func NewToolkit(limiter *ratelimit.HostLimiter) *Toolkit {
	classifier := region.NewClassifier()
	c := cleaner.NewCleaner()
	return &Toolkit{
		Classifier: classifier,
		Extractor:  extractor.New(classifier),
		Normalizer: normalizer.NewNormalizer(c),
		Cleaner:    c,
		Limiter:    limiter,
	}
}

// Route decides which source handles a company portal. Companies only
// reachable through a professional-network listing get ok == false.
func Route(c domain.Company, hcmPatterns []string) (src domain.Source, ok bool) {
	if c.ListingOnly() {
		return "", false
	}
	u := strings.ToLower(c.PrimaryPortalURL)
	if u == "" {
		return "", false
	}
	switch {
	case strings.Contains(u, "gupy.io"):
		return domain.SourceGupy, true
	case matchesAny(u, hcmPatterns):
		return domain.SourceHCM, true
	default:
		return domain.SourcePortal, true
	}
}

// Partition groups companies by the source that handles them
func Partition(companies []domain.Company, hcmPatterns []string, log zerolog.Logger) map[domain.Source][]domain.Company {
	out := make(map[domain.Source][]domain.Company)
	for _, c := range companies {
		src, ok := Route(c, hcmPatterns)
		if !ok {
			log.Debug().Str("company", c.Name).Msg("skipping company without a crawlable portal")
			continue
		}
		out[src] = append(out[src], c)
	}
	return out
}

// PortalFunc extracts one portal URL of a company
type PortalFunc func(ctx context.Context, c domain.Company, portal string) ([]domain.JobRecord, error)

// EachPortal tries the company's portals in order and stops at the first
// one that does not fail. An empty but successful portal counts as success.
func EachPortal(ctx context.Context, c domain.Company, fn PortalFunc, log zerolog.Logger) ([]domain.JobRecord, error) {
	portals := c.Portals()
	if len(portals) == 0 {
		return nil, fmt.Errorf("company %q: no portal url", c.Name)
	}

	var errs []error
	for i, p := range portals {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		recs, err := fn(ctx, c, p)
		if err == nil {
			return recs, nil
		}
		errs = append(errs, err)
		if i < len(portals)-1 {
			log.Warn().Err(err).Str("company", c.Name).Str("portal", p).Msg("portal failed, trying alternate")
		}
	}
	return nil, errors.Join(errs...)
}

// EachCompany runs EachPortal over companies in order. A company failing on
// all its portals is logged and skipped; the error is returned only when
// every company failed.
func EachCompany(ctx context.Context, companies []domain.Company, fn PortalFunc, log zerolog.Logger) ([]domain.JobRecord, error) {
	var out []domain.JobRecord
	failed := 0
	for _, c := range companies {
		if ctx.Err() != nil {
			break
		}
		recs, err := EachPortal(ctx, c, fn, log)
		if err != nil {
			failed++
			log.Warn().Err(err).Str("company", c.Name).Msg("company failed")
			continue
		}
		log.Info().Str("company", c.Name).Int("records", len(recs)).Msg("company done")
		out = append(out, recs...)
	}
	if failed > 0 && failed == len(companies) {
		return out, fmt.Errorf("all %d companies failed", failed)
	}
	return out, nil
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
