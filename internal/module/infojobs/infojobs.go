// Package infojobs discovers postings on the InfoJobs listing by infinite
// scroll and extracts every detail page through the worker pool.
package infojobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/extractor"
	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/pagination"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/module"
	"github.com/project-tktt/ms-job-crawler/internal/module/worker"
)

const (
	DefaultURL = "https://www.infojobs.com.br/empregos.aspx?provincia=175"

	linkSelector   = "a[href*='/vaga-de-']"
	totalSelector  = "#resumeVacancies span"
	cookieSelector = "#onetrust-accept-btn-handler"

	titleSelector       = "#VacancyHeader h2"
	companySelector     = "a[href*='/empresa-']"
	locationSelector    = "div.mb-8"
	coordsSelector      = "span.js_UserVagaDistance"
	descriptionSelector = "p.mb-16.text-break.white-space-pre-line"
	salarySelector      = "[class*='salary'], [class*='salario']"
	workModeSelector    = "div:has(svg.icon-buildings)"

	missionMarker    = "MISSÃO"
	activitiesMarker = "PRINCIPAIS ATIVIDADES"
	maxRequirements  = 800
)

// Config holds InfoJobs source configuration
type Config struct {
	URL         string
	MaxScrolls  int
	SettleDelay time.Duration
	Worker      worker.Config
}

// Source is the InfoJobs aggregator
type Source struct {
	listing fetcher.Fetcher
	detail  fetcher.Fetcher
	kit     *module.Toolkit
	cfg     Config
	log     zerolog.Logger
}

// NewSource creates the InfoJobs source. listing must be able to scroll;
// detail opens the per-worker sessions and may be the same fetcher.
func NewSource(listing, detail fetcher.Fetcher, kit *module.Toolkit, cfg Config, log zerolog.Logger) *Source {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if detail == nil {
		detail = listing
	}
	cfg.Worker.Source = domain.SourceInfoJobs
	return &Source{
		listing: listing,
		detail:  detail,
		kit:     kit,
		cfg:     cfg,
		log:     log.With().Str("source", string(domain.SourceInfoJobs)).Logger(),
	}
}

func (s *Source) Name() domain.Source { return domain.SourceInfoJobs }

// Run collects the listing URLs and extracts them concurrently
func (s *Source) Run(ctx context.Context) ([]domain.JobRecord, error) {
	urls, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		s.log.Info().Msg("no postings discovered")
		return nil, nil
	}
	s.log.Info().Int("urls", len(urls)).Msg("postings discovered")

	pool := worker.NewPool(s.detail, s.Detail, s.cfg.Worker, s.log)
	return pool.Extract(ctx, urls), nil
}

// Discover scrolls the listing and returns the posting URLs in discovery order
func (s *Source) Discover(ctx context.Context) ([]string, error) {
	if s.listing == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", module.ErrSessionSetup)
	}
	session, err := s.listing.Open(ctx, s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", module.ErrSessionSetup, err)
	}
	defer session.Close()

	s.dismissCookies(ctx, session)

	p := pagination.NewScrollPaginator(session, pagination.ScrollConfig{
		LinkSelector:  linkSelector,
		LinkFilter:    func(href string) bool { return strings.Contains(href, "/vaga-de-") },
		TotalSelector: totalSelector,
		MaxScrolls:    s.cfg.MaxScrolls,
		SettleDelay:   s.cfg.SettleDelay,
		Stop:          s.cfg.Worker.Stop,
	}, s.log)
	urls := p.Run(ctx)
	s.log.Debug().Int("scrolls", p.Scrolls()).Int("total", p.Total()).Msg("listing scrolled")
	return urls, nil
}

func (s *Source) dismissCookies(ctx context.Context, session fetcher.Session) {
	el := fetcher.First(ctx, session, cookieSelector)
	if el == nil || !el.Visible(ctx) {
		return
	}
	if err := el.Click(ctx); err != nil {
		s.log.Debug().Err(err).Msg("cookie banner not dismissed")
	}
}

// Detail extracts one posting page. Pages without the known header fall
// back to the strategy cascade over the whole body; postings outside the
// region yield nil.
func (s *Source) Detail(ctx context.Context, session fetcher.Session, url string) (*domain.JobRecord, error) {
	title := text(fetcher.First(ctx, session, titleSelector, "h1"))
	if title == "" {
		return s.cascade(ctx, session, url)
	}

	cand := domain.Candidate{
		Title:   title,
		Company: text(fetcher.First(ctx, session, companySelector)),
		Salary:  text(fetcher.First(ctx, session, salarySelector)),
		Link:    url,
		Method:  string(domain.SourceInfoJobs),
	}

	if el := fetcher.First(ctx, session, locationSelector); el != nil {
		cand.Location = TrimLocation(el.Text())
		if spans := el.Find(coordsSelector); len(spans) > 0 {
			cand.Latitude, cand.Longitude = coords(spans[0])
		}
	}
	if cand.Latitude == nil {
		if el := fetcher.First(ctx, session, coordsSelector); el != nil {
			cand.Latitude, cand.Longitude = coords(el)
		}
	}

	if el := fetcher.First(ctx, session, descriptionSelector); el != nil {
		full := s.kit.Cleaner.CleanToText(el.HTML())
		if full == "" {
			full = strings.TrimSpace(el.Text())
		}
		cand.Description = full
		cand.Responsibilities, cand.Requirements = SplitSections(full)
	}

	res := s.kit.Classifier.Classify(cand.Location)
	if mode := s.workMode(ctx, session); isRemoteMode(mode) {
		res = s.kit.Classifier.Classify(mode)
	}
	if !res.IsRegion && cand.Location == "" {
		if el := fetcher.First(ctx, session, "#VacancyHeader"); el != nil {
			res = s.kit.Classifier.Classify(el.Text())
		}
	}
	if !res.IsRegion {
		return nil, nil
	}

	rec := s.kit.Normalizer.Build(domain.SourceInfoJobs, nil, cand, res)
	return &rec, nil
}

func (s *Source) cascade(ctx context.Context, session fetcher.Session, url string) (*domain.JobRecord, error) {
	body := fetcher.First(ctx, session, "body")
	if body == nil {
		return nil, nil
	}
	page, err := extractor.NewPageContext(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	res := s.kit.Extractor.Extract(body, page)
	if res == nil {
		return nil, nil
	}
	if res.Candidate.Link == "" || res.Candidate.Link == page.URL {
		res.Candidate.Link = url
	}
	rec := s.kit.Normalizer.Build(domain.SourceInfoJobs, nil, res.Candidate, res.Region)
	return &rec, nil
}

// workMode returns the text next to the building icon, e.g. "Presencial"
func (s *Source) workMode(ctx context.Context, session fetcher.Session) string {
	els, err := session.FindAll(ctx, workModeSelector)
	if err != nil || len(els) == 0 {
		return ""
	}
	// innermost match comes last in document order
	return strings.TrimSpace(els[len(els)-1].Text())
}

func isRemoteMode(mode string) bool {
	folded := region.Fold(mode)
	if folded == "" || strings.Contains(folded, "presencial") {
		return false
	}
	return strings.Contains(folded, "remoto") ||
		strings.Contains(folded, "home office") ||
		strings.Contains(folded, "hibrido")
}

// TrimLocation reduces the location block to "City - UF", dropping the
// distance note that follows a comma.
func TrimLocation(s string) string {
	s = strings.TrimSpace(firstLine(s))
	if city, rest, ok := strings.Cut(s, " - "); ok {
		uf, _, _ := strings.Cut(rest, ",")
		return strings.TrimSpace(city) + " - " + strings.TrimSpace(uf)
	}
	city, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(city)
}

// SplitSections pulls the mission and main-activities sections out of a
// description. Requirements are bulleted and capped.
func SplitSections(desc string) (responsibilities, requirements string) {
	if _, after, ok := strings.Cut(desc, missionMarker); ok {
		mission, _, _ := strings.Cut(after, activitiesMarker)
		responsibilities = strings.TrimSpace(mission)
	}
	if _, after, ok := strings.Cut(desc, activitiesMarker); ok {
		acts := strings.TrimSpace(after)
		acts = strings.ReplaceAll(acts, "*", "\n•")
		acts = strings.ReplaceAll(acts, ";", ";\n")
		if r := []rune(acts); len(r) > maxRequirements {
			acts = string(r[:maxRequirements]) + "..."
		}
		requirements = acts
	}
	return responsibilities, requirements
}

func coords(el fetcher.Element) (lat, lon *float64) {
	latS, ok1 := el.Attr("data-vagalatitude")
	lonS, ok2 := el.Attr("data-vagalongitude")
	if !ok1 || !ok2 {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(strings.Replace(strings.TrimSpace(latS), ",", ".", 1), 64)
	lo, err2 := strconv.ParseFloat(strings.Replace(strings.TrimSpace(lonS), ",", ".", 1), 64)
	if err1 != nil || err2 != nil || (la == 0 && lo == 0) {
		return nil, nil
	}
	return &la, &lo
}

func text(el fetcher.Element) string {
	if el == nil {
		return ""
	}
	return firstLine(el.Text())
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
