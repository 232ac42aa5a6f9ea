// Package hcm extracts postings from HCM recruiting platforms through their
// token-protected JSON API, degrading to interactive extraction when the
// API cannot be used.
package hcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/cleaner"
	"github.com/project-tktt/ms-job-crawler/internal/common/normalizer"
	"github.com/project-tktt/ms-job-crawler/internal/common/ratelimit"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/metrics"
)

var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrTokenExpired = errors.New("token expired on issue")
	ErrUnauthorized = errors.New("unauthorized after re-authentication")
	ErrNoEndpoint   = errors.New("no api endpoint answered")
	errEnvelope     = errors.New("unrecognised response envelope")
)

const defaultTokenTTL = time.Hour

// Endpoint is a candidate listing URL. Pattern may use {base}, {page} and
// {size}; FirstPage is the number of the first page on that API.
type Endpoint struct {
	Pattern   string
	FirstPage int
}

// DefaultEndpoints are probed in order
var DefaultEndpoints = []Endpoint{
	{Pattern: "{base}/api/v1/vacancies?page={page}&size={size}", FirstPage: 0},
	{Pattern: "{base}/api/vacancies?page={page}&size={size}", FirstPage: 0},
	{Pattern: "{base}/api/v1/jobs?page={page}&pageSize={size}", FirstPage: 1},
	{Pattern: "{base}/api/jobs?page={page}&limit={size}", FirstPage: 1},
	{Pattern: "{base}/api/public/vagas?pagina={page}&tamanho={size}", FirstPage: 1},
}

// Config holds HCM client configuration
type Config struct {
	PageSize      int
	MaxPages      int
	MaxRetries    int
	MaxEmptyPages int
	UserAgent     string
	Timeout       time.Duration
	// RetryDelay is the base backoff between retries of a failed request
	RetryDelay       time.Duration
	Endpoints        []Endpoint
	TokenPaths       []string
	DefaultClientIDs []string
}

func (cfg Config) withDefaults() Config {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxEmptyPages <= 0 {
		cfg.MaxEmptyPages = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints
	}
	if len(cfg.TokenPaths) == 0 {
		cfg.TokenPaths = []string{"/oauth/token", "/auth/token", "/api/oauth/token"}
	}
	if len(cfg.DefaultClientIDs) == 0 {
		cfg.DefaultClientIDs = []string{"portal-candidato", "career-site", "public"}
	}
	return cfg
}

// Fallback extracts the same site interactively
type Fallback func(ctx context.Context) ([]domain.JobRecord, error)

// Deps are the shared helpers a client maps records with
type Deps struct {
	Cleaner    *cleaner.Cleaner
	Normalizer *normalizer.Normalizer
	Classifier *region.Classifier
	Limiter    *ratelimit.HostLimiter
}

// Client talks to one company's HCM deployment for the duration of one run.
// It is not safe for concurrent use.
type Client struct {
	cfg      Config
	portal   string
	base     string
	company  *domain.Company
	http     *http.Client
	deps     Deps
	fallback Fallback
	log      zerolog.Logger
	now      func() time.Time

	state     State
	clientID  string
	tokenPath string
	token     string
	expiry    time.Time
	endpoint  *Endpoint
	fellBack  bool
}

// NewClient creates a client for the portal URL of company
func NewClient(portal string, company *domain.Company, cfg Config, deps Deps, fallback Fallback, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(portal)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("parse portal url %q: invalid", portal)
	}
	cfg = cfg.withDefaults()
	if deps.Cleaner == nil {
		deps.Cleaner = cleaner.NewCleaner()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.NewNormalizer(deps.Cleaner)
	}
	if deps.Classifier == nil {
		deps.Classifier = region.NewClassifier()
	}

	l := log.With().Str("host", u.Host)
	if company != nil {
		l = l.Str("company", company.Name)
	}
	return &Client{
		cfg:      cfg,
		portal:   portal,
		base:     u.Scheme + "://" + u.Host,
		company:  company,
		http:     &http.Client{Timeout: cfg.Timeout},
		deps:     deps,
		fallback: fallback,
		log:      l.Logger(),
		now:      time.Now,
	}, nil
}

func (c *Client) State() State { return c.state }

// Run lists every job through the API. When authentication fails or no
// endpoint answers, the fallback runs instead, at most once per client.
func (c *Client) Run(ctx context.Context) ([]domain.JobRecord, error) {
	recs, err := c.fetchAll(ctx)
	if err == nil {
		c.log.Info().Int("records", len(recs)).Msg("api extraction finished")
		return recs, nil
	}
	if ctx.Err() != nil {
		return recs, ctx.Err()
	}
	c.log.Warn().Err(err).Msg("api unavailable, falling back to interactive extraction")
	return c.runFallback(ctx, err)
}

func (c *Client) runFallback(ctx context.Context, cause error) ([]domain.JobRecord, error) {
	if c.fellBack || c.fallback == nil {
		return nil, cause
	}
	c.fellBack = true
	metrics.Fallbacks.Inc()

	recs, err := c.fallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return recs, nil
}

func (c *Client) fetchAll(ctx context.Context) ([]domain.JobRecord, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	items, err := c.probe(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.JobRecord
	empty := 0
	for page := 0; ; page++ {
		recs, mapped := c.mapItems(items)
		out = append(out, recs...)
		if mapped == 0 {
			empty++
		} else {
			empty = 0
		}
		c.log.Debug().Int("page", page).Int("items", len(items)).Int("records", len(recs)).Msg("page fetched")

		switch {
		case len(items) != c.cfg.PageSize:
		case empty >= c.cfg.MaxEmptyPages:
			c.log.Debug().Int("empty", empty).Msg("too many empty pages")
		case page+1 >= c.cfg.MaxPages:
			c.log.Debug().Int("pages", page+1).Msg("page ceiling reached")
		case ctx.Err() != nil:
		default:
			items, err = c.fetchPage(ctx, *c.endpoint, page+1)
			if err != nil {
				c.log.Warn().Err(err).Int("page", page+1).Msg("page fetch failed")
				return out, nil
			}
			continue
		}
		return out, nil
	}
}

// probe adopts the first endpoint answering with a known envelope and
// returns its first page
func (c *Client) probe(ctx context.Context) ([]map[string]any, error) {
	if c.endpoint != nil {
		return c.fetchPage(ctx, *c.endpoint, 0)
	}
	for i := range c.cfg.Endpoints {
		ep := c.cfg.Endpoints[i]
		items, err := c.fetchPage(ctx, ep, 0)
		if err != nil {
			if isAuthError(err) || ctx.Err() != nil {
				return nil, err
			}
			c.log.Debug().Err(err).Str("pattern", ep.Pattern).Msg("endpoint rejected")
			continue
		}
		c.endpoint = &ep
		c.log.Info().Str("pattern", ep.Pattern).Msg("endpoint adopted")
		return items, nil
	}
	return nil, ErrNoEndpoint
}

func (c *Client) fetchPage(ctx context.Context, ep Endpoint, page int) ([]map[string]any, error) {
	body, err := c.get(ctx, c.expand(ep, page))
	if err != nil {
		return nil, err
	}
	items, ok := decodeEnvelope(body)
	if !ok {
		return nil, errEnvelope
	}
	return items, nil
}

func (c *Client) expand(ep Endpoint, page int) string {
	return strings.NewReplacer(
		"{base}", c.base,
		"{page}", strconv.Itoa(ep.FirstPage+page),
		"{size}", strconv.Itoa(c.cfg.PageSize),
	).Replace(ep.Pattern)
}

// get performs an authorised GET. A 401 triggers exactly one
// re-authentication and retry.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := c.ensureAuthenticated(ctx); err != nil {
			return nil, err
		}
		resp, err := c.send(ctx, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+c.token)
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if attempt > 0 {
				return nil, ErrUnauthorized
			}
			c.log.Debug().Str("url", u).Msg("token rejected, re-authenticating")
			c.invalidate()
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return body, nil
	}
}

// send rate-limits and retries transport errors and 5xx responses
func (c *Client) send(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.cfg.RetryDelay * time.Duration(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}
		if err := c.deps.Limiter.WaitURL(ctx, req.URL.String()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status: %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// mapItems converts a page of raw objects. mapped counts objects that had a
// title at all, whether or not they were in the region.
func (c *Client) mapItems(items []map[string]any) (recs []domain.JobRecord, mapped int) {
	for _, raw := range items {
		cand := normalizer.MapRecord(c.deps.Cleaner.CleanMap(raw))
		if strings.TrimSpace(cand.Title) == "" {
			continue
		}
		mapped++

		res := c.deps.Classifier.Classify(cand.Location)
		if !res.IsRegion && cand.Location == "" {
			res = c.deps.Classifier.Classify(cand.Title + "\n" + cand.Description)
		}
		if !res.IsRegion {
			continue
		}
		if cand.Link == "" {
			if id := normalizer.RecordID(raw); id != "" {
				cand.Link = strings.TrimRight(c.portal, "/") + "/" + id
			}
		} else if !strings.HasPrefix(cand.Link, "http") {
			cand.Link = c.base + "/" + strings.TrimLeft(cand.Link, "/")
		}
		cand.Method = "hcm_api"
		recs = append(recs, c.deps.Normalizer.Build(domain.SourceHCM, c.company, cand, res))
	}
	return recs, mapped
}
