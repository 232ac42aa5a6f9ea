package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/project-tktt/ms-job-crawler/internal/common/ratelimit"
)

// HTTPConfig configures the markup-only provider
type HTTPConfig struct {
	UserAgent    string
	ProxyURL     string
	RequestDelay time.Duration
	Timeout      time.Duration
}

// HTTPFetcher fetches raw markup with Colly. It cannot run scripts, so
// sessions it opens never grow on scroll and cannot click.
type HTTPFetcher struct {
	collector *colly.Collector
	limiter   *ratelimit.HostLimiter
}

// NewHTTPFetcher creates a Colly-based fetcher
func NewHTTPFetcher(cfg HTTPConfig, limiter *ratelimit.HostLimiter) *HTTPFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.Timeout)

	if cfg.RequestDelay > 0 {
		c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Delay:       cfg.RequestDelay,
			RandomDelay: cfg.RequestDelay / 2,
		})
	}
	if cfg.ProxyURL != "" {
		c.SetProxy(cfg.ProxyURL)
	}

	return &HTTPFetcher{collector: c, limiter: limiter}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Interactive() bool { return false }

// Open fetches url and returns a session over its markup
func (f *HTTPFetcher) Open(ctx context.Context, url string) (Session, error) {
	s := &httpSession{fetcher: f}
	if err := s.Navigate(ctx, url); err != nil {
		return nil, err
	}
	return s, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.WaitURL(ctx, url); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	var body []byte
	var fetchErr error

	collector := f.collector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("colly error: %w (status: %d)", err, r.StatusCode)
	})

	if err := collector.Visit(url); err != nil {
		return "", fmt.Errorf("visit url: %w", err)
	}
	if fetchErr != nil {
		return "", fetchErr
	}
	return string(body), nil
}

// httpSession re-fetches on Navigate and otherwise behaves like a Document
type httpSession struct {
	*Document
	fetcher *HTTPFetcher
}

func (s *httpSession) Navigate(ctx context.Context, url string) error {
	markup, err := s.fetcher.fetch(ctx, url)
	if err != nil {
		return err
	}
	doc, err := NewDocument(url, markup)
	if err != nil {
		return err
	}
	s.Document = doc
	return nil
}
