package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserConfig configures the interactive provider
type BrowserConfig struct {
	Headless    bool
	UserAgent   string
	PageTimeout time.Duration
	// Install downloads the browser binaries on first start
	Install bool
}

// BrowserFetcher drives Chromium through Playwright. Every Open call gets its
// own browser context, so cookies and storage never leak between sessions.
type BrowserFetcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     BrowserConfig
}

// NewBrowserFetcher starts Playwright and launches Chromium
func NewBrowserFetcher(cfg BrowserConfig) (*BrowserFetcher, error) {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	if cfg.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &BrowserFetcher{pw: pw, browser: browser, cfg: cfg}, nil
}

func (f *BrowserFetcher) Name() string { return "browser" }

func (f *BrowserFetcher) Interactive() bool { return true }

// Open creates an isolated browser context and navigates to url
func (f *BrowserFetcher) Open(ctx context.Context, url string) (Session, error) {
	opts := playwright.BrowserNewContextOptions{
		Locale: playwright.String("pt-BR"),
	}
	if f.cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(f.cfg.UserAgent)
	}
	bctx, err := f.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(ms(f.cfg.PageTimeout))

	s := &browserSession{bctx: bctx, page: page, timeout: f.cfg.PageTimeout}
	if err := s.Navigate(ctx, url); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close shuts the browser and the Playwright driver down
func (f *BrowserFetcher) Close() error {
	var errs []error
	if err := f.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := f.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

type browserSession struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

func (s *browserSession) URL() string { return s.page.URL() }

func (s *browserSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(ms(s.timeout)),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (s *browserSession) Markup(ctx context.Context) (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return content, nil
}

func (s *browserSession) Scroll(ctx context.Context) error {
	if _, err := s.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)"); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (s *browserSession) ScrollHeight(ctx context.Context) (int, error) {
	v, err := s.page.Evaluate("document.body.scrollHeight")
	if err != nil {
		return 0, fmt.Errorf("scroll height: %w", err)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("scroll height: unexpected %T", v)
}

func (s *browserSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	locs, err := s.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", selector, err)
	}
	return wrapLocators(locs), nil
}

func (s *browserSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	loc := s.page.Locator(selector).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(ms(timeout)),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, ErrWaitTimeout
		}
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
	return &locatorElement{loc: loc}, nil
}

func (s *browserSession) Close() error {
	return s.bctx.Close()
}

func wrapLocators(locs []playwright.Locator) []Element {
	out := make([]Element, 0, len(locs))
	for _, l := range locs {
		out = append(out, &locatorElement{loc: l})
	}
	return out
}

// locatorElement reads through a Playwright locator. Reads use a short
// timeout so a detached node reads as empty instead of blocking.
type locatorElement struct {
	loc playwright.Locator
}

const readTimeout = 2000.0

func (e *locatorElement) Text() string {
	t, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(readTimeout)})
	if err != nil {
		return ""
	}
	return t
}

func (e *locatorElement) Attr(name string) (string, bool) {
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(readTimeout)})
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (e *locatorElement) HTML() string {
	h, err := e.loc.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: playwright.Float(readTimeout)})
	if err != nil {
		return ""
	}
	return h
}

func (e *locatorElement) Find(selector string) []Element {
	locs, err := e.loc.Locator(selector).All()
	if err != nil {
		return nil
	}
	return wrapLocators(locs)
}

func (e *locatorElement) Visible(ctx context.Context) bool {
	ok, err := e.loc.IsVisible()
	return err == nil && ok
}

func (e *locatorElement) Enabled(ctx context.Context) bool {
	ok, err := e.loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: playwright.Float(readTimeout)})
	return err == nil && ok
}

func (e *locatorElement) Click(ctx context.Context) error {
	if err := e.loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(readTimeout * 5)}); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
