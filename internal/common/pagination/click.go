package pagination

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
)

// ClickState is the state of a ClickPaginator
type ClickState int

const (
	Ready ClickState = iota
	Clicking
	Exhausted
)

// DefaultControlSelectors match common "load more" and "next page" controls
var DefaultControlSelectors = []string{
	"[data-testid='pagination-next-button']",
	"button[aria-label*='próxima' i]",
	"a[aria-label*='próxima' i]",
	"button[aria-label*='next' i]",
	"a[rel='next']",
	"button.load-more",
	"button:has-text('Carregar mais')",
	"button:has-text('Ver mais vagas')",
	"button:has-text('Mostrar mais')",
	"a:has-text('Próxima')",
	".pagination .next a",
	"li.next a",
}

// DefaultLoadingSelectors match spinners and skeleton loaders
var DefaultLoadingSelectors = []string{
	"[class*='spinner']",
	"[class*='loading']",
	"[class*='skeleton']",
	"[aria-busy='true']",
}

// ClickConfig configures click-driven pagination
type ClickConfig struct {
	ControlSelectors []string
	LoadingSelectors []string
	// ItemSelector matches listing items; used to detect clicks that change nothing
	ItemSelector string
	MaxClicks    int
	MaxFailures  int
	MaxStalls    int
	WaitTimeout  time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration
	Stop         StopFunc
}

// ClickPaginator clicks a "load more" or "next" control until it disappears,
// is disabled, or stops having an effect.
type ClickPaginator struct {
	session fetcher.Session
	cfg     ClickConfig
	log     zerolog.Logger

	state    ClickState
	clicks   int
	failures int
	stalls   int
}

// NewClickPaginator creates a paginator over an open session
func NewClickPaginator(s fetcher.Session, cfg ClickConfig, log zerolog.Logger) *ClickPaginator {
	if len(cfg.ControlSelectors) == 0 {
		cfg.ControlSelectors = DefaultControlSelectors
	}
	if len(cfg.LoadingSelectors) == 0 {
		cfg.LoadingSelectors = DefaultLoadingSelectors
	}
	if cfg.MaxClicks <= 0 {
		cfg.MaxClicks = 20
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.MaxStalls <= 0 {
		cfg.MaxStalls = 2
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &ClickPaginator{session: s, cfg: cfg, log: log}
}

func (p *ClickPaginator) State() ClickState { return p.state }

func (p *ClickPaginator) Clicks() int { return p.clicks }

func (p *ClickPaginator) HasMore() bool { return p.state != Exhausted }

func (p *ClickPaginator) Advance(ctx context.Context) bool {
	if p.state == Exhausted {
		return false
	}
	if stopped(ctx, p.cfg.Stop) || p.clicks >= p.cfg.MaxClicks {
		return p.exhaust("stop or click ceiling")
	}

	ctrl := p.locate(ctx)
	if ctrl == nil {
		return p.exhaust("no pagination control")
	}
	if !ctrl.Enabled(ctx) {
		return p.exhaust("pagination control disabled")
	}
	if p.loadingVisible(ctx) {
		p.waitLoading(ctx)
		return p.fail(errors.New("loading indicator visible before click"))
	}

	before := p.signature(ctx)
	p.state = Clicking
	if err := ctrl.Click(ctx); err != nil {
		if errors.Is(err, fetcher.ErrNotInteractive) {
			return p.exhaust("session cannot click")
		}
		return p.fail(err)
	}
	p.clicks++
	p.failures = 0

	p.waitLoading(ctx)
	if !sleep(ctx, p.cfg.SettleDelay) {
		return p.exhaust("cancelled")
	}

	if p.signature(ctx) == before {
		p.stalls++
		if p.stalls >= p.cfg.MaxStalls {
			return p.exhaust("clicks have no effect")
		}
	} else {
		p.stalls = 0
	}

	p.state = Ready
	return true
}

func (p *ClickPaginator) exhaust(reason string) bool {
	p.log.Debug().Str("reason", reason).Int("clicks", p.clicks).Msg("pagination exhausted")
	p.state = Exhausted
	return false
}

// fail counts a consecutive failure; the ceiling exhausts the paginator
func (p *ClickPaginator) fail(err error) bool {
	p.failures++
	p.log.Debug().Err(err).Int("failures", p.failures).Msg("advance failed")
	if p.failures >= p.cfg.MaxFailures {
		return p.exhaust("failure ceiling")
	}
	p.state = Ready
	return true
}

func (p *ClickPaginator) locate(ctx context.Context) fetcher.Element {
	for _, sel := range p.cfg.ControlSelectors {
		els, err := p.session.FindAll(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if el.Visible(ctx) {
				return el
			}
		}
	}
	return nil
}

func (p *ClickPaginator) loadingVisible(ctx context.Context) bool {
	for _, sel := range p.cfg.LoadingSelectors {
		els, err := p.session.FindAll(ctx, sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if el.Visible(ctx) {
				return true
			}
		}
	}
	return false
}

// waitLoading polls until no loading indicator is visible or the wait bound
// passes. Timing out is not an error.
func (p *ClickPaginator) waitLoading(ctx context.Context) {
	deadline := time.Now().Add(p.cfg.WaitTimeout)
	for p.loadingVisible(ctx) && time.Now().Before(deadline) {
		if !sleep(ctx, p.cfg.PollInterval) {
			return
		}
	}
}

// signature summarises the listing so a no-op click can be detected
func (p *ClickPaginator) signature(ctx context.Context) string {
	if p.cfg.ItemSelector != "" {
		els, err := p.session.FindAll(ctx, p.cfg.ItemSelector)
		if err == nil && len(els) > 0 {
			return strconv.Itoa(len(els)) + "|" + els[0].Text() + "|" + els[len(els)-1].Text()
		}
	}
	return strconv.Itoa(fetcher.PageLength(ctx, p.session))
}
