package pagination

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
)

// ScrollState is the state of a ScrollPaginator
type ScrollState int

const (
	Scrolling ScrollState = iota
	Stalled
	Done
)

func (s ScrollState) String() string {
	switch s {
	case Scrolling:
		return "scrolling"
	case Stalled:
		return "stalled"
	default:
		return "done"
	}
}

// ScrollConfig configures infinite-scroll discovery
type ScrollConfig struct {
	// LinkSelector matches the anchors of postings
	LinkSelector string
	// LinkFilter optionally rejects collected hrefs
	LinkFilter func(href string) bool
	// TotalSelector optionally points at the "N results" counter
	TotalSelector string
	MaxScrolls    int
	SettleDelay   time.Duration
	Stop          StopFunc
}

// ScrollPaginator scrolls a session to the bottom until the page stops
// growing, the known total is reached, or the scroll ceiling is hit.
type ScrollPaginator struct {
	session fetcher.Session
	cfg     ScrollConfig
	log     zerolog.Logger

	state   ScrollState
	scrolls int
	total   int
	urls    []string
	seen    map[string]bool
}

// NewScrollPaginator creates a paginator over an open session
func NewScrollPaginator(s fetcher.Session, cfg ScrollConfig, log zerolog.Logger) *ScrollPaginator {
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 50
	}
	return &ScrollPaginator{
		session: s,
		cfg:     cfg,
		log:     log,
		seen:    make(map[string]bool),
	}
}

func (p *ScrollPaginator) State() ScrollState { return p.state }

func (p *ScrollPaginator) Scrolls() int { return p.scrolls }

// Total is the result count announced by the page, or 0 when unknown
func (p *ScrollPaginator) Total() int { return p.total }

func (p *ScrollPaginator) HasMore() bool { return p.state != Done }

func (p *ScrollPaginator) Advance(ctx context.Context) bool {
	if p.state == Done {
		return false
	}
	if stopped(ctx, p.cfg.Stop) || p.scrolls >= p.cfg.MaxScrolls {
		p.state = Done
		return false
	}

	p.collect(ctx)
	if p.total > 0 && len(p.urls) >= p.total {
		p.log.Debug().Int("urls", len(p.urls)).Int("total", p.total).Msg("known total reached")
		p.state = Done
		return false
	}

	beforeLen := fetcher.PageLength(ctx, p.session)
	beforeURLs := len(p.urls)

	if err := p.session.Scroll(ctx); err != nil {
		p.log.Warn().Err(err).Msg("scroll failed")
		p.state = Done
		return false
	}
	p.scrolls++

	if !sleep(ctx, p.cfg.SettleDelay) {
		p.state = Done
		return false
	}

	afterLen := fetcher.PageLength(ctx, p.session)
	p.collect(ctx)

	grew := afterLen > beforeLen || len(p.urls) > beforeURLs
	switch {
	case grew:
		p.state = Scrolling
	case p.state == Stalled:
		p.log.Debug().Int("scrolls", p.scrolls).Msg("page stopped growing")
		p.state = Done
		return false
	default:
		p.state = Stalled
	}

	if p.scrolls >= p.cfg.MaxScrolls {
		p.log.Debug().Int("scrolls", p.scrolls).Msg("scroll ceiling reached")
		p.state = Done
	}
	return true
}

// Run discovers the announced total, scrolls until done and returns the
// deduplicated posting URLs in discovery order.
func (p *ScrollPaginator) Run(ctx context.Context) []string {
	p.total = p.discoverTotal(ctx)
	for p.HasMore() && p.Advance(ctx) {
		p.log.Debug().
			Int("scrolls", p.scrolls).
			Int("urls", len(p.urls)).
			Str("state", p.state.String()).
			Msg("scrolled")
	}
	p.collect(ctx)
	return p.URLs()
}

// URLs returns a copy of the collected URLs
func (p *ScrollPaginator) URLs() []string {
	out := make([]string, len(p.urls))
	copy(out, p.urls)
	return out
}

func (p *ScrollPaginator) collect(ctx context.Context) {
	if p.cfg.LinkSelector == "" {
		return
	}
	els, err := p.session.FindAll(ctx, p.cfg.LinkSelector)
	if err != nil {
		return
	}
	for _, el := range els {
		href, ok := el.Attr("href")
		if !ok || href == "" {
			continue
		}
		u := fetcher.Resolve(p.session.URL(), href)
		if p.cfg.LinkFilter != nil && !p.cfg.LinkFilter(u) {
			continue
		}
		if p.seen[u] {
			continue
		}
		p.seen[u] = true
		p.urls = append(p.urls, u)
	}
}

func (p *ScrollPaginator) discoverTotal(ctx context.Context) int {
	if p.cfg.TotalSelector == "" {
		return 0
	}
	el := fetcher.First(ctx, p.session, p.cfg.TotalSelector)
	if el == nil {
		return 0
	}
	return ParseCount(el.Text())
}

// ParseCount extracts the first number from a results counter such as
// "1.234 vagas" and returns 0 when there is none.
func ParseCount(text string) int {
	text = strings.TrimSpace(text)
	start := strings.IndexFunc(text, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	var digits strings.Builder
loop:
	for _, r := range text[start:] {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == '.' || r == ',':
			// thousands separator
		default:
			break loop
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
