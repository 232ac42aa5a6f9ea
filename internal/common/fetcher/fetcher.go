package fetcher

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrWaitTimeout means the awaited element did not appear in time
	ErrWaitTimeout = errors.New("wait timeout")
	// ErrNotInteractive is returned by providers that cannot click or navigate in place
	ErrNotInteractive = errors.New("session is not interactive")
)

// Element is one node of a fetched page
type Element interface {
	Text() string
	Attr(name string) (string, bool)
	HTML() string
	Find(selector string) []Element
	Visible(ctx context.Context) bool
	Enabled(ctx context.Context) bool
	Click(ctx context.Context) error
}

// Session is an open page owned by a single caller
type Session interface {
	URL() string
	Markup(ctx context.Context) (string, error)
	Scroll(ctx context.Context) error
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// WaitFor returns ErrWaitTimeout when selector is absent after timeout
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	Navigate(ctx context.Context, url string) error
	Close() error
}

// Measurer is implemented by sessions that can report the rendered page height
type Measurer interface {
	ScrollHeight(ctx context.Context) (int, error)
}

// Fetcher opens sessions. Implementations must return a fresh session per call.
type Fetcher interface {
	Open(ctx context.Context, url string) (Session, error)
	Name() string
	Interactive() bool
}

// PageLength measures a session: rendered height when available, markup length otherwise
func PageLength(ctx context.Context, s Session) int {
	if m, ok := s.(Measurer); ok {
		if h, err := m.ScrollHeight(ctx); err == nil {
			return h
		}
	}
	markup, err := s.Markup(ctx)
	if err != nil {
		return 0
	}
	return len(markup)
}

// First returns the first element matching any of selectors, in order
func First(ctx context.Context, s Session, selectors ...string) Element {
	for _, sel := range selectors {
		els, err := s.FindAll(ctx, sel)
		if err == nil && len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// Resolve makes ref absolute against base and drops any fragment
func Resolve(base, ref string) string {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	if !r.IsAbs() && base != "" {
		if b, err := url.Parse(base); err == nil {
			r = b.ResolveReference(r)
		}
	}
	r.Fragment = ""
	return r.String()
}
