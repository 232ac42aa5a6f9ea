package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
)

type fakeElement struct {
	text     string
	attrs    map[string]string
	hidden   bool
	disabled bool
	onClick  func() error
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) HTML() string { return e.text }

func (e *fakeElement) Find(string) []fetcher.Element { return nil }

func (e *fakeElement) Visible(context.Context) bool { return !e.hidden }

func (e *fakeElement) Enabled(context.Context) bool { return !e.disabled }

func (e *fakeElement) Click(ctx context.Context) error {
	if e.onClick == nil {
		return nil
	}
	return e.onClick()
}

// fakeSession serves a fixed element table plus a growing list of links
type fakeSession struct {
	url      string
	height   int
	growBy   int
	scrolls  int
	links    []string
	visible  int
	perPage  int
	elements map[string][]fetcher.Element
}

func (s *fakeSession) URL() string { return s.url }

func (s *fakeSession) Markup(context.Context) (string, error) {
	return fmt.Sprintf("<html>%d</html>", s.height), nil
}

func (s *fakeSession) ScrollHeight(context.Context) (int, error) { return s.height, nil }

func (s *fakeSession) Scroll(context.Context) error {
	s.scrolls++
	s.height += s.growBy
	s.visible += s.perPage
	if s.visible > len(s.links) {
		s.visible = len(s.links)
	}
	return nil
}

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]fetcher.Element, error) {
	if selector == "a.job" {
		out := make([]fetcher.Element, 0, s.visible)
		for _, l := range s.links[:s.visible] {
			out = append(out, &fakeElement{attrs: map[string]string{"href": l}})
		}
		return out, nil
	}
	return s.elements[selector], nil
}

func (s *fakeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (fetcher.Element, error) {
	if els := s.elements[selector]; len(els) > 0 {
		return els[0], nil
	}
	return nil, fetcher.ErrWaitTimeout
}

func (s *fakeSession) Navigate(context.Context, string) error { return nil }

func (s *fakeSession) Close() error { return nil }

func items(n int) []fetcher.Element {
	out := make([]fetcher.Element, n)
	for i := range out {
		out[i] = &fakeElement{text: fmt.Sprintf("item %d", i)}
	}
	return out
}
