package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
)

func linkList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/vaga-de-analista-%d.aspx", i)
	}
	return out
}

func TestScroll_TerminatesOnCeilingWithInfiniteGrowth(t *testing.T) {
	s := &fakeSession{url: "https://site.example/list", height: 1000, growBy: 500, links: linkList(1000), visible: 10, perPage: 10}
	p := NewScrollPaginator(s, ScrollConfig{LinkSelector: "a.job", MaxScrolls: 5}, zerolog.Nop())

	urls := p.Run(context.Background())

	assert.Equal(t, 5, s.scrolls)
	assert.Equal(t, 5, p.Scrolls())
	assert.Equal(t, Done, p.State())
	assert.False(t, p.HasMore())
	assert.Len(t, urls, 60)
	assert.Equal(t, "https://site.example/vaga-de-analista-0.aspx", urls[0])
}

func TestScroll_StallsAfterTwoUnchangedScrolls(t *testing.T) {
	s := &fakeSession{url: "https://site.example", height: 1000, links: linkList(5), visible: 5}
	p := NewScrollPaginator(s, ScrollConfig{LinkSelector: "a.job", MaxScrolls: 50}, zerolog.Nop())

	require.True(t, p.Advance(context.Background()))
	assert.Equal(t, Stalled, p.State())
	assert.False(t, p.Advance(context.Background()))
	assert.Equal(t, Done, p.State())
	assert.Equal(t, 2, s.scrolls)
	assert.Len(t, p.URLs(), 5)
}

func TestScroll_GrowthResetsStall(t *testing.T) {
	s := &fakeSession{url: "https://site.example", height: 1000, links: linkList(5), visible: 5}
	p := NewScrollPaginator(s, ScrollConfig{LinkSelector: "a.job"}, zerolog.Nop())

	require.True(t, p.Advance(context.Background()))
	assert.Equal(t, Stalled, p.State())
	s.growBy = 100
	require.True(t, p.Advance(context.Background()))
	assert.Equal(t, Scrolling, p.State())
}

func TestScroll_StopsAtKnownTotal(t *testing.T) {
	s := &fakeSession{
		url: "https://site.example", height: 1000, growBy: 100,
		links: linkList(10), visible: 2, perPage: 2,
		elements: map[string][]fetcher.Element{
			"#resumeVacancies span": {&fakeElement{text: "3 vagas"}},
		},
	}
	p := NewScrollPaginator(s, ScrollConfig{
		LinkSelector:  "a.job",
		TotalSelector: "#resumeVacancies span",
		MaxScrolls:    50,
	}, zerolog.Nop())

	urls := p.Run(context.Background())
	assert.Equal(t, 3, p.Total())
	assert.Equal(t, 1, s.scrolls)
	assert.Len(t, urls, 4)
}

func TestScroll_StopFlagAndFilter(t *testing.T) {
	s := &fakeSession{url: "https://site.example", height: 1, growBy: 1, links: []string{"/vaga-de-a", "/empresa-x", "/vaga-de-a#top"}, visible: 3}
	stop := false
	p := NewScrollPaginator(s, ScrollConfig{
		LinkSelector: "a.job",
		LinkFilter:   func(u string) bool { return !strings.Contains(u, "/empresa") },
		Stop:         func() bool { return stop },
	}, zerolog.Nop())

	require.True(t, p.Advance(context.Background()))
	stop = true
	assert.False(t, p.Advance(context.Background()))
	assert.Equal(t, 1, s.scrolls)
	assert.Equal(t, []string{"https://site.example/vaga-de-a"}, p.URLs())
}

func TestScroll_CancelledContext(t *testing.T) {
	s := &fakeSession{url: "https://site.example", height: 1, growBy: 1, links: linkList(1), visible: 1}
	p := NewScrollPaginator(s, ScrollConfig{LinkSelector: "a.job", SettleDelay: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	urls := p.Run(ctx)
	assert.Equal(t, Done, p.State())
	assert.Len(t, urls, 1)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1.234 vagas", 1234},
		{"Mostrando 87 resultados", 87},
		{"12,500", 12500},
		{"nenhuma", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCount(tt.in), tt.in)
	}
}

// clickSession wires a "load more" button that appends items until a limit
func clickSession(limit int) (*fakeSession, *fakeElement) {
	s := &fakeSession{url: "https://portal.example", elements: map[string][]fetcher.Element{}}
	s.elements[".item"] = items(10)
	btn := &fakeElement{text: "Carregar mais"}
	btn.onClick = func() error {
		s.elements[".item"] = items(len(s.elements[".item"]) + 10)
		if len(s.elements[".item"]) >= limit {
			delete(s.elements, "button.more")
		}
		return nil
	}
	s.elements["button.more"] = []fetcher.Element{btn}
	return s, btn
}

func clickCfg() ClickConfig {
	return ClickConfig{
		ControlSelectors: []string{"button.missing", "button.more"},
		LoadingSelectors: []string{".spinner"},
		ItemSelector:     ".item",
		WaitTimeout:      20 * time.Millisecond,
		PollInterval:     time.Millisecond,
	}
}

func TestClick_UntilControlDisappears(t *testing.T) {
	s, _ := clickSession(40)
	p := NewClickPaginator(s, clickCfg(), zerolog.Nop())

	for p.HasMore() && p.Advance(context.Background()) {
	}
	assert.Equal(t, 3, p.Clicks())
	assert.Equal(t, Exhausted, p.State())
	assert.Len(t, s.elements[".item"], 40)
}

func TestClick_DisabledControl(t *testing.T) {
	s, btn := clickSession(100)
	btn.disabled = true
	p := NewClickPaginator(s, clickCfg(), zerolog.Nop())

	assert.False(t, p.Advance(context.Background()))
	assert.Equal(t, Exhausted, p.State())
	assert.Equal(t, 0, p.Clicks())
}

func TestClick_HiddenControlIsNotFound(t *testing.T) {
	s, btn := clickSession(100)
	btn.hidden = true
	p := NewClickPaginator(s, clickCfg(), zerolog.Nop())
	assert.False(t, p.Advance(context.Background()))
}

func TestClick_SilentNoOpStalls(t *testing.T) {
	s, btn := clickSession(100)
	btn.onClick = func() error { return nil }
	p := NewClickPaginator(s, clickCfg(), zerolog.Nop())

	assert.True(t, p.Advance(context.Background()))
	assert.False(t, p.Advance(context.Background()))
	assert.Equal(t, 2, p.Clicks())
	assert.Equal(t, Exhausted, p.State())
}

func TestClick_FailureCeiling(t *testing.T) {
	s, btn := clickSession(100)
	btn.onClick = func() error { return errors.New("element detached") }
	p := NewClickPaginator(s, clickCfg(), zerolog.Nop())

	assert.True(t, p.Advance(context.Background()))
	assert.True(t, p.Advance(context.Background()))
	assert.False(t, p.Advance(context.Background()))
	assert.Equal(t, 0, p.Clicks())
}

func TestClick_LoadingIndicatorNeverClears(t *testing.T) {
	s, _ := clickSession(100)
	s.elements[".spinner"] = []fetcher.Element{&fakeElement{}}
	cfg := clickCfg()
	cfg.MaxFailures = 2
	p := NewClickPaginator(s, cfg, zerolog.Nop())

	start := time.Now()
	assert.True(t, p.Advance(context.Background()))
	assert.False(t, p.Advance(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, p.Clicks())
}

func TestClick_MarkupOnlySessionExhausts(t *testing.T) {
	doc, err := fetcher.NewDocument("https://portal.example", `<button class="more">Carregar mais</button>`)
	require.NoError(t, err)
	p := NewClickPaginator(doc, clickCfg(), zerolog.Nop())

	assert.False(t, p.Advance(context.Background()))
	assert.Equal(t, Exhausted, p.State())
}

func TestClick_ClickCeiling(t *testing.T) {
	s, _ := clickSession(1000)
	cfg := clickCfg()
	cfg.MaxClicks = 4
	p := NewClickPaginator(s, cfg, zerolog.Nop())

	for p.HasMore() && p.Advance(context.Background()) {
	}
	assert.Equal(t, 4, p.Clicks())
}
