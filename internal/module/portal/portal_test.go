package portal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
	"github.com/project-tktt/ms-job-crawler/internal/module"
)

// staticFetcher serves fixed markup per URL
type staticFetcher struct {
	name  string
	pages map[string]string
	opens int
}

func (f *staticFetcher) Name() string { return f.name }

func (f *staticFetcher) Interactive() bool { return false }

func (f *staticFetcher) Open(ctx context.Context, url string) (fetcher.Session, error) {
	f.opens++
	markup, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", url, errors.New("no such host"))
	}
	return fetcher.NewDocument(url, markup)
}

const cardsPage = `<html><body>
<nav><ul><li><a href="/">Início</a></li><li><a href="/sobre">Sobre nós</a></li></ul></nav>
<div class="job-card"><h3>Analista de Sistemas</h3><span class="location">Campo Grande - MS</span><a href="/vagas/1">Ver</a></div>
<div class="job-card"><h3>Técnico de Enfermagem</h3><span class="location">Dourados</span><a href="/vagas/2">Ver</a></div>
<div class="job-card"><h3>Gerente Comercial</h3><span class="location">Curitiba - PR</span><a href="/vagas/3">Ver</a></div>
<div class="job-card"><h3>Analista de Sistemas</h3><span class="location">Campo Grande - MS</span><a href="/vagas/1?ref=dup">Ver</a></div>
</body></html>`

const textPage = `<html><body>
<h1>Trabalhe conosco</h1>
<p>Estamos com vaga de Assistente Administrativo em Ponta Porã, venha fazer parte do nosso time.</p>
</body></html>`

func newSource(fetchers []fetcher.Fetcher, companies []domain.Company) *Source {
	return NewSource(fetchers, companies, module.NewToolkit(nil), Config{}, zerolog.Nop())
}

func TestExtractPortal_Cards(t *testing.T) {
	f := &staticFetcher{name: "http", pages: map[string]string{"https://rh.example.com/vagas": cardsPage}}
	s := newSource([]fetcher.Fetcher{f}, nil)
	company := domain.Company{ID: 7, Name: "Grupo MS", Sector: "Varejo"}

	recs, err := s.ExtractPortal(context.Background(), company, "https://rh.example.com/vagas")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Analista de Sistemas", recs[0].Title)
	assert.Equal(t, "Campo Grande", recs[0].City)
	assert.Equal(t, "Grupo MS", recs[0].Company)
	assert.Equal(t, 7, recs[0].CompanyID)
	assert.Equal(t, "Varejo", recs[0].Sector)
	assert.Equal(t, "https://rh.example.com/vagas/1", recs[0].Link)
	assert.Equal(t, "card", recs[0].ExtractionMethod)
	assert.Regexp(t, `^portal-7-001-\d{4}$`, recs[0].ID)

	assert.Equal(t, "Dourados", recs[1].City)
	for _, r := range recs {
		assert.True(t, r.RegionVerified)
		assert.Equal(t, domain.RegionCode, r.State)
	}
}

func TestExtractPortal_TextScanWithoutContainers(t *testing.T) {
	f := &staticFetcher{name: "http", pages: map[string]string{"https://a.example/": textPage}}
	s := newSource([]fetcher.Fetcher{f}, nil)

	recs, err := s.ExtractPortal(context.Background(), domain.Company{ID: 3, Name: "Cooperativa"}, "https://a.example/")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Assistente Administrativo", recs[0].Title)
	assert.Equal(t, "Ponta Porã", recs[0].City)
	assert.Equal(t, "semantic", recs[0].ExtractionMethod)
}

func TestExtractPortal_EscalatesToNextFetcher(t *testing.T) {
	empty := &staticFetcher{name: "http", pages: map[string]string{"https://a.example/": "<html><body>carregando...</body></html>"}}
	full := &staticFetcher{name: "browser", pages: map[string]string{"https://a.example/": cardsPage}}
	s := newSource([]fetcher.Fetcher{empty, full}, nil)

	recs, err := s.ExtractPortal(context.Background(), domain.Company{ID: 1, Name: "X"}, "https://a.example/")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, empty.opens)
	assert.Equal(t, 1, full.opens)
}

func TestExtractPortal_EmptyButReachable(t *testing.T) {
	f := &staticFetcher{name: "http", pages: map[string]string{"https://a.example/": "<html><body>Sem vagas no momento</body></html>"}}
	s := newSource([]fetcher.Fetcher{f}, nil)

	recs, err := s.ExtractPortal(context.Background(), domain.Company{Name: "X"}, "https://a.example/")
	assert.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRun_AlternatePortalAndFailures(t *testing.T) {
	f := &staticFetcher{name: "http", pages: map[string]string{"https://alt.example/vagas": cardsPage}}
	companies := []domain.Company{
		{ID: 1, Name: "Com Alternativo", PrimaryPortalURL: "https://down.example/", AlternateURLs: []string{"https://alt.example/vagas"}},
		{ID: 2, Name: "Fora do Ar", PrimaryPortalURL: "https://down.example/2"},
	}
	s := newSource([]fetcher.Fetcher{f}, companies)

	recs, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, 1, r.CompanyID)
	}

	s = newSource([]fetcher.Fetcher{f}, companies[1:])
	recs, err = s.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, recs)
}
