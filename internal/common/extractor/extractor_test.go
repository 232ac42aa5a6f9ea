package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/ms-job-crawler/internal/common/fetcher"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

func TestIsValidTitle(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Analista de Sistemas", true},
		{"ENFERMEIRA PLENO", true},
		{"Técnico de Manutenção", true},
		{"Estágio em Administração", true},
		{"Senior Software Engineer", true},
		{"Jovem Aprendiz", true},
		{"Sobre nós", false},
		{"Entrar", false},
		{"Política de privacidade", false},
		{"Dev", false},
		{"Analista " + strings.Repeat("x", 100), false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidTitle(tt.title), tt.title)
	}
}

func TestHasJobKeyword(t *testing.T) {
	assert.True(t, HasJobKeyword("Confira esta vaga incrível"))
	assert.True(t, HasJobKeyword("Vendedor Externo\nDourados"))
	assert.False(t, HasJobKeyword("Home\nContato\nBlog"))
}

func extractFrom(t *testing.T, markup, selector string) (*Result, *Extractor) {
	t.Helper()
	ctx := context.Background()
	doc, err := fetcher.NewDocument("https://careers.example.com/vagas", markup)
	require.NoError(t, err)
	page, err := NewPageContext(ctx, doc)
	require.NoError(t, err)
	els, err := doc.FindAll(ctx, selector)
	require.NoError(t, err)
	require.NotEmpty(t, els)

	e := New(region.NewClassifier())
	return e.Extract(els[0], page), e
}

func TestExtract_CardStrategy(t *testing.T) {
	res, _ := extractFrom(t, `<html><body>
	<div class="job-card">
		<h3 class="job-title">Analista Financeiro</h3>
		<span class="company">Grupo Exemplo</span>
		<span class="location">Três Lagoas, MS</span>
		<span class="salary">R$ 3.500</span>
		<a href="/vaga/123">Ver vaga</a>
	</div></body></html>`, ".job-card")

	require.NotNil(t, res)
	assert.Equal(t, "card", res.Candidate.Method)
	assert.Equal(t, "Analista Financeiro", res.Candidate.Title)
	assert.Equal(t, "Grupo Exemplo", res.Candidate.Company)
	assert.Equal(t, "R$ 3.500", res.Candidate.Salary)
	assert.Equal(t, "https://careers.example.com/vaga/123", res.Candidate.Link)
	assert.Equal(t, "Três Lagoas", res.Region.City)
}

func TestExtract_RemoteCard(t *testing.T) {
	res, _ := extractFrom(t, `<div class="job"><h2>Desenvolvedor Backend</h2><p class="location">100% Remoto</p></div>`, ".job")
	require.NotNil(t, res)
	assert.Equal(t, domain.RemoteCity, res.Region.City)
}

func TestExtract_TableStrategyUsesHeaders(t *testing.T) {
	res, _ := extractFrom(t, `<table>
	<thead><tr><th>Local</th><th>Cargo</th><th>Contrato</th></tr></thead>
	<tbody><tr class="row"><td>Dourados</td><td>Técnico de Enfermagem</td><td>CLT</td></tr></tbody>
	</table>`, "tr.row")

	require.NotNil(t, res)
	assert.Equal(t, "table", res.Candidate.Method)
	assert.Equal(t, "Técnico de Enfermagem", res.Candidate.Title)
	assert.Equal(t, "Dourados", res.Candidate.Location)
	assert.Equal(t, "CLT", res.Candidate.Contract)
	assert.Equal(t, "Dourados", res.Region.City)
}

func TestExtract_TableStrategyPositional(t *testing.T) {
	res, _ := extractFrom(t, `<table><tr class="row"><td>Motorista Carreteiro</td><td>Coxim - MS</td></tr></table>`, "tr.row")

	require.NotNil(t, res)
	assert.Equal(t, "table", res.Candidate.Method)
	assert.Equal(t, "Motorista Carreteiro", res.Candidate.Title)
	assert.Equal(t, "Coxim", res.Region.City)
}

func TestExtract_ListStrategy(t *testing.T) {
	res, _ := extractFrom(t, `<ul><li class="item"><p>Auxiliar de Produção</p><p>Naviraí - MS</p></li></ul>`, "li.item")

	require.NotNil(t, res)
	assert.Equal(t, "list", res.Candidate.Method)
	assert.Equal(t, "Auxiliar de Produção", res.Candidate.Title)
	assert.Equal(t, "Naviraí - MS", res.Candidate.Location)
	assert.Equal(t, "Naviraí", res.Region.City)
}

func TestExtract_SemanticStrategy(t *testing.T) {
	res, _ := extractFrom(t, `<div class="post"><span>Temos vaga de Operador de Empilhadeira em Maracaju, com início imediato e benefícios completos para toda a família do colaborador contratado.</span></div>`, ".post")

	require.NotNil(t, res)
	assert.Equal(t, "semantic", res.Candidate.Method)
	assert.Equal(t, "Operador de Empilhadeira", res.Candidate.Title)
	assert.Equal(t, "Maracaju", res.Region.City)
}

func TestExtract_RejectsBoilerplateAndOutOfRegion(t *testing.T) {
	res, _ := extractFrom(t, `<div class="card"><h3>Sobre nós</h3><span class="location">Campo Grande</span></div>`, ".card")
	assert.Nil(t, res)

	res, _ = extractFrom(t, `<div class="job"><h3>Analista Contábil</h3><span class="location">São Paulo - SP</span></div>`, ".job")
	assert.Nil(t, res)
}

func TestScanText(t *testing.T) {
	filler := "\n" + strings.Repeat("Lorem ipsum dolor sit amet. ", 12) + "\n"
	page := &PageContext{
		URL: "https://example.com",
		Text: "Trabalhe conosco." + filler +
			"Estamos com vaga de Analista de Logística em Dourados." + filler +
			"Outra vaga de Analista de Logística em Dourados." + filler +
			"Hiring a Senior Data Engineer in Lisbon, Portugal." + filler +
			"Oportunidade para Vendedor Interno, trabalho remoto.",
	}
	e := New(region.NewClassifier())
	got := e.ScanText(page)

	require.Len(t, got, 2)
	assert.Equal(t, "Analista de Logística", got[0].Candidate.Title)
	assert.Equal(t, "Dourados", got[0].Region.City)
	assert.Equal(t, "Vendedor Interno", got[1].Candidate.Title)
	assert.Equal(t, domain.RemoteCity, got[1].Region.City)
}

func TestPageContextHeaders(t *testing.T) {
	page, err := PageContextFromMarkup("u", `<table><tr><th>Título da Vaga</th><th>Cidade</th></tr></table>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"titulo da vaga", "cidade"}, page.Headers)
}
