package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/project-tktt/ms-job-crawler/internal/common/region"
)

const (
	minTitleLen = 5
	maxTitleLen = 100
)

// roleStems are folded prefixes of role nouns. A token matches when it
// starts with a stem, so "enfermeira" and "analistas" both count.
var roleStems = []string{
	"analist", "tecnic", "assistent", "auxiliar", "coordenador", "gerente",
	"operador", "especialista", "supervisor", "engenheir", "desenvolvedor",
	"programador", "consultor", "diretor", "trainee", "estagi", "aprendiz",
	"vendedor", "motorista", "atendente", "recepcionista", "enfermeir",
	"medic", "professor", "advogad", "contador", "mecanic", "eletricista",
	"soldador", "cozinheir", "farmaceutic", "representante", "promotor",
	"encarregad", "lider", "agente", "executiv", "designer", "caixa",
	"repositor", "estoquista", "porteiro", "vigilante", "zelador",
	"montador", "pedreiro", "secretari", "fisioterapeut", "nutricionist",
	"psicolog", "veterinari", "agronom", "zootecnist", "biolog",
	"developer", "engineer", "analyst", "manager", "assistant", "technician",
	"internship", "coordinator", "specialist", "consultant", "director",
	"operator", "nurse", "driver", "administrador", "comprador", "almoxarife",
}

// jobKeywords mark a text block as job related for the list strategy
var jobKeywords = []string{
	"vaga", "oportunidade", "contrata", "emprego", "cargo", "candidat",
	"requisitos", "beneficios", "salario", "job", "hiring", "position",
}

// IsValidTitle reports whether s looks like a job title: 5 to 100
// characters holding at least one role noun.
func IsValidTitle(s string) bool {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < minTitleLen || n > maxTitleLen {
		return false
	}
	for _, tok := range strings.FieldsFunc(region.Fold(s), isTokenSep) {
		for _, stem := range roleStems {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}

// HasJobKeyword reports whether text mentions job-domain vocabulary
func HasJobKeyword(text string) bool {
	folded := region.Fold(text)
	for _, kw := range jobKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return IsValidTitle(firstLine(text))
}

func isTokenSep(r rune) bool {
	return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
