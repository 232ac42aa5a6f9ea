package normalizer

import (
	"strings"

	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

type rule struct {
	value string
	// tokens must match a whole word; stems match any word prefix
	tokens []string
	stems  []string
}

var contractRules = []rule{
	{value: domain.ContractApprentice, stems: []string{"aprendiz", "apprentice"}},
	{value: domain.ContractInternship, stems: []string{"estagi", "internship"}},
	{value: domain.ContractTemporary, stems: []string{"temporari", "terceiriz", "temporary"}},
	{value: domain.ContractContractor, tokens: []string{"pj"}, stems: []string{"freelancer", "autonom", "contractor"}},
	{value: domain.ContractStandard, tokens: []string{"clt"}, stems: []string{"efetiv", "carteira", "permanent"}},
}

var sectorRules = []rule{
	{value: "Tecnologia", tokens: []string{"ti", "dados"}, stems: []string{"desenvolvedor", "programador", "software", "sistemas", "developer", "infraestrutura", "suporte"}},
	{value: "Saúde", stems: []string{"enfermeir", "enfermagem", "medic", "hospital", "saude", "farmac", "fisioterap", "clinic", "odonto"}},
	{value: "Educação", stems: []string{"professor", "educa", "escola", "ensino", "pedagog", "docente"}},
	{value: "Agronegócio", stems: []string{"agro", "agricol", "fazenda", "rural", "zootecn", "veterinari", "usina", "pecuari", "colheita"}},
	{value: "Logística", stems: []string{"logistic", "motorista", "entregador", "armazem", "estoquista", "transport", "almoxarif"}},
	{value: "Varejo", stems: []string{"vendedor", "vendas", "loja", "varejo", "repositor", "atendente", "caixa"}},
	{value: "Finanças", stems: []string{"financeir", "contab", "banco", "credito", "fiscal", "tesouraria"}},
	{value: "Indústria", stems: []string{"industri", "producao", "operador", "manutencao", "soldador", "mecanic", "eletricista", "montador"}},
	{value: "Serviços", stems: []string{"limpeza", "portaria", "porteiro", "vigilante", "zelador", "recepcionista", "cozinh"}},
}

// InferContract maps free text to the contract vocabulary
func InferContract(text string) string {
	if v := match(contractRules, text); v != "" {
		return v
	}
	return domain.ContractNotStated
}

// InferSector guesses a sector from title and description keywords
func InferSector(text string) string {
	if v := match(sectorRules, text); v != "" {
		return v
	}
	return domain.SectorNotInformed
}

func match(rules []rule, text string) string {
	words := strings.FieldsFunc(region.Fold(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	if len(words) == 0 {
		return ""
	}
	for _, rl := range rules {
		for _, w := range words {
			for _, t := range rl.tokens {
				if w == t {
					return rl.value
				}
			}
			for _, s := range rl.stems {
				if strings.HasPrefix(w, s) {
					return rl.value
				}
			}
		}
	}
	return ""
}
