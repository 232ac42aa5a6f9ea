package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// companyKeys lists accepted key names per Company field; English first,
// then the Portuguese names used by the original portal catalogue.
var companyKeys = map[string][]string{
	"id":         {"id"},
	"name":       {"name", "nome"},
	"portal":     {"primary_portal_url", "portal_principal", "url", "portal"},
	"alternates": {"alternate_urls", "portais_alternativos", "alternates"},
	"sector":     {"sector", "setor"},
	"city":       {"city", "cidade"},
	"notes":      {"notes", "observacoes", "obs"},
}

// LoadCompanies reads the company list from a YAML or JSON file. It accepts
// a bare list, a {companies: [...]} object, or the catalogue envelope
// {portais_carreiras_ms: {empresas_com_portal_proprio: [...]}}.
func LoadCompanies(path string) ([]domain.Company, Validation, error) {
	var res Validation

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, res, fmt.Errorf("read companies file: %w", err)
	}
	companies, res, err := ParseCompanies(b)
	if err != nil {
		return nil, res, fmt.Errorf("parse %s: %w", path, err)
	}
	return companies, res, nil
}

// ParseCompanies decodes and validates a company list
func ParseCompanies(b []byte) ([]domain.Company, Validation, error) {
	var res Validation

	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, res, fmt.Errorf("yaml unmarshal: %w", err)
	}

	items, ok := companyList(raw)
	if !ok {
		return nil, res, fmt.Errorf("no company list found")
	}

	seenIDs := make(map[int]bool)
	companies := make([]domain.Company, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			res.addWarn("entry %d is not an object, skipped", i)
			continue
		}
		c := companyFromMap(m)
		if c.Name == "" {
			res.addWarn("entry %d has no name, skipped", i)
			continue
		}
		if len(c.Portals()) == 0 {
			res.addWarn("company %q has no portal URL, skipped", c.Name)
			continue
		}
		if c.ID > 0 && seenIDs[c.ID] {
			res.addWarn("company %q reuses id %d", c.Name, c.ID)
		}
		seenIDs[c.ID] = true
		companies = append(companies, c)
	}
	if len(companies) == 0 {
		res.addErr("no usable companies")
	}
	return companies, res, nil
}

func companyList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case map[string]any:
		if list, ok := v["companies"].([]any); ok {
			return list, true
		}
		if catalogue, ok := v["portais_carreiras_ms"].(map[string]any); ok {
			if list, ok := catalogue["empresas_com_portal_proprio"].([]any); ok {
				return list, true
			}
		}
	}
	return nil, false
}

func companyFromMap(m map[string]any) domain.Company {
	return domain.Company{
		ID:               intField(m, companyKeys["id"]),
		Name:             stringField(m, companyKeys["name"]),
		PrimaryPortalURL: stringField(m, companyKeys["portal"]),
		AlternateURLs:    listField(m, companyKeys["alternates"]),
		Sector:           stringField(m, companyKeys["sector"]),
		City:             stringField(m, companyKeys["city"]),
		Notes:            stringField(m, companyKeys["notes"]),
	}
}

func stringField(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func intField(m map[string]any, keys []string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case int:
			return v
		case float64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return i
			}
		}
	}
	return 0
}

func listField(m map[string]any, keys []string) []string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			var out []string
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			return out
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return []string{v}
			}
		}
	}
	return nil
}
