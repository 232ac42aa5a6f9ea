package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// FieldAliases lists, per logical attribute, the upstream field names tried
// in order. Dotted names walk nested objects. New platform variants are
// supported by adding names here.
var FieldAliases = map[string][]string{
	"title":            {"title", "name", "jobTitle", "position", "titulo", "nome", "cargo", "jobName", "vacancyName", "nomeVaga"},
	"company":          {"companyName", "company.name", "company", "empresa", "branchName", "employer"},
	"city":             {"city", "cidade", "location.city", "address.city", "workplace.city", "jobLocation.city", "municipio", "localidade"},
	"state":            {"state", "uf", "estado", "location.state", "address.state", "workplace.state", "jobLocation.state"},
	"location":         {"location", "localizacao", "local", "workplace", "location.name", "address.full"},
	"remote":           {"remote", "isRemote", "remoto", "homeOffice", "workplaceType", "workModel"},
	"description":      {"description", "descricao", "jobDescription", "summary", "resumo"},
	"responsibilities": {"responsibilities", "responsabilidades", "atividades", "activities"},
	"requirements":     {"requirements", "requisitos", "prerequisites", "qualifications"},
	"benefits":         {"benefits", "beneficios", "perks"},
	"contract":         {"contractType", "employmentType", "tipoContrato", "contract", "regime", "workType", "type"},
	"salary":           {"salary", "salario", "remuneracao", "salaryRange", "compensation"},
	"link":             {"url", "link", "applyUrl", "jobUrl", "publicUrl", "href"},
	"id":               {"id", "jobId", "vacancyId", "code", "codigo"},
	"published":        {"publishedDate", "publishedAt", "createdAt", "dataPublicacao", "postedAt"},
	"latitude":         {"latitude", "lat", "location.latitude", "address.latitude"},
	"longitude":        {"longitude", "lng", "lon", "location.longitude", "address.longitude"},
}

// MapRecord maps one decoded API job object into a candidate
func MapRecord(data map[string]any) domain.Candidate {
	c := domain.Candidate{
		Title:            field(data, "title"),
		Company:          field(data, "company"),
		Description:      field(data, "description"),
		Responsibilities: field(data, "responsibilities"),
		Requirements:     field(data, "requirements"),
		Benefits:         field(data, "benefits"),
		Contract:         field(data, "contract"),
		Salary:           field(data, "salary"),
		Link:             field(data, "link"),
		Date:             field(data, "published"),
		Location:         locationOf(data),
	}
	if lat, ok := getFloat(data, FieldAliases["latitude"]...); ok {
		c.Latitude = &lat
	}
	if lon, ok := getFloat(data, FieldAliases["longitude"]...); ok {
		c.Longitude = &lon
	}
	return c
}

// RecordID returns the upstream id of a job object, if any
func RecordID(data map[string]any) string {
	return field(data, "id")
}

func field(data map[string]any, name string) string {
	return getString(data, FieldAliases[name]...)
}

// locationOf joins city and state, or falls back to a free-text location.
// A remote flag adds a remote marker the classifier understands.
func locationOf(data map[string]any) string {
	var parts []string
	if city := field(data, "city"); city != "" {
		parts = append(parts, city)
		if state := field(data, "state"); state != "" {
			parts = append(parts, state)
		}
	} else if loc := field(data, "location"); loc != "" {
		parts = append(parts, loc)
	}
	if isRemote(data) {
		parts = append(parts, "Remoto")
	}
	return strings.Join(parts, " - ")
}

func isRemote(data map[string]any) bool {
	for _, key := range FieldAliases["remote"] {
		switch v := lookup(data, key).(type) {
		case bool:
			if v {
				return true
			}
		case string:
			s := strings.ToLower(v)
			if s == "true" || strings.Contains(s, "remot") || strings.Contains(s, "home") || strings.Contains(s, "hybrid") || strings.Contains(s, "hibrid") {
				return true
			}
		}
	}
	return false
}

// lookup resolves a dotted path inside nested objects
func lookup(data map[string]any, path string) any {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}

func getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := lookup(data, key).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case []any:
			if s := joinStrings(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func getFloat(data map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := lookup(data, key).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// joinStrings renders a list of strings (or objects with a name) as lines
func joinStrings(items []any) string {
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		case map[string]any:
			if s := getString(v, "name", "description", "nome", "descricao"); s != "" {
				out = append(out, s)
			}
		case float64:
			out = append(out, fmt.Sprint(v))
		}
	}
	return strings.Join(out, "\n")
}
