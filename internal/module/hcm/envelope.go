package hcm

import (
	"encoding/json"

	"github.com/project-tktt/ms-job-crawler/internal/common/normalizer"
)

// envelopeKeys are the wrapper fields known to hold the job list
var envelopeKeys = []string{"content", "data", "vacancies", "result", "results", "items", "jobs", "vagas"}

// decodeEnvelope accepts a wrapped list, a bare list, or a bare job object.
// ok is false when the body is none of those.
func decodeEnvelope(body []byte) (items []map[string]any, ok bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return unwrap(v, 2)
}

func unwrap(v any, depth int) ([]map[string]any, bool) {
	switch t := v.(type) {
	case []any:
		return objects(t), true
	case map[string]any:
		for _, k := range envelopeKeys {
			inner, present := t[k]
			if !present {
				continue
			}
			if inner == nil {
				return nil, true
			}
			if depth > 0 {
				if items, ok := unwrap(inner, depth-1); ok {
					return items, true
				}
			}
		}
		if looksLikeJob(t) {
			return []map[string]any{t}, true
		}
	}
	return nil, false
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func looksLikeJob(m map[string]any) bool {
	for _, k := range normalizer.FieldAliases["title"] {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
