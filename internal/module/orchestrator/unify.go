package orchestrator

import (
	"github.com/project-tktt/ms-job-crawler/internal/common/dedup"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// Unify drops records outside the region and collapses records sharing a
// semantic key. The first record seen wins and input order is kept, so
// applying Unify to its own output changes nothing.
func Unify(records []domain.JobRecord) []domain.JobRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]domain.JobRecord, 0, len(records))
	for _, r := range records {
		if !r.RegionVerified {
			continue
		}
		key := dedup.Key(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Aggregate computes the summary counts over a final record set
func Aggregate(records []domain.JobRecord) domain.Summary {
	s := domain.Summary{
		Total:     len(records),
		ByCity:    make(map[string]int),
		ByCompany: make(map[string]int),
		BySector:  make(map[string]int),
	}
	for _, r := range records {
		s.ByCity[r.City]++
		s.ByCompany[r.Company]++
		s.BySector[r.Sector]++
		if r.IsRemote {
			s.Remote++
		} else {
			s.OnSite++
		}
	}
	return s
}
