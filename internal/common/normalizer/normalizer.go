package normalizer

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/project-tktt/ms-job-crawler/internal/common/cleaner"
	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// Normalizer converts extraction candidates into JobRecords. It is safe for
// concurrent use; ids are unique within the normalizer's lifetime.
type Normalizer struct {
	cleaner *cleaner.Cleaner
	now     func() time.Time

	mu  sync.Mutex
	seq map[string]int
}

// NewNormalizer creates a new normalizer
func NewNormalizer(c *cleaner.Cleaner) *Normalizer {
	if c == nil {
		c = cleaner.NewCleaner()
	}
	return &Normalizer{
		cleaner: c,
		now:     time.Now,
		seq:     make(map[string]int),
	}
}

// Build assembles a record from a candidate and its region classification.
// company may be nil for aggregator sources.
func (n *Normalizer) Build(src domain.Source, company *domain.Company, c domain.Candidate, r region.Result) domain.JobRecord {
	now := n.now()

	rec := domain.JobRecord{
		Title:            cleanLine(c.Title),
		Company:          cleanLine(c.Company),
		CompanyID:        domain.UnknownCompID,
		City:             r.City,
		State:            domain.RegionCode,
		FullLocationText: cleanLine(c.Location),
		Link:             strings.TrimSpace(c.Link),
		CollectedAt:      now,
		RegionVerified:   r.IsRegion,
		ExtractionMethod: c.Method,
		Description:      n.cleaner.CleanToText(c.Description),
		Responsibilities: n.cleaner.CleanToText(c.Responsibilities),
		Requirements:     n.cleaner.CleanToText(c.Requirements),
		Benefits:         n.cleaner.CleanToText(c.Benefits),
		Salary:           cleanLine(c.Salary),
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
	}

	if company != nil {
		if rec.Company == "" {
			rec.Company = company.Name
		}
		if company.ID > 0 {
			rec.CompanyID = company.ID
		}
		rec.Sector = company.Sector
	}
	if rec.Company == "" {
		rec.Company = domain.CompanyNotInformed
	}
	if rec.City == "" {
		rec.City = domain.DefaultCity
	}
	if rec.FullLocationText == "" {
		rec.FullLocationText = cleanLine(r.RawMatch)
	}
	if rec.ExtractionMethod == "" {
		rec.ExtractionMethod = string(src)
	}
	rec.IsRemote = rec.City == domain.RemoteCity

	text := strings.Join([]string{c.Contract, rec.Title, rec.Description, rec.Requirements}, "\n")
	rec.ContractType = InferContract(c.Contract)
	if rec.ContractType == domain.ContractNotStated {
		rec.ContractType = InferContract(text)
	}
	if rec.Sector == "" {
		rec.Sector = InferSector(rec.Title + "\n" + rec.Description)
	}

	if rec.Latitude == nil || rec.Longitude == nil {
		if lat, lon, ok := region.Coordinates(rec.City); ok {
			rec.Latitude, rec.Longitude = &lat, &lon
		}
	}

	rec.ID = n.nextID(src, company, now)
	return rec
}

// nextID returns <source>-<seq:04d>-<unix%10000>, or
// <source>-<companyId>-<seq:03d>-<unix%10000> for company portals.
func (n *Normalizer) nextID(src domain.Source, company *domain.Company, now time.Time) string {
	prefix := string(src)
	if company != nil && company.ID > 0 {
		prefix = fmt.Sprintf("%s-%d", src, company.ID)
	}

	n.mu.Lock()
	n.seq[prefix]++
	seq := n.seq[prefix]
	n.mu.Unlock()

	suffix := now.Unix() % 10000
	if company != nil && company.ID > 0 {
		return fmt.Sprintf("%s-%03d-%04d", prefix, seq, suffix)
	}
	return fmt.Sprintf("%s-%04d-%04d", prefix, seq, suffix)
}

func cleanLine(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
