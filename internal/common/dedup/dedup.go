package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/project-tktt/ms-job-crawler/internal/common/region"
	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

// Set tracks semantic keys already seen. It is safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add records key and reports whether it was new
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys seen
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Key is the semantic key of a record: title, company and city
func Key(r domain.JobRecord) string {
	return hashParts(r.Title, r.Company, r.City)
}

// KeyTitleLocation keys on title and raw location text. It is the key used
// for in-batch suppression, and an alternative key for unification.
func KeyTitleLocation(title, location string) string {
	return hashParts(title, location)
}

func hashParts(parts ...string) string {
	folded := make([]string, len(parts))
	for i, p := range parts {
		folded[i] = region.Fold(p)
	}
	return hashContent(strings.Join(folded, "\x1f"))
}

func hashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:16]) // First 16 bytes (32 hex chars)
}
