package domain

import "strings"

// Company is a career portal owner loaded from the companies file
type Company struct {
	ID               int      `yaml:"id" json:"id"`
	Name             string   `yaml:"name" json:"name"`
	PrimaryPortalURL string   `yaml:"primary_portal_url" json:"primary_portal_url"`
	AlternateURLs    []string `yaml:"alternate_urls" json:"alternate_urls"`
	Sector           string   `yaml:"sector" json:"sector"`
	City             string   `yaml:"city" json:"city"`
	Notes            string   `yaml:"notes" json:"notes"`
}

// Portals returns the primary portal followed by the alternates, skipping blanks
func (c Company) Portals() []string {
	out := make([]string, 0, 1+len(c.AlternateURLs))
	if u := strings.TrimSpace(c.PrimaryPortalURL); u != "" {
		out = append(out, u)
	}
	for _, u := range c.AlternateURLs {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ListingOnly reports whether the company is only reachable through a
// professional-network listing, which the engine skips.
func (c Company) ListingOnly() bool {
	notes := strings.ToLower(c.Notes)
	return strings.Contains(notes, "linkedin") ||
		strings.Contains(strings.ToLower(c.PrimaryPortalURL), "linkedin.com")
}
