package config

import "fmt"

// Validation collects problems found in a configuration
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Validate checks ceilings and source combinations
func (c *Config) Validate() Validation {
	var res Validation

	s := c.Sources
	if !s.InfoJobs.Enabled && !s.Gupy.Enabled && !s.HCM.Enabled && !s.Portal.Enabled {
		res.addErr("all sources are disabled")
	}
	if s.InfoJobs.Enabled && s.InfoJobs.MaxScrolls <= 0 {
		res.addErr("INFOJOBS_MAX_SCROLLS must be > 0 (got %d)", s.InfoJobs.MaxScrolls)
	}
	if s.InfoJobs.Enabled && s.InfoJobs.URL == "" {
		res.addErr("INFOJOBS_URL is empty")
	}
	if s.Gupy.Enabled && s.Gupy.MaxPages <= 0 {
		res.addErr("GUPY_MAX_PAGES must be > 0 (got %d)", s.Gupy.MaxPages)
	}
	if s.Portal.Enabled && s.Portal.MaxPages <= 0 {
		res.addErr("PORTAL_MAX_PAGES must be > 0 (got %d)", s.Portal.MaxPages)
	}
	if s.HCM.Enabled && (s.HCM.MaxPages <= 0 || s.HCM.PageSize <= 0) {
		res.addErr("HCM_MAX_PAGES and HCM_PAGE_SIZE must be > 0")
	}
	if c.Worker.Concurrency < 0 {
		res.addErr("WORKER_CONCURRENCY must be >= 0 (got %d)", c.Worker.Concurrency)
	}
	if c.Worker.Concurrency > 16 {
		res.addWarn("WORKER_CONCURRENCY %d is above the recommended maximum of 16", c.Worker.Concurrency)
	}

	if !c.Browser.Enabled {
		if s.InfoJobs.Enabled {
			res.addWarn("browser disabled: infojobs will only see the first page of results")
		}
		if s.Gupy.Enabled || s.Portal.Enabled {
			res.addWarn("browser disabled: click pagination is unavailable, only first pages are read")
		}
	}
	if c.Crawler.RequestDelay <= 0 {
		res.addWarn("CRAWLER_DELAY is 0: requests are not spaced")
	}
	if c.Crawler.WaitTimeout <= 0 || c.Crawler.PageTimeout <= 0 {
		res.addErr("PAGE_TIMEOUT and WAIT_TIMEOUT must be > 0")
	}
	return res
}
