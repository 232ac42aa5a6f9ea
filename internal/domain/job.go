package domain

import "time"

// Region constants for the target state
const (
	RegionCode    = "MS"
	RegionName    = "Mato Grosso do Sul"
	DefaultCity   = "Campo Grande"
	RemoteCity    = "Remote"
	UnknownCompID = 9999
)

// JobRecord represents a normalized job posting from any source
type JobRecord struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	CompanyID        int       `json:"company_id"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	FullLocationText string    `json:"full_location_text"`
	Sector           string    `json:"sector"`
	ContractType     string    `json:"contract_type"`
	IsRemote         bool      `json:"is_remote"`
	Link             string    `json:"link"`
	CollectedAt      time.Time `json:"collected_at"`
	RegionVerified   bool      `json:"region_verified"`
	ExtractionMethod string    `json:"extraction_method"` // diagnostics only

	Responsibilities string `json:"responsibilities,omitempty"`
	Requirements     string `json:"requirements,omitempty"`
	Benefits         string `json:"benefits,omitempty"`
	Description      string `json:"description,omitempty"`
	Salary           string `json:"salary,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Candidate is the raw result of one extraction attempt, before classification
type Candidate struct {
	Title            string
	Company          string
	Location         string
	Date             string
	Salary           string
	Contract         string
	Link             string
	Description      string
	Responsibilities string
	Requirements     string
	Benefits         string
	Latitude         *float64
	Longitude        *float64
	Method           string
}

// Source represents a job listing source kind
type Source string

const (
	SourceInfoJobs Source = "infojobs"
	SourceGupy     Source = "gupy"
	SourceHCM      Source = "hcm"
	SourcePortal   Source = "portal"
)

// Contract type vocabulary
const (
	ContractStandard   = "standard"
	ContractContractor = "contractor"
	ContractInternship = "internship"
	ContractTemporary  = "temporary"
	ContractApprentice = "apprentice"
	ContractNotStated  = "not stated"
	SectorNotInformed  = "Não informado"
	CompanyNotInformed = "Não informado"
)

// Summary holds aggregates computed once over the final record set
type Summary struct {
	Total     int            `json:"total"`
	ByCity    map[string]int `json:"by_city"`
	ByCompany map[string]int `json:"by_company"`
	BySector  map[string]int `json:"by_sector"`
	Remote    int            `json:"remote"`
	OnSite    int            `json:"on_site"`
}
