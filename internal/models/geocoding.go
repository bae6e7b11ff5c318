package models

// Field capacities for Candidate text fields. Longer provider values are
// truncated, never rejected.
const (
	CandidateNameCap     = 128
	CandidateCountryCap  = 64
	CandidateCodeCap     = 8
	CandidateAdminCap    = 64
	CandidateTimezoneCap = 64
)

// Candidate is one geocoding search result: a named place with coordinates
// and metadata. Population is 0 when unknown.
type Candidate struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
	Admin1      string  `json:"admin1,omitempty"`
	Admin2      string  `json:"admin2,omitempty"`
	Population  int64   `json:"population,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// ResultSet is an ordered sequence of candidates. Order is the provider's or
// cache's return order unless a consumer explicitly re-sorts.
type ResultSet []Candidate

// Truncate caps s at max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
