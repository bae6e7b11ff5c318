// Package cities holds a small curated index of major world cities, used as
// the first tier of smart geocoding lookups so common queries never leave the
// process.
package cities

import (
	"sort"
	"strings"

	"github.com/justweather/just-weather/internal/models"
)

// City is one curated entry. Entries carry enough metadata to stand in for a
// live geocoding result.
type City struct {
	Name        string
	Country     string
	CountryCode string
	Latitude    float64
	Longitude   float64
	Population  int64
	Timezone    string
}

// Index answers case-insensitive prefix lookups against a fixed dataset.
// Safe for concurrent use; the dataset never changes after construction.
type Index struct {
	entries []City
}

// NewIndex builds an index over entries, pre-sorted by population descending
// so Search returns the most significant matches first. Pass Defaults() for
// the built-in dataset.
func NewIndex(entries []City) *Index {
	sorted := make([]City, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Population > sorted[j].Population
	})
	return &Index{entries: sorted}
}

// Search returns up to max cities whose name starts with query,
// case-insensitively, ordered by population descending. An empty query
// matches nothing.
func (ix *Index) Search(query string, max int) models.ResultSet {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || max <= 0 {
		return nil
	}

	var set models.ResultSet
	for _, c := range ix.entries {
		if !strings.HasPrefix(strings.ToLower(c.Name), query) {
			continue
		}
		set = append(set, models.Candidate{
			Name:        c.Name,
			Country:     c.Country,
			CountryCode: c.CountryCode,
			Latitude:    c.Latitude,
			Longitude:   c.Longitude,
			Population:  c.Population,
			Timezone:    c.Timezone,
		})
		if len(set) == max {
			break
		}
	}
	return set
}

// Len reports the dataset size.
func (ix *Index) Len() int { return len(ix.entries) }

// Defaults returns the built-in dataset: major world cities by population,
// with capital and well-known mid-size cities mixed in.
func Defaults() []City {
	return []City{
		{"Tokyo", "Japan", "JP", 35.6895, 139.69171, 37400068, "Asia/Tokyo"},
		{"Delhi", "India", "IN", 28.65195, 77.23149, 29399141, "Asia/Kolkata"},
		{"Shanghai", "China", "CN", 31.22222, 121.45806, 26317104, "Asia/Shanghai"},
		{"São Paulo", "Brazil", "BR", -23.5475, -46.63611, 21846507, "America/Sao_Paulo"},
		{"Mexico City", "Mexico", "MX", 19.42847, -99.12766, 21671908, "America/Mexico_City"},
		{"Cairo", "Egypt", "EG", 30.06263, 31.24967, 20484965, "Africa/Cairo"},
		{"Mumbai", "India", "IN", 19.07283, 72.88261, 20185064, "Asia/Kolkata"},
		{"Beijing", "China", "CN", 39.9075, 116.39723, 20035455, "Asia/Shanghai"},
		{"Dhaka", "Bangladesh", "BD", 23.7104, 90.40744, 19577550, "Asia/Dhaka"},
		{"Osaka", "Japan", "JP", 34.69374, 135.50218, 19222665, "Asia/Tokyo"},
		{"New York", "United States", "US", 40.71427, -74.00597, 18804000, "America/New_York"},
		{"Karachi", "Pakistan", "PK", 24.8608, 67.0104, 15400000, "Asia/Karachi"},
		{"Buenos Aires", "Argentina", "AR", -34.61315, -58.37723, 14966530, "America/Argentina/Buenos_Aires"},
		{"Istanbul", "Turkey", "TR", 41.01384, 28.94966, 14804116, "Europe/Istanbul"},
		{"Kolkata", "India", "IN", 22.56263, 88.36304, 14681000, "Asia/Kolkata"},
		{"Lagos", "Nigeria", "NG", 6.45407, 3.39467, 13463000, "Africa/Lagos"},
		{"Manila", "Philippines", "PH", 14.6042, 120.9822, 13482462, "Asia/Manila"},
		{"Rio de Janeiro", "Brazil", "BR", -22.90642, -43.18223, 13374275, "America/Sao_Paulo"},
		{"Guangzhou", "China", "CN", 23.11667, 113.25, 12967862, "Asia/Shanghai"},
		{"Moscow", "Russia", "RU", 55.75222, 37.61556, 12537954, "Europe/Moscow"},
		{"Los Angeles", "United States", "US", 34.05223, -118.24368, 12447000, "America/Los_Angeles"},
		{"Kinshasa", "DR Congo", "CD", -4.32758, 15.31357, 12301000, "Africa/Kinshasa"},
		{"Shenzhen", "China", "CN", 22.54554, 114.0683, 12128721, "Asia/Shanghai"},
		{"Lahore", "Pakistan", "PK", 31.558, 74.35071, 11738000, "Asia/Karachi"},
		{"Bangalore", "India", "IN", 12.97194, 77.59369, 11440000, "Asia/Kolkata"},
		{"Paris", "France", "FR", 48.85341, 2.3488, 11017000, "Europe/Paris"},
		{"Jakarta", "Indonesia", "ID", -6.21462, 106.84513, 10770487, "Asia/Jakarta"},
		{"Chennai", "India", "IN", 13.08784, 80.27847, 10456000, "Asia/Kolkata"},
		{"Lima", "Peru", "PE", -12.04318, -77.02824, 10391000, "America/Lima"},
		{"Bangkok", "Thailand", "TH", 13.75398, 100.50144, 10156000, "Asia/Bangkok"},
		{"Seoul", "South Korea", "KR", 37.566, 126.9784, 9963452, "Asia/Seoul"},
		{"Nagoya", "Japan", "JP", 35.18147, 136.90641, 9507000, "Asia/Tokyo"},
		{"Hyderabad", "India", "IN", 17.38405, 78.45636, 9482000, "Asia/Kolkata"},
		{"London", "United Kingdom", "GB", 51.50853, -0.12574, 9304000, "Europe/London"},
		{"Tehran", "Iran", "IR", 35.69439, 51.42151, 8896000, "Asia/Tehran"},
		{"Chicago", "United States", "US", 41.85003, -87.65005, 8865000, "America/Chicago"},
		{"Chengdu", "China", "CN", 30.66667, 104.06667, 8813000, "Asia/Shanghai"},
		{"Nanjing", "China", "CN", 32.06167, 118.77778, 8245000, "Asia/Shanghai"},
		{"Wuhan", "China", "CN", 30.58333, 114.26667, 8176000, "Asia/Shanghai"},
		{"Ho Chi Minh City", "Vietnam", "VN", 10.82302, 106.62965, 8145000, "Asia/Ho_Chi_Minh"},
		{"Luanda", "Angola", "AO", -8.83682, 13.23432, 7774000, "Africa/Luanda"},
		{"Ahmedabad", "India", "IN", 23.02579, 72.58727, 7681000, "Asia/Kolkata"},
		{"Kuala Lumpur", "Malaysia", "MY", 3.1412, 101.68653, 7564000, "Asia/Kuala_Lumpur"},
		{"Hong Kong", "Hong Kong", "HK", 22.27832, 114.17469, 7482500, "Asia/Hong_Kong"},
		{"Hangzhou", "China", "CN", 30.29365, 120.16142, 7236000, "Asia/Shanghai"},
		{"Riyadh", "Saudi Arabia", "SA", 24.68773, 46.72185, 6907000, "Asia/Riyadh"},
		{"Santiago", "Chile", "CL", -33.45694, -70.64827, 6767000, "America/Santiago"},
		{"Madrid", "Spain", "ES", 40.4165, -3.70256, 6559000, "Europe/Madrid"},
		{"Toronto", "Canada", "CA", 43.70011, -79.4163, 6197000, "America/Toronto"},
		{"Singapore", "Singapore", "SG", 1.28967, 103.85007, 5935000, "Asia/Singapore"},
		{"Houston", "United States", "US", 29.76328, -95.36327, 5464000, "America/Chicago"},
		{"Saint Petersburg", "Russia", "RU", 59.93863, 30.31413, 5383000, "Europe/Moscow"},
		{"Sydney", "Australia", "AU", -33.86785, 151.20732, 4926000, "Australia/Sydney"},
		{"Melbourne", "Australia", "AU", -37.814, 144.96332, 4870000, "Australia/Melbourne"},
		{"Barcelona", "Spain", "ES", 41.38879, 2.15899, 4588000, "Europe/Madrid"},
		{"Johannesburg", "South Africa", "ZA", -26.20227, 28.04363, 4434000, "Africa/Johannesburg"},
		{"Berlin", "Germany", "DE", 52.52437, 13.41053, 3644826, "Europe/Berlin"},
		{"Montreal", "Canada", "CA", 45.50884, -73.58781, 3519595, "America/Toronto"},
		{"Rome", "Italy", "IT", 41.89193, 12.51133, 2872800, "Europe/Rome"},
		{"Kyiv", "Ukraine", "UA", 50.45466, 30.5238, 2797553, "Europe/Kiev"},
		{"Dubai", "United Arab Emirates", "AE", 25.0657, 55.17128, 2655000, "Asia/Dubai"},
		{"Vancouver", "Canada", "CA", 49.24966, -123.11934, 2463000, "America/Vancouver"},
		{"Vienna", "Austria", "AT", 48.20849, 16.37208, 1911191, "Europe/Vienna"},
		{"Warsaw", "Poland", "PL", 52.22977, 21.01178, 1790658, "Europe/Warsaw"},
		{"Budapest", "Hungary", "HU", 47.49835, 19.04045, 1752286, "Europe/Budapest"},
		{"Munich", "Germany", "DE", 48.13743, 11.57549, 1471508, "Europe/Berlin"},
		{"Prague", "Czechia", "CZ", 50.08804, 14.42076, 1301132, "Europe/Prague"},
		{"Milan", "Italy", "IT", 45.46427, 9.18951, 1236837, "Europe/Rome"},
		{"Dallas", "United States", "US", 32.78306, -96.80667, 1197816, "America/Chicago"},
		{"Amsterdam", "Netherlands", "NL", 52.37403, 4.88969, 1166000, "Europe/Amsterdam"},
		{"Stockholm", "Sweden", "SE", 59.32938, 18.06871, 975551, "Europe/Stockholm"},
		{"San Francisco", "United States", "US", 37.77493, -122.41942, 873965, "America/Los_Angeles"},
		{"Seattle", "United States", "US", 47.60621, -122.33207, 737015, "America/Los_Angeles"},
		{"Copenhagen", "Denmark", "DK", 55.67594, 12.56553, 632340, "Europe/Copenhagen"},
		{"Oslo", "Norway", "NO", 59.91273, 10.74609, 580000, "Europe/Oslo"},
		{"Helsinki", "Finland", "FI", 60.16952, 24.93545, 558457, "Europe/Helsinki"},
		{"Lisbon", "Portugal", "PT", 38.71667, -9.13333, 517802, "Europe/Lisbon"},
		{"Dublin", "Ireland", "IE", 53.33306, -6.24889, 506211, "Europe/Dublin"},
		{"Zurich", "Switzerland", "CH", 47.36667, 8.55, 341730, "Europe/Zurich"},
		{"Reykjavik", "Iceland", "IS", 64.13548, -21.89541, 118918, "Atlantic/Reykjavik"},
	}
}
