// Package geocode resolves city queries into place candidates through a
// three-tier fallback chain: curated in-memory index, TTL-bound disk cache,
// live geocoding API. Call sites choose per lookup whether the shared cache
// may be populated (ordinary searches) or must not be (autocomplete-style
// partial queries).
package geocode

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/justweather/just-weather/internal/cachekey"
	"github.com/justweather/just-weather/internal/diskcache"
	"github.com/justweather/just-weather/internal/models"
	"github.com/justweather/just-weather/internal/observability"
)

const apiBaseURL = "http://geocoding-api.open-meteo.com/v1/search"

// ErrInvalidQuery is returned for an empty city name, before any I/O.
var ErrInvalidQuery = errors.New("invalid geocoding query")

// ErrQueryTooShort is returned by SearchSmart for queries under two
// characters.
var ErrQueryTooShort = errors.New("query too short (min 2 characters)")

// ErrUpstreamFailure covers transport errors and timeouts from the provider.
var ErrUpstreamFailure = errors.New("geocoding upstream failure")

// ErrMalformedResponse is returned when the provider body does not parse or
// the results field has the wrong shape.
var ErrMalformedResponse = errors.New("malformed geocoding response")

// Fetcher is the blocking fetch contract the resolver consumes; satisfied by
// fetch.Bridge.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// CityIndex is the curated in-memory dataset consulted as the first smart
// search tier. Injected at construction; nil disables the tier.
type CityIndex interface {
	Search(query string, max int) models.ResultSet
}

// Config holds the geocoding resolver settings, fixed at construction.
type Config struct {
	CacheDir   string
	CacheTTL   time.Duration
	UseCache   bool
	MaxResults int
	Language   string
}

// Resolver answers place lookups. Each resolver owns its store and
// configuration; there is no process-wide state.
type Resolver struct {
	cfg     Config
	store   *diskcache.Store
	fetcher Fetcher
	cities  CityIndex
	logger  *zap.Logger
}

// NewResolver creates a resolver and its cache directory. cities may be nil.
func NewResolver(cfg Config, fetcher Fetcher, cities CityIndex, logger *zap.Logger) *Resolver {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &Resolver{
		cfg:     cfg,
		store:   diskcache.NewStore(cfg.CacheDir, cfg.CacheTTL, logger),
		fetcher: fetcher,
		cities:  cities,
		logger:  logger,
	}
}

// Search is the read-write lookup: a fresh cache entry returns immediately;
// a miss fetches live and persists the full result array. The key is derived
// from the normalized name only; country acts as a provider-side filter, not
// part of the key, so all variants of one city share a cache slot.
func (r *Resolver) Search(name, country string) (models.ResultSet, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidQuery
	}

	key := cachekey.City(name)
	if set, ok := r.loadFresh(key); ok {
		return set, nil
	}

	set, err := r.fetchSearch(name, country)
	if err != nil {
		return nil, err
	}

	if r.cfg.UseCache {
		if err := r.persist(key, set); err != nil {
			observability.CacheWriteFailuresTotal.WithLabelValues("geocoding").Inc()
			r.logger.Warn("geocoding cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return set, nil
}

// SearchNoCache always fetches live and never reads or writes the cache.
// Used where repeated partial input must not pollute the shared cache.
func (r *Resolver) SearchNoCache(name, country string) (models.ResultSet, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidQuery
	}
	return r.fetchSearch(name, country)
}

// SearchReadonlyCache reads a fresh cache entry if one exists; on miss it
// fetches live but does not write back, so the lookup benefits from existing
// entries without creating new ones.
func (r *Resolver) SearchReadonlyCache(name, country string) (models.ResultSet, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidQuery
	}
	if set, ok := r.loadFresh(cachekey.City(name)); ok {
		return set, nil
	}
	return r.fetchSearch(name, country)
}

// SearchSmart is the three-tier autocomplete path: curated index, read-only
// cache, live API. Each tier runs only when the previous one produced zero
// results or failed; a tier's transport failure falls through rather than
// aborting the chain.
func (r *Resolver) SearchSmart(query string) (models.ResultSet, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, ErrQueryTooShort
	}

	if r.cities != nil {
		if set := r.cities.Search(query, r.cfg.MaxResults); len(set) > 0 {
			r.logger.Debug("smart search served from curated index",
				zap.String("query", query), zap.Int("results", len(set)))
			return set, nil
		}
	}

	if set, err := r.SearchReadonlyCache(query, ""); err == nil && len(set) > 0 {
		r.logger.Debug("smart search served from cache",
			zap.String("query", query), zap.Int("results", len(set)))
		return set, nil
	} else if err != nil {
		r.logger.Debug("smart search cache tier failed", zap.String("query", query), zap.Error(err))
	}

	return r.fetchSearch(query, "")
}

// SearchDetailed performs Search and then narrows the set to candidates
// whose region or district contains region as a case-insensitive substring
// (underscores and '+' in region are treated as spaces). When the filter
// matches nothing the unfiltered set is returned: a caller asking for a
// hard-to-disambiguate region still gets an answer.
func (r *Resolver) SearchDetailed(name, region, country string) (models.ResultSet, error) {
	set, err := r.Search(name, country)
	if err != nil || region == "" {
		return set, err
	}

	needle := strings.ToLower(strings.NewReplacer("_", " ", "+", " ").Replace(region))
	filtered := make(models.ResultSet, 0, len(set))
	for _, c := range set {
		if strings.Contains(strings.ToLower(c.Admin1), needle) ||
			strings.Contains(strings.ToLower(c.Admin2), needle) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		r.logger.Debug("no candidates match region, returning unfiltered set",
			zap.String("region", region), zap.Int("results", len(set)))
		return set, nil
	}
	return filtered, nil
}

// BestResult selects one candidate: exact country-code match first, then
// country-name equality or substring match, then the globally most populous
// candidate, then the first. Population breaks ties inside each group.
// Returns nil only for an empty set.
func BestResult(set models.ResultSet, country string) *models.Candidate {
	if len(set) == 0 {
		return nil
	}

	var best *models.Candidate
	if country != "" {
		for i := range set {
			c := &set[i]
			if c.CountryCode != "" && strings.EqualFold(c.CountryCode, country) {
				if best == nil || c.Population > best.Population {
					best = c
				}
			}
		}
		if best == nil {
			needle := strings.ToLower(country)
			for i := range set {
				c := &set[i]
				if c.Country == "" {
					continue
				}
				if strings.EqualFold(c.Country, country) ||
					strings.Contains(strings.ToLower(c.Country), needle) {
					if best == nil || c.Population > best.Population {
						best = c
					}
				}
			}
		}
	}

	if best == nil {
		for i := range set {
			c := &set[i]
			if best == nil || c.Population > best.Population {
				best = c
			}
		}
	}
	return best
}

// ClearCache removes every cached geocoding entry. Administrative
// invalidation only.
func (r *Resolver) ClearCache() error {
	if err := r.store.Clear(); err != nil {
		return err
	}
	r.logger.Info("geocoding cache cleared", zap.String("dir", r.store.Dir()))
	return nil
}

// loadFresh returns the cached set for key when caching is enabled and the
// entry is fresh. Load and parse failures are logged and treated as a miss.
func (r *Resolver) loadFresh(key string) (models.ResultSet, bool) {
	if !r.cfg.UseCache || !r.store.Valid(key) {
		observability.CacheMissesTotal.WithLabelValues("geocoding").Inc()
		return nil, false
	}
	doc, err := r.store.Load(key)
	if err == nil {
		set, perr := parseResults(doc)
		if perr == nil {
			observability.CacheHitsTotal.WithLabelValues("geocoding").Inc()
			r.logger.Debug("geocoding cache hit", zap.String("key", key))
			return set, true
		}
		err = perr
	}
	r.logger.Warn("geocoding cache load failed", zap.String("key", key), zap.Error(err))
	observability.CacheMissesTotal.WithLabelValues("geocoding").Inc()
	return nil, false
}

// cacheCandidate is the on-disk shape, matching the provider's field names.
type cacheCandidate struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Admin1      string  `json:"admin1,omitempty"`
	Admin2      string  `json:"admin2,omitempty"`
	Population  int64   `json:"population,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
}

func (r *Resolver) persist(key string, set models.ResultSet) error {
	out := make([]cacheCandidate, 0, len(set))
	for _, c := range set {
		out = append(out, cacheCandidate{
			ID:          c.ID,
			Name:        c.Name,
			Latitude:    c.Latitude,
			Longitude:   c.Longitude,
			Country:     c.Country,
			CountryCode: c.CountryCode,
			Admin1:      c.Admin1,
			Admin2:      c.Admin2,
			Population:  c.Population,
			Timezone:    c.Timezone,
		})
	}
	doc, err := json.Marshal(map[string][]cacheCandidate{"results": out})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return r.store.Save(key, doc)
}

func (r *Resolver) fetchSearch(name, country string) (models.ResultSet, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", fmt.Sprintf("%d", r.cfg.MaxResults))
	params.Set("language", r.cfg.Language)
	params.Set("format", "json")
	if country != "" {
		params.Set("country", country)
	}
	u := apiBaseURL + "?" + params.Encode()

	r.logger.Debug("fetching geocoding", zap.String("url", u))
	start := time.Now()
	body, err := r.fetcher.Fetch(u)
	observability.UpstreamFetchDuration.WithLabelValues("geocoding").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamFetchesTotal.WithLabelValues("geocoding", "failure").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	observability.UpstreamFetchesTotal.WithLabelValues("geocoding", "success").Inc()

	return parseResults(body)
}

// parseResults decodes a provider or cache document. A missing results field
// means zero matches, not an error; a present but non-array field is
// malformed. Text fields are truncated to their capacity, never rejected.
func parseResults(doc []byte) (models.ResultSet, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	results := gjson.GetBytes(doc, "results")
	if !results.Exists() {
		return models.ResultSet{}, nil
	}
	if !results.IsArray() {
		return nil, fmt.Errorf("%w: results is not an array", ErrMalformedResponse)
	}

	set := models.ResultSet{}
	results.ForEach(func(_, item gjson.Result) bool {
		set = append(set, models.Candidate{
			ID:          item.Get("id").Int(),
			Name:        models.Truncate(item.Get("name").String(), models.CandidateNameCap),
			Country:     models.Truncate(item.Get("country").String(), models.CandidateCountryCap),
			CountryCode: models.Truncate(item.Get("country_code").String(), models.CandidateCodeCap),
			Admin1:      models.Truncate(item.Get("admin1").String(), models.CandidateAdminCap),
			Admin2:      models.Truncate(item.Get("admin2").String(), models.CandidateAdminCap),
			Population:  item.Get("population").Int(),
			Timezone:    models.Truncate(item.Get("timezone").String(), models.CandidateTimezoneCap),
			Latitude:    item.Get("latitude").Float(),
			Longitude:   item.Get("longitude").Float(),
		})
		return true
	})
	return set, nil
}
