// Package meteo resolves current weather conditions for a coordinate through
// a TTL-bound disk cache with a single live provider fetch on miss.
package meteo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/justweather/just-weather/internal/cachekey"
	"github.com/justweather/just-weather/internal/diskcache"
	"github.com/justweather/just-weather/internal/models"
	"github.com/justweather/just-weather/internal/observability"
)

const apiBaseURL = "http://api.open-meteo.com/v1/forecast"

// Fixed parameter set requested from the provider. The cache stores exactly
// this document shape.
const currentParams = "temperature_2m,relative_humidity_2m,apparent_temperature," +
	"is_day,precipitation,weather_code,surface_pressure,wind_speed_10m,wind_direction_10m"

// ErrInvalidLocation is returned for missing or out-of-range coordinates,
// before any I/O happens.
var ErrInvalidLocation = errors.New("invalid location")

// ErrUpstreamFailure covers transport errors and timeouts from the provider.
var ErrUpstreamFailure = errors.New("weather upstream failure")

// ErrMalformedResponse is returned when the provider body does not parse or
// lacks the expected top-level fields. Retrying would not help, so it stays
// distinct from ErrUpstreamFailure.
var ErrMalformedResponse = errors.New("malformed weather response")

// Fetcher is the blocking fetch contract the resolver consumes; satisfied by
// fetch.Bridge.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// Config holds the weather resolver settings, fixed at construction.
type Config struct {
	CacheDir string
	CacheTTL time.Duration
	UseCache bool
}

// Resolver answers current-conditions lookups. Each resolver owns its store
// and configuration; there is no process-wide state.
type Resolver struct {
	cfg     Config
	store   *diskcache.Store
	fetcher Fetcher
	logger  *zap.Logger
}

// NewResolver creates a resolver and its cache directory.
func NewResolver(cfg Config, fetcher Fetcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		cfg:     cfg,
		store:   diskcache.NewStore(cfg.CacheDir, cfg.CacheTTL, logger),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Current resolves current conditions for loc: fresh cache entry if any,
// otherwise one live fetch with optional cache population. Cache read
// failures downgrade to a miss; upstream failures surface to the caller.
func (r *Resolver) Current(loc models.Location) (*models.WeatherSnapshot, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	key := cachekey.Coordinate(loc.Latitude, loc.Longitude)

	if r.cfg.UseCache && r.store.Valid(key) {
		doc, err := r.store.Load(key)
		if err == nil {
			snap, perr := parseSnapshot(doc, loc)
			if perr == nil {
				observability.CacheHitsTotal.WithLabelValues("weather").Inc()
				r.logger.Debug("weather cache hit", zap.String("key", key))
				enrich(snap)
				return snap, nil
			}
			err = perr
		}
		// Reported, then treated as a miss.
		r.logger.Warn("weather cache load failed", zap.String("key", key), zap.Error(err))
	}
	observability.CacheMissesTotal.WithLabelValues("weather").Inc()

	body, err := r.fetchCurrent(loc)
	if err != nil {
		return nil, err
	}

	snap, err := parseSnapshot(body, loc)
	if err != nil {
		return nil, err
	}
	snap.RawDocument = body

	if r.cfg.UseCache && snap.RawDocument != nil {
		if err := r.store.Save(key, snap.RawDocument); err != nil {
			observability.CacheWriteFailuresTotal.WithLabelValues("weather").Inc()
			r.logger.Warn("weather cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	snap.RawDocument = nil

	enrich(snap)
	return snap, nil
}

// ProviderDocument returns the cached provider document for loc with the
// derived description and cardinal name injected into the "current" object.
// Enrichment happens only here, on the way out; the stored document keeps
// the provider's canonical shape so the tables can change without
// invalidating the cache.
func (r *Resolver) ProviderDocument(loc models.Location) ([]byte, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	key := cachekey.Coordinate(loc.Latitude, loc.Longitude)
	doc, err := r.store.Load(key)
	if err != nil {
		return nil, err
	}

	if code := gjson.GetBytes(doc, "current.weather_code"); code.Exists() {
		doc, err = sjson.SetBytes(doc, "current.weather_description", Describe(int(code.Int())))
		if err != nil {
			return nil, fmt.Errorf("enrich document: %w", err)
		}
	}
	if dir := gjson.GetBytes(doc, "current.wind_direction_10m"); dir.Exists() {
		doc, err = sjson.SetBytes(doc, "current.wind_direction_name", WindDirection(int(dir.Int())))
		if err != nil {
			return nil, fmt.Errorf("enrich document: %w", err)
		}
	}
	return doc, nil
}

// CacheEnabled reports whether resolutions populate and read the disk cache.
func (r *Resolver) CacheEnabled() bool { return r.cfg.UseCache }

// ClearCache removes every cached weather entry. Administrative invalidation
// only.
func (r *Resolver) ClearCache() error {
	if err := r.store.Clear(); err != nil {
		return err
	}
	r.logger.Info("weather cache cleared", zap.String("dir", r.store.Dir()))
	return nil
}

func (r *Resolver) fetchCurrent(loc models.Location) ([]byte, error) {
	url := fmt.Sprintf("%s?latitude=%.6f&longitude=%.6f&current=%s&timezone=GMT",
		apiBaseURL, loc.Latitude, loc.Longitude, currentParams)

	r.logger.Debug("fetching weather", zap.String("url", url))
	start := time.Now()
	body, err := r.fetcher.Fetch(url)
	observability.UpstreamFetchDuration.WithLabelValues("forecast").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamFetchesTotal.WithLabelValues("forecast", "failure").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	observability.UpstreamFetchesTotal.WithLabelValues("forecast", "success").Inc()
	return body, nil
}

// ParseCoordinates turns raw query strings into a validated location.
// Missing and malformed values are invalid input, reported before any I/O.
func ParseCoordinates(lat, lon string) (models.Location, error) {
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: latitude %q", ErrInvalidLocation, lat)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: longitude %q", ErrInvalidLocation, lon)
	}
	loc := models.Location{Latitude: latitude, Longitude: longitude}
	if err := validateLocation(loc); err != nil {
		return models.Location{}, err
	}
	return loc, nil
}

func validateLocation(loc models.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f", ErrInvalidLocation, loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f", ErrInvalidLocation, loc.Longitude)
	}
	return nil
}

// parseSnapshot builds a snapshot from a provider document (live or cached).
// Unit fields default to "°C" and "km/h" when the document omits them.
func parseSnapshot(doc []byte, loc models.Location) (*models.WeatherSnapshot, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	current := gjson.GetBytes(doc, "current")
	if !current.Exists() {
		return nil, fmt.Errorf("%w: missing current block", ErrMalformedResponse)
	}

	snap := &models.WeatherSnapshot{
		Timestamp:       time.Now(),
		WeatherCode:     int(current.Get("weather_code").Int()),
		Temperature:     current.Get("temperature_2m").Float(),
		WindSpeed:       current.Get("wind_speed_10m").Float(),
		WindDirection:   int(current.Get("wind_direction_10m").Int()),
		Precipitation:   current.Get("precipitation").Float(),
		Humidity:        current.Get("relative_humidity_2m").Float(),
		Pressure:        current.Get("surface_pressure").Float(),
		IsDay:           current.Get("is_day").Int() == 1,
		Latitude:        loc.Latitude,
		Longitude:       loc.Longitude,
		TemperatureUnit: "°C",
		WindSpeedUnit:   "km/h",
	}

	units := gjson.GetBytes(doc, "current_units")
	if units.Exists() {
		if u := units.Get("temperature_2m"); u.Type == gjson.String {
			snap.TemperatureUnit = u.String()
		}
		if u := units.Get("wind_speed_10m"); u.Type == gjson.String {
			snap.WindSpeedUnit = u.String()
		}
		if u := units.Get("precipitation"); u.Type == gjson.String {
			snap.PrecipitationUnit = u.String()
		}
	}

	// The provider echoes its grid point at the document root; prefer it
	// over the request coordinates when present.
	if lat := gjson.GetBytes(doc, "latitude"); lat.Exists() {
		snap.Latitude = lat.Float()
	}
	if lon := gjson.GetBytes(doc, "longitude"); lon.Exists() {
		snap.Longitude = lon.Float()
	}

	return snap, nil
}

// enrich fills the derived presentation fields on the way out.
func enrich(snap *models.WeatherSnapshot) {
	snap.Description = Describe(snap.WeatherCode)
	snap.WindDirectionName = WindDirection(snap.WindDirection)
}
