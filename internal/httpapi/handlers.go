// Package httpapi exposes the resolvers over HTTP: weather by coordinate,
// city autocomplete, single-location disambiguation, and administrative cache
// clearing.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/justweather/just-weather/internal/geocode"
	"github.com/justweather/just-weather/internal/meteo"
	"github.com/justweather/just-weather/internal/models"
	"github.com/justweather/just-weather/internal/observability"
)

// WeatherResolver is the weather lookup contract; satisfied by meteo.Resolver.
type WeatherResolver interface {
	Current(loc models.Location) (*models.WeatherSnapshot, error)
	CacheEnabled() bool
	ClearCache() error
}

// GeocodeResolver is the place lookup contract; satisfied by geocode.Resolver.
type GeocodeResolver interface {
	SearchSmart(query string) (models.ResultSet, error)
	SearchDetailed(name, region, country string) (models.ResultSet, error)
	ClearCache() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather  WeatherResolver
	geocoder GeocodeResolver
	logger   *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(weather WeatherResolver, geocoder GeocodeResolver, logger *zap.Logger) *Handler {
	return &Handler{
		weather:  weather,
		geocoder: geocoder,
		logger:   logger,
	}
}

// NewRouter wires routes and middleware. limiter may be nil to disable rate
// limiting; requestTimeout applies to the resolver routes only.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(RateLimitMiddleware(limiter))
	api.Use(TimeoutMiddleware(requestTimeout))
	api.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/cities", h.GetCities).Methods(http.MethodGet)
	api.HandleFunc("/location", h.GetLocation).Methods(http.MethodGet)
	api.HandleFunc("/cache", h.DeleteCache).Methods(http.MethodDelete)

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return r
}

// GetWeather handles GET /v1/weather?lat=&lon=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, err := meteo.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}

	snap, err := h.weather.Current(loc)
	if err != nil {
		h.writeWeatherError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetCities handles GET /v1/cities?q=, the autocomplete path.
func (h *Handler) GetCities(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	set, err := h.geocoder.SearchSmart(query)
	if err != nil {
		h.writeGeocodeError(w, r, err)
		return
	}
	if len(set) == 0 {
		writeError(w, r, http.StatusNotFound, "NO_RESULTS", "no cities match "+strconv.Quote(query))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"count":   len(set),
		"results": set,
	})
}

// GetLocation handles GET /v1/location?city=&region=&country=: the full
// result set narrowed by region, plus the single best candidate.
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := strings.TrimSpace(q.Get("city"))
	if city == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", "city is required")
		return
	}
	region := strings.TrimSpace(q.Get("region"))
	country := strings.TrimSpace(q.Get("country"))

	set, err := h.geocoder.SearchDetailed(city, region, country)
	if err != nil {
		h.writeGeocodeError(w, r, err)
		return
	}
	best := geocode.BestResult(set, country)
	if best == nil {
		writeError(w, r, http.StatusNotFound, "NO_RESULTS", "no location matches "+strconv.Quote(city))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"best":    best,
		"count":   len(set),
		"results": set,
	})
}

// DeleteCache handles DELETE /v1/cache: clears both resolver caches.
func (h *Handler) DeleteCache(w http.ResponseWriter, r *http.Request) {
	var failed []string
	if err := h.weather.ClearCache(); err != nil {
		h.logger.Error("weather cache clear failed", zap.Error(err))
		failed = append(failed, "weather")
	}
	if err := h.geocoder.ClearCache(); err != nil {
		h.logger.Error("geocoding cache clear failed", zap.Error(err))
		failed = append(failed, "geocoding")
	}
	if len(failed) > 0 {
		writeError(w, r, http.StatusInternalServerError, "CACHE_CLEAR_FAILED",
			"failed to clear: "+strings.Join(failed, ", "))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "caches cleared",
	})
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	caching := "disabled"
	if h.weather.CacheEnabled() {
		caching = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"service":       "just-weather",
		"weather_cache": caching,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// writeWeatherError maps resolver errors onto status codes: bad coordinates
// are the client's fault, malformed provider bodies are a bad gateway, and
// everything reachable over the network is a 502 as well.
func (h *Handler) writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, meteo.ErrInvalidLocation):
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
	case errors.Is(err, meteo.ErrMalformedResponse):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_MALFORMED", "weather provider returned an unusable response")
	case errors.Is(err, meteo.ErrUpstreamFailure):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "unable to fetch weather data")
	default:
		h.logger.Error("weather lookup failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "weather lookup failed")
	}
}

func (h *Handler) writeGeocodeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geocode.ErrInvalidQuery), errors.Is(err, geocode.ErrQueryTooShort):
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
	case errors.Is(err, geocode.ErrMalformedResponse):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_MALFORMED", "geocoding provider returned an unusable response")
	case errors.Is(err, geocode.ErrUpstreamFailure):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "unable to fetch geocoding data")
	default:
		h.logger.Error("geocoding lookup failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "geocoding lookup failed")
	}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with code, message, and
// requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
