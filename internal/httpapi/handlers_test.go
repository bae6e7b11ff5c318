package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/justweather/just-weather/internal/geocode"
	"github.com/justweather/just-weather/internal/meteo"
	"github.com/justweather/just-weather/internal/models"
)

type fakeWeather struct {
	snap     *models.WeatherSnapshot
	err      error
	clearErr error
	lastLoc  models.Location
	clears   int
}

func (f *fakeWeather) Current(loc models.Location) (*models.WeatherSnapshot, error) {
	f.lastLoc = loc
	return f.snap, f.err
}
func (f *fakeWeather) CacheEnabled() bool { return true }
func (f *fakeWeather) ClearCache() error  { f.clears++; return f.clearErr }

type fakeGeocoder struct {
	set      models.ResultSet
	err      error
	clearErr error
	clears   int

	lastQuery   string
	lastRegion  string
	lastCountry string
}

func (f *fakeGeocoder) SearchSmart(query string) (models.ResultSet, error) {
	f.lastQuery = query
	return f.set, f.err
}

func (f *fakeGeocoder) SearchDetailed(name, region, country string) (models.ResultSet, error) {
	f.lastQuery, f.lastRegion, f.lastCountry = name, region, country
	return f.set, f.err
}

func (f *fakeGeocoder) ClearCache() error { f.clears++; return f.clearErr }

func newTestRouter(weather WeatherResolver, geocoder GeocodeResolver) http.Handler {
	logger := zap.NewNop()
	h := NewHandler(weather, geocoder, logger)
	return NewRouter(h, logger, nil, 5*time.Second)
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v\n%s", err, rec.Body.String())
	}
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing error envelope: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestGetWeather_OK(t *testing.T) {
	weather := &fakeWeather{snap: &models.WeatherSnapshot{
		Temperature: 4.3, WeatherCode: 61, Description: "Slight rain",
	}}
	router := newTestRouter(weather, &fakeGeocoder{})

	rec := doRequest(t, router, http.MethodGet, "/v1/weather?lat=59.3294&lon=18.0687")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if weather.lastLoc.Latitude != 59.3294 || weather.lastLoc.Longitude != 18.0687 {
		t.Fatalf("parsed location = %+v", weather.lastLoc)
	}
	body := decodeBody(t, rec)
	if body["description"] != "Slight rain" {
		t.Fatalf("body = %v", body)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("correlation id header missing")
	}
}

func TestGetWeather_BadCoordinates(t *testing.T) {
	router := newTestRouter(&fakeWeather{}, &fakeGeocoder{})

	targets := []string{
		"/v1/weather?lat=abc&lon=18",
		"/v1/weather?lat=59&lon=",
		"/v1/weather",
		"/v1/weather?lat=91&lon=0",
	}
	for _, target := range targets {
		rec := doRequest(t, router, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
		if got := errorCode(t, rec); got != "INVALID_LOCATION" {
			t.Errorf("%s: code = %q, want INVALID_LOCATION", target, got)
		}
	}
}

func TestGetWeather_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid location", meteo.ErrInvalidLocation, http.StatusBadRequest, "INVALID_LOCATION"},
		{"upstream failure", meteo.ErrUpstreamFailure, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"malformed body", meteo.ErrMalformedResponse, http.StatusBadGateway, "UPSTREAM_MALFORMED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeWeather{err: tc.err}, &fakeGeocoder{})
			rec := doRequest(t, router, http.MethodGet, "/v1/weather?lat=1&lon=2")
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := errorCode(t, rec); got != tc.code {
				t.Fatalf("code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestGetCities_OK(t *testing.T) {
	geocoder := &fakeGeocoder{set: models.ResultSet{
		{Name: "Stockholm", CountryCode: "SE", Population: 975551},
	}}
	router := newTestRouter(&fakeWeather{}, geocoder)

	rec := doRequest(t, router, http.MethodGet, "/v1/cities?q=Stock")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if geocoder.lastQuery != "Stock" {
		t.Fatalf("query passed = %q", geocoder.lastQuery)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v", body["count"])
	}
}

func TestGetCities_Errors(t *testing.T) {
	tests := []struct {
		name   string
		g      *fakeGeocoder
		target string
		status int
		code   string
	}{
		{"too short", &fakeGeocoder{err: geocode.ErrQueryTooShort}, "/v1/cities?q=S", http.StatusBadRequest, "INVALID_QUERY"},
		{"no results", &fakeGeocoder{}, "/v1/cities?q=Xyzzy", http.StatusNotFound, "NO_RESULTS"},
		{"upstream", &fakeGeocoder{err: geocode.ErrUpstreamFailure}, "/v1/cities?q=Paris", http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeWeather{}, tc.g)
			rec := doRequest(t, router, http.MethodGet, tc.target)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := errorCode(t, rec); got != tc.code {
				t.Fatalf("code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestGetLocation_OK(t *testing.T) {
	geocoder := &fakeGeocoder{set: models.ResultSet{
		{Name: "Paris", Country: "France", CountryCode: "FR", Population: 2138551},
		{Name: "Paris", Country: "United States", CountryCode: "US", Admin1: "Texas", Population: 24171},
	}}
	router := newTestRouter(&fakeWeather{}, geocoder)

	rec := doRequest(t, router, http.MethodGet, "/v1/location?city=Paris&region=Texas&country=US")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if geocoder.lastQuery != "Paris" || geocoder.lastRegion != "Texas" || geocoder.lastCountry != "US" {
		t.Fatalf("passed args = %q %q %q", geocoder.lastQuery, geocoder.lastRegion, geocoder.lastCountry)
	}
	body := decodeBody(t, rec)
	best := body["best"].(map[string]interface{})
	if best["countryCode"] != "US" {
		t.Fatalf("best = %v", best)
	}
}

func TestGetLocation_MissingCity(t *testing.T) {
	router := newTestRouter(&fakeWeather{}, &fakeGeocoder{})
	rec := doRequest(t, router, http.MethodGet, "/v1/location?region=Texas")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := errorCode(t, rec); got != "INVALID_CITY" {
		t.Fatalf("code = %q", got)
	}
}

func TestGetLocation_NoResults(t *testing.T) {
	router := newTestRouter(&fakeWeather{}, &fakeGeocoder{})
	rec := doRequest(t, router, http.MethodGet, "/v1/location?city=Xyzzy")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteCache(t *testing.T) {
	weather := &fakeWeather{}
	geocoder := &fakeGeocoder{}
	router := newTestRouter(weather, geocoder)

	rec := doRequest(t, router, http.MethodDelete, "/v1/cache")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if weather.clears != 1 || geocoder.clears != 1 {
		t.Fatalf("clears = %d/%d, want 1/1", weather.clears, geocoder.clears)
	}
}

func TestDeleteCache_PartialFailure(t *testing.T) {
	weather := &fakeWeather{clearErr: errSentinel}
	geocoder := &fakeGeocoder{}
	router := newTestRouter(weather, geocoder)

	rec := doRequest(t, router, http.MethodDelete, "/v1/cache")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// The geocoding cache is still cleared even when the weather clear fails.
	if geocoder.clears != 1 {
		t.Fatalf("geocoding clears = %d, want 1", geocoder.clears)
	}
}

var errSentinel = errors.New("disk gone")

func TestGetHealth(t *testing.T) {
	router := newTestRouter(&fakeWeather{}, &fakeGeocoder{})
	rec := doRequest(t, router, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["service"] != "just-weather" {
		t.Fatalf("body = %v", body)
	}
}

func TestRateLimitMiddleware_Denies(t *testing.T) {
	logger := zap.NewNop()
	h := NewHandler(&fakeWeather{snap: &models.WeatherSnapshot{}}, &fakeGeocoder{}, logger)
	router := NewRouter(h, logger, rate.NewLimiter(rate.Limit(1), 1), time.Second)

	first := doRequest(t, router, http.MethodGet, "/v1/weather?lat=1&lon=2")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := doRequest(t, router, http.MethodGet, "/v1/weather?lat=1&lon=2")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if got := errorCode(t, second); got != "RATE_LIMITED" {
		t.Fatalf("code = %q", got)
	}
}

func TestCorrelationID_Propagated(t *testing.T) {
	router := newTestRouter(&fakeWeather{err: meteo.ErrUpstreamFailure}, &fakeGeocoder{})

	req := httptest.NewRequest(http.MethodGet, "/v1/weather?lat=1&lon=2", nil)
	req.Header.Set("X-Correlation-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Correlation-ID") != "req-123" {
		t.Fatalf("header = %q", rec.Header().Get("X-Correlation-ID"))
	}
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]interface{})
	if errObj["requestId"] != "req-123" {
		t.Fatalf("requestId = %v", errObj["requestId"])
	}
}
