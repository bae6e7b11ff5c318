package meteo

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/justweather/just-weather/internal/cachekey"
	"github.com/justweather/just-weather/internal/models"
)

const sampleDoc = `{
  "latitude": 59.3125,
  "longitude": 18.0625,
  "current_units": {
    "temperature_2m": "°C",
    "wind_speed_10m": "km/h",
    "precipitation": "mm"
  },
  "current": {
    "temperature_2m": 4.3,
    "relative_humidity_2m": 81,
    "is_day": 1,
    "precipitation": 0.2,
    "weather_code": 61,
    "surface_pressure": 1002.1,
    "wind_speed_10m": 13.7,
    "wind_direction_10m": 225
  }
}`

type fakeFetcher struct {
	body  []byte
	err   error
	calls int
	urls  []string
}

func (f *fakeFetcher) Fetch(url string) ([]byte, error) {
	f.calls++
	f.urls = append(f.urls, url)
	return f.body, f.err
}

func newTestResolver(t *testing.T, fetcher Fetcher, useCache bool) *Resolver {
	t.Helper()
	return NewResolver(Config{
		CacheDir: t.TempDir(),
		CacheTTL: time.Minute,
		UseCache: useCache,
	}, fetcher, zap.NewNop())
}

func TestCurrent_LiveFetchParsesAndPersists(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sampleDoc)}
	r := newTestResolver(t, fetcher, true)
	loc := models.Location{Latitude: 59.329380, Longitude: 18.068710}

	snap, err := r.Current(loc)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", fetcher.calls)
	}
	if snap.Temperature != 4.3 || snap.Humidity != 81 || snap.Pressure != 1002.1 {
		t.Fatalf("parsed fields wrong: %+v", snap)
	}
	if snap.WeatherCode != 61 || snap.Description != "Slight rain" {
		t.Fatalf("description enrichment wrong: %+v", snap)
	}
	if snap.WindDirection != 225 || snap.WindDirectionName != "Southwest" {
		t.Fatalf("compass enrichment wrong: %+v", snap)
	}
	if !snap.IsDay {
		t.Fatal("is_day=1 must map to true")
	}
	if snap.PrecipitationUnit != "mm" {
		t.Fatalf("precipitation unit = %q", snap.PrecipitationUnit)
	}
	if snap.RawDocument != nil {
		t.Fatal("staging document must be cleared before the snapshot is returned")
	}
	// Provider grid point wins over request coordinates.
	if snap.Latitude != 59.3125 || snap.Longitude != 18.0625 {
		t.Fatalf("coordinates = %f,%f", snap.Latitude, snap.Longitude)
	}

	// Requested URL carries the fixed parameter set and GMT timezone.
	url := fetcher.urls[0]
	for _, part := range []string{"latitude=59.329380", "longitude=18.068710", "weather_code", "surface_pressure", "timezone=GMT"} {
		if !strings.Contains(url, part) {
			t.Fatalf("fetch URL missing %q: %s", part, url)
		}
	}
}

// TestCurrent_CacheRoundTrip verifies that a second resolution within the
// TTL window performs zero upstream fetches and returns identical data.
func TestCurrent_CacheRoundTrip(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sampleDoc)}
	r := newTestResolver(t, fetcher, true)
	loc := models.Location{Latitude: 59.329380, Longitude: 18.068710}

	first, err := r.Current(loc)
	if err != nil {
		t.Fatalf("Current (live): %v", err)
	}
	second, err := r.Current(loc)
	if err != nil {
		t.Fatalf("Current (cached): %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1 (cache hit must short-circuit)", fetcher.calls)
	}

	if first.Temperature != second.Temperature ||
		first.WeatherCode != second.WeatherCode ||
		first.WindSpeed != second.WindSpeed ||
		first.WindDirection != second.WindDirection ||
		first.Precipitation != second.Precipitation ||
		first.Humidity != second.Humidity ||
		first.Pressure != second.Pressure ||
		first.IsDay != second.IsDay ||
		first.TemperatureUnit != second.TemperatureUnit ||
		first.WindSpeedUnit != second.WindSpeedUnit ||
		first.Description != second.Description ||
		first.WindDirectionName != second.WindDirectionName {
		t.Fatalf("cached snapshot differs:\nlive:   %+v\ncached: %+v", first, second)
	}
}

func TestCurrent_CacheDisabledAlwaysFetches(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sampleDoc)}
	r := newTestResolver(t, fetcher, false)
	loc := models.Location{Latitude: 10, Longitude: 20}

	for i := 0; i < 2; i++ {
		if _, err := r.Current(loc); err != nil {
			t.Fatalf("Current #%d: %v", i, err)
		}
	}
	if fetcher.calls != 2 {
		t.Fatalf("upstream calls = %d, want 2 with cache disabled", fetcher.calls)
	}
}

func TestCurrent_UpstreamFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	r := newTestResolver(t, fetcher, true)

	_, err := r.Current(models.Location{Latitude: 10, Longitude: 20})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("Current = %v, want ErrUpstreamFailure", err)
	}
}

func TestCurrent_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing current", `{"latitude": 1.0}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{body: []byte(tc.body)}
			r := newTestResolver(t, fetcher, true)
			_, err := r.Current(models.Location{Latitude: 10, Longitude: 20})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("Current = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestCurrent_InvalidCoordinates(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sampleDoc)}
	r := newTestResolver(t, fetcher, true)

	bad := []models.Location{
		{Latitude: 91, Longitude: 0},
		{Latitude: -90.5, Longitude: 0},
		{Latitude: 0, Longitude: 181},
		{Latitude: 0, Longitude: -200},
	}
	for _, loc := range bad {
		if _, err := r.Current(loc); !errors.Is(err, ErrInvalidLocation) {
			t.Fatalf("Current(%+v) = %v, want ErrInvalidLocation", loc, err)
		}
	}
	if fetcher.calls != 0 {
		t.Fatal("invalid input must be rejected before any I/O")
	}
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lon     string
		want    models.Location
		wantErr bool
	}{
		{"ok", "59.3294", "18.0687", models.Location{Latitude: 59.3294, Longitude: 18.0687}, false},
		{"trims whitespace", " 10 ", " -20 ", models.Location{Latitude: 10, Longitude: -20}, false},
		{"missing lat", "", "18", models.Location{}, true},
		{"malformed lon", "59", "east", models.Location{}, true},
		{"lat out of range", "91", "0", models.Location{}, true},
		{"lon out of range", "0", "-181", models.Location{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := ParseCoordinates(tc.lat, tc.lon)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidLocation) {
					t.Fatalf("ParseCoordinates = %v, want ErrInvalidLocation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCoordinates: %v", err)
			}
			if loc != tc.want {
				t.Fatalf("loc = %+v, want %+v", loc, tc.want)
			}
		})
	}
}

func TestCurrent_UnitDefaults(t *testing.T) {
	doc := `{"current":{"temperature_2m": 1.5, "weather_code": 0}}`
	fetcher := &fakeFetcher{body: []byte(doc)}
	r := newTestResolver(t, fetcher, false)

	snap, err := r.Current(models.Location{Latitude: 10, Longitude: 20})
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if snap.TemperatureUnit != "°C" || snap.WindSpeedUnit != "km/h" {
		t.Fatalf("unit defaults wrong: %q / %q", snap.TemperatureUnit, snap.WindSpeedUnit)
	}
}

func TestProviderDocument_EnrichesWithoutTouchingStore(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sampleDoc)}
	r := newTestResolver(t, fetcher, true)
	loc := models.Location{Latitude: 59.329380, Longitude: 18.068710}

	if _, err := r.Current(loc); err != nil {
		t.Fatalf("Current: %v", err)
	}

	doc, err := r.ProviderDocument(loc)
	if err != nil {
		t.Fatalf("ProviderDocument: %v", err)
	}
	if !strings.Contains(string(doc), `"weather_description":"Slight rain"`) {
		t.Fatalf("document missing description: %s", doc)
	}
	if !strings.Contains(string(doc), `"wind_direction_name":"Southwest"`) {
		t.Fatalf("document missing cardinal name: %s", doc)
	}

	// The stored entry keeps the canonical provider shape; enrichment is
	// applied only on the way out.
	stored, err := r.store.Load(cachekey.Coordinate(loc.Latitude, loc.Longitude))
	if err != nil {
		t.Fatalf("Load stored entry: %v", err)
	}
	if strings.Contains(string(stored), "weather_description") {
		t.Fatalf("stored document must not carry derived fields: %s", stored)
	}
}
