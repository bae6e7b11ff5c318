package meteo

// WMO weather interpretation codes as served by the forecast provider.
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Describe maps a weather code to human-readable text, "Unknown" for codes
// outside the table.
func Describe(code int) string {
	if d, ok := weatherDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// Sixteen-point compass rose, one sector per 22.5 degrees starting at north.
var compassNames = [16]string{
	"North", "North-Northeast", "Northeast", "East-Northeast",
	"East", "East-Southeast", "Southeast", "South-Southeast",
	"South", "South-Southwest", "Southwest", "West-Southwest",
	"West", "West-Northwest", "Northwest", "North-Northwest",
}

// WindDirection maps a bearing in degrees to one of the 16 cardinal names.
// Negative and overflowing bearings are normalized first.
func WindDirection(degrees int) string {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	sector := ((degrees*100 + 1125) / 2250) % 16
	return compassNames[sector]
}
