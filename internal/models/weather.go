package models

import (
	"encoding/json"
	"time"
)

// Location identifies a point a weather lookup is performed for.
// Constructed per request, never persisted on its own.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// WeatherSnapshot holds current conditions for one location, built from
// either a cache read or a live provider fetch.
type WeatherSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	WeatherCode int       `json:"weatherCode"`

	// Description and WindDirectionName are filled from the lookup tables
	// only when the snapshot is handed to a caller; they are never part of
	// the stored provider document.
	Description string `json:"description,omitempty"`

	Temperature     float64 `json:"temperature"`
	TemperatureUnit string  `json:"temperatureUnit"`

	WindSpeed     float64 `json:"windSpeed"`
	WindSpeedUnit string  `json:"windSpeedUnit"`

	WindDirection     int    `json:"windDirection"`
	WindDirectionName string `json:"windDirectionName,omitempty"`

	Precipitation     float64 `json:"precipitation"`
	PrecipitationUnit string  `json:"precipitationUnit,omitempty"`

	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
	IsDay    bool    `json:"isDay"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// RawDocument stages the unmodified provider response between a live
	// fetch and the cache write. It is cleared before the snapshot is
	// returned to a caller that may outlive the write.
	RawDocument json.RawMessage `json:"-"`
}
