package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseCoordinates parses a "lat,lon" string as returned by IP geolocation services.
func ParseCoordinates(s string) (Coordinates, error) {
	latStr, lonStr, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Coordinates{}, fmt.Errorf("coordinates %q: expected \"lat,lon\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("coordinates %q: invalid latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("coordinates %q: invalid longitude: %w", s, err)
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

// LatString formats the latitude the way it is sent to the forecast provider.
func (c Coordinates) LatString() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// LonString formats the longitude the way it is sent to the forecast provider.
func (c Coordinates) LonString() string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

func (c Coordinates) String() string {
	return c.LatString() + "," + c.LonString()
}

// Key returns a canonical string key for indexing these coordinates in stores.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f:%.4f", c.Lat, c.Lon)
}

// ConditionSummary is the "current conditions" block of the forecast page.
// Temperatures are kept exactly as the provider formats them.
type ConditionSummary struct {
	IconURL      string `json:"iconUrl"`
	Condition    string `json:"condition"`
	TemperatureF string `json:"temperatureF"`
	TemperatureC string `json:"temperatureC"`
}

// WeatherSnapshot is one complete extraction of the forecast page.
// A snapshot is never modified; every refresh produces a new one.
type WeatherSnapshot struct {
	Header  string           `json:"header"`
	Summary ConditionSummary `json:"summary"`
	Details DetailFields     `json:"details"`

	Coordinates Coordinates `json:"coordinates"`
	SourceURL   string      `json:"sourceUrl"`
	FetchedAt   time.Time   `json:"fetchedAt"` // always UTC
}

// Icon is the condition image referenced by ConditionSummary.IconURL.
type Icon struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Data        []byte `json:"-"`
}
