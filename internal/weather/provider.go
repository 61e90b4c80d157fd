package weather

import (
	"context"
)

// Locator resolves the coordinates weather should be fetched for
// (e.g. IP geolocation, a fixed position, a geocoded address).
type Locator interface {
	Name() string
	Locate(ctx context.Context) (Coordinates, error)
}

// Extractor turns the forecast page for a position into a WeatherSnapshot.
type Extractor interface {
	Name() string
	FetchSnapshot(ctx context.Context, coords Coordinates) (WeatherSnapshot, error)
}

// Store is the contract the in-memory store must satisfy.
type Store interface {
	SaveSnapshot(snapshot WeatherSnapshot)
	GetLatest(coords Coordinates) (WeatherSnapshot, error)
	Latest() (WeatherSnapshot, error)
}
