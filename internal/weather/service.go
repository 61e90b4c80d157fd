package weather

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service runs one refresh cycle: locate, extract, store.
type Service struct {
	locator   Locator
	extractor Extractor
	store     Store
	log       zerolog.Logger
}

// NewService creates a new Service.
func NewService(locator Locator, extractor Extractor, store Store, log zerolog.Logger) *Service {
	return &Service{
		locator:   locator,
		extractor: extractor,
		store:     store,
		log:       log.With().Str("component", "service").Logger(),
	}
}

// Refresh resolves the current position, fetches a fresh snapshot for it and stores
// it as the latest. Any failure aborts the cycle and nothing is stored.
func (s *Service) Refresh(ctx context.Context) (WeatherSnapshot, error) {
	coords, err := s.locator.Locate(ctx)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("locate via %s: %w", s.locator.Name(), err)
	}
	s.log.Debug().Stringer("coords", coords).Str("locator", s.locator.Name()).Msg("Located")

	snapshot, err := s.extractor.FetchSnapshot(ctx, coords)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("fetch snapshot from %s: %w", s.extractor.Name(), err)
	}

	s.store.SaveSnapshot(snapshot)
	s.log.Info().
		Str("header", snapshot.Header).
		Int("details", snapshot.Details.Len()).
		Msg("Stored fresh snapshot")
	return snapshot, nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(coords Coordinates) (WeatherSnapshot, error) {
	return s.store.GetLatest(coords)
}

// Latest returns the most recently stored snapshot for any position.
func (s *Service) Latest() (WeatherSnapshot, error) {
	return s.store.Latest()
}
