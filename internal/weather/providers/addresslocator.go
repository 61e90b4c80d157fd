package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"

	"github.com/i474232898/current-conditions/internal/weather"
)

var (
	errNoGeocoderKey = errors.New("geocoder api key is not configured")
	errEmptyAddress  = errors.New("address has no city")
	errGeocoderBusy  = errors.New("previous geocoding request still in flight")
)

// geocoder keeps its API key in a package variable, and its requests go through
// http.Get with no timeout. geocoderKeyMu is held for the whole request, so a hung
// request blocks at most one goroutine; later lookups fail fast with
// errGeocoderBusy until it returns.
var geocoderKeyMu sync.Mutex

// Address is the place an AddressLocator geocodes.
type Address struct {
	Street  string
	City    string
	State   string
	Country string
}

func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// AddressLocator resolves a fixed street address through the Google geocoding API.
type AddressLocator struct {
	apiKey  string
	address Address
	geocode func(geocoder.Address) (geocoder.Location, error)
	log     zerolog.Logger
}

func NewAddressLocator(apiKey string, address Address, log zerolog.Logger) *AddressLocator {
	return &AddressLocator{
		apiKey:  apiKey,
		address: address,
		geocode: geocoder.Geocoding,
		log:     log.With().Str("component", "locator").Logger(),
	}
}

func (l *AddressLocator) Name() string {
	return "address-geocoder"
}

func (l *AddressLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	op := "geocode " + l.address.String()
	if l.apiKey == "" {
		return weather.Coordinates{}, &weather.NetworkError{Op: op, Err: errNoGeocoderKey}
	}
	if strings.TrimSpace(l.address.City) == "" {
		return weather.Coordinates{}, &weather.ParseError{Op: op, Err: errEmptyAddress}
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	if !geocoderKeyMu.TryLock() {
		return weather.Coordinates{}, &weather.NetworkError{Op: op, Err: errGeocoderBusy}
	}
	done := make(chan result, 1)
	go func() {
		defer geocoderKeyMu.Unlock()
		geocoder.ApiKey = l.apiKey
		loc, err := l.geocode(geocoder.Address{
			Street:  l.address.Street,
			City:    l.address.City,
			State:   l.address.State,
			Country: l.address.Country,
		})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, &weather.NetworkError{Op: op, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, &weather.NetworkError{Op: op, Err: fmt.Errorf("geocoding failed: %w", r.err)}
		}
		coords := weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}
		l.log.Debug().Stringer("coords", coords).Str("address", l.address.String()).Msg("Geocoded address")
		return coords, nil
	}
}
