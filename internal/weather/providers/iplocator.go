package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/current-conditions/internal/weather"
)

const (
	// DefaultGeolocationURL answers with the caller's approximate position.
	DefaultGeolocationURL = "http://ipinfo.io/json"
	// DefaultGeolocationField is the gjson path of the "lat,lon" value.
	DefaultGeolocationField = "loc"
)

var (
	errInvalidJSON  = errors.New("body is not valid JSON")
	errMissingField = errors.New("location field missing")
)

// IPLocator resolves coordinates through an IP geolocation service.
// Every call performs a fresh lookup.
type IPLocator struct {
	name    string
	url     string
	field   string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewIPLocator creates an IPLocator. field is a gjson path to a "lat,lon" string.
func NewIPLocator(httpCfg HTTPClientConfig, serviceURL, field string, log zerolog.Logger) *IPLocator {
	if serviceURL == "" {
		serviceURL = DefaultGeolocationURL
	}
	if field == "" {
		field = DefaultGeolocationField
	}
	return &IPLocator{
		name:    "ip-geolocation",
		url:     serviceURL,
		field:   field,
		httpCfg: httpCfg,
		circuit: newBreaker("ip-geolocation"),
		log:     log.With().Str("component", "locator").Logger(),
	}
}

func (l *IPLocator) Name() string {
	return l.name
}

func (l *IPLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, l.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, "locate", l.httpCfg, l.circuit, buildRequest)
	if err != nil {
		return weather.Coordinates{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return weather.Coordinates{}, &weather.NetworkError{Op: "locate", URL: l.url, Err: err}
	}
	// A body without usable coordinates means the lookup service failed us.
	malformed := func(err error) error {
		return &weather.NetworkError{Op: "locate", URL: l.url, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !gjson.ValidBytes(body) {
		return weather.Coordinates{}, malformed(errInvalidJSON)
	}
	loc := gjson.GetBytes(body, l.field)
	if !loc.Exists() || loc.String() == "" {
		return weather.Coordinates{}, malformed(fmt.Errorf("%w: %s", errMissingField, l.field))
	}

	coords, err := weather.ParseCoordinates(loc.String())
	if err != nil {
		return weather.Coordinates{}, malformed(err)
	}
	l.log.Debug().Stringer("coords", coords).Msg("Resolved position from IP")
	return coords, nil
}
