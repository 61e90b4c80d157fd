package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/current-conditions/internal/weather"
	"github.com/i474232898/current-conditions/internal/weather/providers"
)

// AppConfig holds everything the daemon needs. Values come from, in increasing
// priority: built-in defaults, the optional YAML file named by CONFIG_FILE, and the
// environment (a .env file is loaded first if present).
type AppConfig struct {
	ForecastBaseURL  string `yaml:"forecast_base_url" validate:"required,url"`
	GeolocationURL   string `yaml:"geolocation_url" validate:"required,url"`
	GeolocationField string `yaml:"geolocation_field" validate:"required"`

	// Coordinates, when set, bypass IP geolocation entirely.
	Coordinates *weather.Coordinates `yaml:"-"`

	// Address geocoding is used when no coordinates are configured and a key is present.
	GeocoderAPIKey string         `yaml:"geocoder_api_key"`
	Location       LocationConfig `yaml:"location"`

	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gt=0"`
	RefreshCron     string        `yaml:"refresh_cron" validate:"omitempty,robfigcron"`
	RefreshTimeout  time.Duration `yaml:"refresh_timeout" validate:"gt=0"`
	ClockInterval   time.Duration `yaml:"clock_interval" validate:"gt=0"`
	ClockFormat     string        `yaml:"clock_format" validate:"required"`

	HTTPTimeout       time.Duration `yaml:"http_timeout" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"` // 0 = unlimited

	LabelMatch string `yaml:"label_match" validate:"oneof=exact substring"`
	UserAgent  string `yaml:"user_agent" validate:"required"`

	Port           string `yaml:"port" validate:"required,numeric"`
	TerminalOutput bool   `yaml:"terminal_output"`
	LogLevel       string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
}

// LocationConfig is the postal address handed to the geocoder.
type LocationConfig struct {
	Street  string `yaml:"street"`
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Country string `yaml:"country"`
}

// Address converts the configured location for the address locator.
func (l LocationConfig) Address() providers.Address {
	return providers.Address{Street: l.Street, City: l.City, State: l.State, Country: l.Country}
}

// Default returns the configuration used when nothing is overridden.
func Default() AppConfig {
	return AppConfig{
		ForecastBaseURL:   providers.DefaultForecastBaseURL,
		GeolocationURL:    providers.DefaultGeolocationURL,
		GeolocationField:  providers.DefaultGeolocationField,
		RefreshInterval:   3000 * time.Second,
		RefreshTimeout:    60 * time.Second,
		ClockInterval:     time.Second,
		ClockFormat:       "03:04:05 PM",
		HTTPTimeout:       30 * time.Second,
		MaxRetries:        providers.DefaultBackoff.MaxRetries,
		RequestsPerMinute: 30,
		LabelMatch:        string(providers.MatchExact),
		UserAgent:         "current-conditions/1.0 (+https://github.com/i474232898/current-conditions)",
		Port:              "8080",
		TerminalOutput:    true,
		LogLevel:          "info",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// gocron hands cron expressions to robfig's standard parser, so validate with the same one.
	if err := v.RegisterValidation("robfigcron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading it")
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type fileConfig struct {
	AppConfig           `yaml:",inline"`
	LocationCoordinates string `yaml:"location_coordinates"`
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	fc := fileConfig{AppConfig: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	*cfg = fc.AppConfig

	if fc.LocationCoordinates != "" {
		coords, err := weather.ParseCoordinates(fc.LocationCoordinates)
		if err != nil {
			return fmt.Errorf("invalid location_coordinates in %s: %w", path, err)
		}
		cfg.Coordinates = &coords
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.ForecastBaseURL = getenvDefault("FORECAST_BASE_URL", cfg.ForecastBaseURL)
	cfg.GeolocationURL = getenvDefault("GEOLOCATION_URL", cfg.GeolocationURL)
	cfg.GeolocationField = getenvDefault("GEOLOCATION_FIELD", cfg.GeolocationField)

	if v := strings.TrimSpace(os.Getenv("LOCATION_COORDINATES")); v != "" {
		coords, err := weather.ParseCoordinates(v)
		if err != nil {
			return fmt.Errorf("invalid LOCATION_COORDINATES: %w", err)
		}
		cfg.Coordinates = &coords
	}

	cfg.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", cfg.GeocoderAPIKey)
	cfg.Location.Street = getenvDefault("LOCATION_STREET", cfg.Location.Street)
	cfg.Location.City = getenvDefault("LOCATION_CITY", cfg.Location.City)
	cfg.Location.State = getenvDefault("LOCATION_STATE", cfg.Location.State)
	cfg.Location.Country = getenvDefault("LOCATION_COUNTRY", cfg.Location.Country)

	var errs []error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REFRESH_INTERVAL", &cfg.RefreshInterval},
		{"REFRESH_TIMEOUT", &cfg.RefreshTimeout},
		{"CLOCK_INTERVAL", &cfg.ClockInterval},
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, *d.dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.dst = v
	}

	cfg.RefreshCron = getenvDefault("REFRESH_CRON", cfg.RefreshCron)
	cfg.ClockFormat = getenvDefault("CLOCK_FORMAT", cfg.ClockFormat)
	cfg.MaxRetries = getenvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.RequestsPerMinute = getenvInt("REQUESTS_PER_MINUTE", cfg.RequestsPerMinute)
	cfg.LabelMatch = strings.ToLower(getenvDefault("LABEL_MATCH", cfg.LabelMatch))
	cfg.UserAgent = getenvDefault("USER_AGENT", cfg.UserAgent)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.TerminalOutput = getenvBool("TERMINAL_OUTPUT", cfg.TerminalOutput)
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", cfg.LogLevel))

	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

// getenvDuration accepts Go duration strings ("50m") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
