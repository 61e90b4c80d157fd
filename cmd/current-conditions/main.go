package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/current-conditions/internal/api/http"
	"github.com/i474232898/current-conditions/internal/common"
	"github.com/i474232898/current-conditions/internal/config"
	"github.com/i474232898/current-conditions/internal/presenter"
	"github.com/i474232898/current-conditions/internal/scheduler"
	"github.com/i474232898/current-conditions/internal/store"
	"github.com/i474232898/current-conditions/internal/weather"
	"github.com/i474232898/current-conditions/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := common.NewLogger(cfg.LogLevel, os.Stderr)

	// Shared HTTP client for outbound calls.
	httpCfg := providers.HTTPClientConfig{
		Client:    &http.Client{Timeout: cfg.HTTPTimeout},
		UserAgent: cfg.UserAgent,
		Backoff:   providers.DefaultBackoff,
	}
	httpCfg.Backoff.MaxRetries = cfg.MaxRetries
	if cfg.RequestsPerMinute > 0 {
		httpCfg.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	locator := newLocator(cfg, httpCfg, log)

	extractor, err := providers.NewForecastPageExtractor(httpCfg, cfg.ForecastBaseURL, providers.MatchMode(cfg.LabelMatch), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create forecast page extractor")
	}

	memStore := store.NewMemoryStore()

	// Core service: locate, extract, store.
	service := weather.NewService(locator, extractor, memStore, log)

	display := presenter.New(service, providers.NewIconFetcher(httpCfg), presenter.Options{
		ClockFormat: cfg.ClockFormat,
	}, log)

	opts := scheduler.Options{
		RefreshInterval: cfg.RefreshInterval,
		RefreshCron:     cfg.RefreshCron,
		RefreshTimeout:  cfg.RefreshTimeout,
		ClockInterval:   cfg.ClockInterval,
	}
	if cfg.TerminalOutput {
		term := newTerminal(os.Stdout, display)
		opts.AfterRefresh = func(error) { term.draw() }
		if term.interactive {
			opts.AfterTick = term.draw
		}
	}

	// Scheduler that periodically refreshes the display and ticks the clock.
	sched := scheduler.New(display, opts, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "current-conditions",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RefreshTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New(logger.Config{Output: os.Stderr}))
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		state := display.State()
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "current-conditions",
			"ready":   state.Ready,
			"stale":   state.Stale,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, display, service, sched)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Dashboard listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// newLocator picks fixed coordinates first, then address geocoding, then IP geolocation.
func newLocator(cfg *config.AppConfig, httpCfg providers.HTTPClientConfig, log zerolog.Logger) weather.Locator {
	switch {
	case cfg.Coordinates != nil:
		log.Info().Stringer("coordinates", cfg.Coordinates).Msg("Using configured coordinates")
		return providers.NewStaticLocator(*cfg.Coordinates)
	case cfg.GeocoderAPIKey != "" && cfg.Location.City != "":
		addr := cfg.Location.Address()
		log.Info().Str("address", addr.String()).Msg("Using address geocoding")
		return providers.NewAddressLocator(cfg.GeocoderAPIKey, addr, log)
	default:
		log.Info().Str("url", cfg.GeolocationURL).Msg("Using IP geolocation")
		return providers.NewIPLocator(httpCfg, cfg.GeolocationURL, cfg.GeolocationField, log)
	}
}

// terminal mirrors the display on stdout. On a terminal it redraws in place.
type terminal struct {
	mu          sync.Mutex
	out         io.Writer
	display     *presenter.Presenter
	interactive bool
}

func newTerminal(f *os.File, display *presenter.Presenter) *terminal {
	return &terminal{
		out:         f,
		display:     display,
		interactive: isatty.IsTerminal(f.Fd()),
	}
}

func (t *terminal) draw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interactive {
		fmt.Fprint(t.out, "\033[H\033[2J")
	}
	_ = t.display.Render(t.out)
	if !t.interactive {
		fmt.Fprintln(t.out)
	}
}
