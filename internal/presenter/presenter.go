package presenter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/current-conditions/internal/weather"
)

const (
	DefaultTitle       = "Weather"
	DefaultClockFormat = "03:04:05 PM"
)

// ErrSuperseded is returned by Refresh when a newer cycle started before it finished.
var ErrSuperseded = errors.New("refresh superseded by a newer cycle")

// Refresher produces a fresh snapshot; *weather.Service satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (weather.WeatherSnapshot, error)
}

// IconFetcher downloads the condition image.
type IconFetcher interface {
	FetchIcon(ctx context.Context, iconURL string) (weather.Icon, error)
}

// Options tune the Presenter; zero values take defaults.
type Options struct {
	Title       string
	ClockFormat string
	Now         func() time.Time
}

// Presenter is the sole owner of the DisplayState. Refresh cycles may run
// concurrently; only the newest one is applied.
type Presenter struct {
	refresher Refresher
	icons     IconFetcher
	opts      Options
	log       zerolog.Logger

	mu      sync.RWMutex
	state   DisplayState
	current uuid.UUID
	cancel  context.CancelFunc
}

// New creates a Presenter. icons may be nil, in which case no image is fetched.
func New(refresher Refresher, icons IconFetcher, opts Options, log zerolog.Logger) *Presenter {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.ClockFormat == "" {
		opts.ClockFormat = DefaultClockFormat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Presenter{
		refresher: refresher,
		icons:     icons,
		opts:      opts,
		log:       log.With().Str("component", "presenter").Logger(),
		state:     DisplayState{Title: opts.Title},
	}
	p.Tick(opts.Now())
	return p
}

// Refresh runs one refresh cycle and applies its result. Starting a cycle cancels
// the one in flight, if any.
//
// On failure the last good state stays on display, flagged stale and annotated
// with the error; the error is also returned.
func (p *Presenter) Refresh(ctx context.Context) error {
	id := uuid.New()
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.current = id
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.current == id {
			p.cancel = nil
		}
		p.mu.Unlock()
		cancel()
	}()

	log := p.log.With().Str("refresh_id", id.String()).Logger()
	log.Debug().Msg("Starting refresh")

	snap, err := p.refresher.Refresh(ctx)
	var icon *weather.Icon
	if err == nil && p.icons != nil && snap.Summary.IconURL != "" {
		fetched, iconErr := p.icons.FetchIcon(ctx, snap.Summary.IconURL)
		if iconErr != nil {
			log.Warn().Err(iconErr).Str("icon_url", snap.Summary.IconURL).Msg("Failed to fetch condition icon")
		} else {
			icon = &fetched
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != id {
		log.Debug().Msg("Discarding result of superseded refresh")
		return ErrSuperseded
	}

	if err != nil {
		p.state.Stale = p.state.Ready
		p.state.LastError = err.Error()
		p.state.ErrorKind = weather.ErrorKind(err)
		log.Warn().Err(err).
			Str("kind", p.state.ErrorKind).
			Bool("stale", p.state.Stale).
			Msg("Refresh failed, keeping last good display")
		return err
	}

	next := buildState(p.opts.Title, snap, icon)
	next.Clock = p.state.Clock
	next.RefreshID = id.String()
	next.UpdatedAt = p.opts.Now().UTC()
	p.state = next

	log.Info().
		Str("header", snap.Header).
		Int("rows", len(next.Rows)).
		Bool("icon", icon != nil).
		Msg("Display refreshed")
	return nil
}

// Tick updates the clock line.
func (p *Presenter) Tick(now time.Time) {
	clock := "Current Time: " + now.Format(p.opts.ClockFormat)

	p.mu.Lock()
	p.state.Clock = clock
	p.mu.Unlock()
}

// State returns a copy of the current display state.
func (p *Presenter) State() DisplayState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.clone()
}

// Icon returns the currently displayed icon, if any.
func (p *Presenter) Icon() (weather.Icon, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state.Icon == nil {
		return weather.Icon{}, false
	}
	return *p.state.Icon, true
}
