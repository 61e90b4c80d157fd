package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/current-conditions/internal/presenter"
	"github.com/i474232898/current-conditions/internal/store"
	"github.com/i474232898/current-conditions/internal/weather"
)

var seattle = weather.Coordinates{Lat: 47.6062, Lon: -122.3321}

type fakeRefresher struct {
	snapshot weather.WeatherSnapshot
	err      error
	store    *store.MemoryStore
}

func (f *fakeRefresher) Refresh(context.Context) (weather.WeatherSnapshot, error) {
	if f.err != nil {
		return weather.WeatherSnapshot{}, f.err
	}
	f.store.SaveSnapshot(f.snapshot)
	return f.snapshot, nil
}

type presenterRefresher struct{ p *presenter.Presenter }

func (r presenterRefresher) RefreshNow(ctx context.Context) error { return r.p.Refresh(ctx) }

type testEnv struct {
	app       *fiber.App
	refresher *fakeRefresher
	presenter *presenter.Presenter
	store     *store.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	memStore := store.NewMemoryStore()
	refresher := &fakeRefresher{
		store: memStore,
		snapshot: weather.WeatherSnapshot{
			Header: "Seattle, Seattle-Tacoma International Airport (KSEA)",
			Summary: weather.ConditionSummary{
				IconURL:      "https://forecast.weather.gov/newimages/large/few.png",
				Condition:    "Fair",
				TemperatureF: "58°F",
				TemperatureC: "14°C",
			},
			Details: weather.NewDetailFields(
				weather.Field{Label: "Humidity", Value: "67%", Found: true},
				weather.Field{Label: "Wind Chill"},
			),
			Coordinates: seattle,
		},
	}
	icons := func(_ context.Context, iconURL string) (weather.Icon, error) {
		return weather.Icon{URL: iconURL, ContentType: "image/png", Format: "png", Data: []byte("\x89PNG")}, nil
	}
	p := presenter.New(refresher, iconFetcherFunc(icons), presenter.Options{
		Now: func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) },
	}, zerolog.Nop())

	app := fiber.New()
	RegisterRoutes(app, p, memStore, presenterRefresher{p})
	return &testEnv{app: app, refresher: refresher, presenter: p, store: memStore}
}

type iconFetcherFunc func(ctx context.Context, iconURL string) (weather.Icon, error)

func (f iconFetcherFunc) FetchIcon(ctx context.Context, iconURL string) (weather.Icon, error) {
	return f(ctx, iconURL)
}

func doRequest(t *testing.T, app *fiber.App, method, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestDisplayBeforeAndAfterRefresh(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doRequest(t, env.app, http.MethodGet, "/api/v1/display")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state presenter.DisplayState
	require.NoError(t, json.Unmarshal(body, &state))
	assert.False(t, state.Ready)
	assert.Equal(t, "Current Time: 09:30:00 AM", state.Clock)

	resp, body = doRequest(t, env.app, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.True(t, state.Ready)
	assert.Equal(t, "Current Conditions at Seattle, Seattle-Tacoma International Airport (KSEA)", state.Header)
	assert.Equal(t, "Fair 58°F / 14°C", state.Currently)
	assert.Equal(t, []presenter.Row{
		{Label: "Humidity", Value: "67%"},
		{Label: "Wind Chill", Missing: true},
	}, state.Rows)
}

func TestRefreshFailureReportsKind(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.err = &weather.NetworkError{Op: "fetch forecast page", URL: "https://forecast.weather.gov/MapClick.php", StatusCode: 503, Err: errors.New("server error")}

	resp, body := doRequest(t, env.app, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var payload struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.True(t, payload.Error)
	assert.Equal(t, "network", payload.Kind)
	assert.Contains(t, payload.Message, "status 503")

	assert.Equal(t, "network", env.presenter.State().ErrorKind)
}

func TestSnapshotEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doRequest(t, env.app, http.MethodGet, "/api/v1/snapshot")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, env.presenter.Refresh(context.Background()))

	resp, body := doRequest(t, env.app, http.MethodGet, "/api/v1/snapshot")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"details":{"Humidity":"67%","Wind Chill":null}`)

	resp, _ = doRequest(t, env.app, http.MethodGet, "/api/v1/snapshot?lat=47.6062&lon=-122.3321")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, env.app, http.MethodGet, "/api/v1/snapshot?lat=40.7128&lon=-74.006")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshotQueryValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/api/v1/snapshot?lat=47.6",
		"/api/v1/snapshot?lon=-122.3",
		"/api/v1/snapshot?lat=91&lon=0",
		"/api/v1/snapshot?lat=0&lon=181",
		"/api/v1/snapshot?lat=north&lon=west",
	} {
		resp, _ := doRequest(t, env.app, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestIconEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doRequest(t, env.app, http.MethodGet, "/api/v1/icon")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, env.presenter.Refresh(context.Background()))

	resp, body := doRequest(t, env.app, http.MethodGet, "/api/v1/icon")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, []byte("\x89PNG"), body)
}

func TestPage(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doRequest(t, env.app, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
	assert.Contains(t, string(body), "Waiting for the first weather report")
	assert.Contains(t, string(body), `<p id="currently"></p>`)

	require.NoError(t, env.presenter.Refresh(context.Background()))

	_, body = doRequest(t, env.app, http.MethodGet, "/")
	page := string(body)
	assert.Contains(t, page, `<p id="currently">Currently: Fair 58°F / 14°C</p>`)
	assert.Contains(t, page, `<td class="label">Humidity</td><td>67%</td>`)
	assert.Contains(t, page, "/api/v1/display")
}
