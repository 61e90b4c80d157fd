package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/current-conditions/internal/presenter"
	"github.com/i474232898/current-conditions/internal/store"
	"github.com/i474232898/current-conditions/internal/weather"
)

var validate = validator.New()

// Display is the read side of the presenter.
type Display interface {
	State() presenter.DisplayState
	Icon() (weather.Icon, bool)
}

// Snapshots exposes stored snapshots; *weather.Service satisfies it.
type Snapshots interface {
	GetLatest(coords weather.Coordinates) (weather.WeatherSnapshot, error)
	Latest() (weather.WeatherSnapshot, error)
}

// Refresher triggers an out-of-schedule refresh; *scheduler.Scheduler satisfies it.
type Refresher interface {
	RefreshNow(ctx context.Context) error
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, display Display, snapshots Snapshots, refresher Refresher) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return pageTemplate.Execute(c, display.State())
	})

	v1 := app.Group("/api/v1")

	v1.Get("/display", func(c *fiber.Ctx) error {
		return c.JSON(display.State())
	})

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		q, err := parseSnapshotQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var snapshot weather.WeatherSnapshot
		if q.empty() {
			snapshot, err = snapshots.Latest()
		} else {
			var coords weather.Coordinates
			coords, err = q.coordinates()
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			snapshot, err = snapshots.GetLatest(coords)
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(snapshot)
	})

	v1.Get("/icon", func(c *fiber.Ctx) error {
		icon, ok := display.Icon()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no condition icon available")
		}
		c.Set(fiber.HeaderContentType, icon.ContentType)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(icon.Data)
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		err := refresher.RefreshNow(c.UserContext())
		switch {
		case err == nil:
			return c.JSON(display.State())
		case errors.Is(err, presenter.ErrSuperseded):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"kind":    weather.ErrorKind(err),
			})
		}
	})
}

// snapshotQuery selects a location by coordinates; both or neither must be given.
type snapshotQuery struct {
	Lat string `validate:"required_with=Lon,omitempty,latitude"`
	Lon string `validate:"required_with=Lat,omitempty,longitude"`
}

func (q snapshotQuery) empty() bool {
	return q.Lat == "" && q.Lon == ""
}

func (q snapshotQuery) coordinates() (weather.Coordinates, error) {
	return weather.ParseCoordinates(q.Lat + "," + q.Lon)
}

func parseSnapshotQuery(c *fiber.Ctx) (snapshotQuery, error) {
	var q snapshotQuery

	q.Lat = c.Query("lat")
	q.Lon = c.Query("lon")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}
