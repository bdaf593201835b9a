package httpapi

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Options carries the configuration the handlers need. The API key itself is only
// used to report its presence and length.
type Options struct {
	APIKey         string
	DefaultCountry string
	DefaultUnits   weather.Units
	DiagLocation   string
	Metrics        *observability.Metrics
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	if opts.DefaultUnits == "" {
		opts.DefaultUnits = weather.UnitsImperial
	}
	h := &handlers{service: service, opts: opts}

	app.Get("/", h.index)
	app.Post("/", h.index)
	app.Get("/health", h.health)
	app.Get("/diag", h.diag)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/weather", h.lookupJSON)
}

type handlers struct {
	service *weather.Service
	opts    Options
}

// lookupRequest holds the form or query parameters of a lookup.
type lookupRequest struct {
	Location string `validate:"required,max=100"`
	Units    string `validate:"omitempty,oneof=imperial metric standard"`
}

func (h *handlers) index(c *fiber.Ctx) error {
	page := pageData{Units: h.opts.DefaultUnits}

	if c.Method() != fiber.MethodPost {
		return render(c, page)
	}

	req := lookupRequest{
		Location: strings.TrimSpace(c.FormValue("location")),
		Units:    strings.ToLower(strings.TrimSpace(c.FormValue("units"))),
	}
	page.Location = req.Location

	loc, units, err := h.parseLookup(req)
	if err != nil {
		page.Error = validationMessage(err)
		return render(c, page)
	}
	page.Units = units

	report, err := h.service.Lookup(c.UserContext(), loc, units)
	h.opts.Metrics.ObserveLookup(err, len(report.Days))

	page.Weather = report.Current
	page.Forecast = report.Days
	page.Samples = report.Samples
	page.Error = weather.UserMessage(err)
	return render(c, page)
}

func (h *handlers) lookupJSON(c *fiber.Ctx) error {
	req := lookupRequest{
		Location: strings.TrimSpace(c.Query("location")),
		Units:    strings.ToLower(strings.TrimSpace(c.Query("units"))),
	}

	loc, units, err := h.parseLookup(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}

	report, err := h.service.Lookup(c.UserContext(), loc, units)
	h.opts.Metrics.ObserveLookup(err, len(report.Days))
	if err != nil {
		return fiber.NewError(lookupStatus(err), weather.UserMessage(err))
	}

	return c.JSON(report)
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":      true,
		"has_key": h.opts.APIKey != "",
		"key_len": len(h.opts.APIKey),
	})
}

func (h *handlers) diag(c *fiber.Ctx) error {
	loc, err := weather.ParseLocation(h.opts.DiagLocation, h.opts.DefaultCountry)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "diagnostic location is not configured")
	}

	diag, err := h.service.Diagnose(c.UserContext(), loc, weather.UnitsImperial)
	if err != nil {
		if errors.Is(err, weather.ErrDiagnosticsUnsupported) {
			return fiber.NewError(fiber.StatusNotImplemented, err.Error())
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":                    err.Error(),
			"request_params_sanitized": diag.RequestParams,
		})
	}

	return c.Status(diag.StatusCode).JSON(diag)
}

func (h *handlers) parseLookup(req lookupRequest) (weather.Location, weather.Units, error) {
	if err := validate.Struct(req); err != nil {
		return weather.Location{}, "", err
	}

	units, err := weather.ParseUnits(req.Units, h.opts.DefaultUnits)
	if err != nil {
		return weather.Location{}, "", err
	}

	loc, err := weather.ParseLocation(req.Location, h.opts.DefaultCountry)
	if err != nil {
		return weather.Location{}, "", err
	}
	return loc, units, nil
}

// validationMessage turns a request validation failure into the text shown to the user.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch {
		case fe.Field() == "Location" && fe.Tag() == "required":
			return "Please enter a city name or zip code."
		case fe.Field() == "Location":
			return "Location must be at most 100 characters."
		case fe.Field() == "Units":
			return "Units must be imperial, metric or standard."
		}
	}
	return weather.UserMessage(err)
}

// lookupStatus maps a lookup error onto an HTTP status for the JSON API.
func lookupStatus(err error) int {
	var (
		upErr *weather.UpstreamError
		trErr *weather.TransportError
	)
	switch {
	case errors.Is(err, weather.ErrMissingAPIKey):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &upErr):
		if upErr.StatusCode == fiber.StatusNotFound {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadGateway
	case errors.As(err, &trErr):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
