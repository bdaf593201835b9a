package httpapi

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type unitOption struct {
	Value    weather.Units
	Label    string
	Selected bool
}

// pageData is what the index template renders.
type pageData struct {
	Location string
	Units    weather.Units
	Weather  *weather.Current
	Forecast []weather.DaySummary
	Samples  []weather.Sample
	Error    string
}

func (p pageData) TempSymbol() string {
	return p.Units.TempSymbol()
}

func (p pageData) UnitOptions() []unitOption {
	opts := []unitOption{
		{Value: weather.UnitsImperial, Label: "Fahrenheit"},
		{Value: weather.UnitsMetric, Label: "Celsius"},
		{Value: weather.UnitsStandard, Label: "Kelvin"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == p.Units
	}
	return opts
}

// render executes the template into a buffer first so a template error never
// leaves a half-written page.
func render(c *fiber.Ctx, page pageData) error {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, page); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
