package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// Compile-time checks.
var (
	_ weather.Provider  = (*OpenWeatherProvider)(nil)
	_ weather.Diagnoser = (*OpenWeatherProvider)(nil)
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// Option customizes an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL points the provider at another API root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(p *OpenWeatherProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMetrics records upstream calls.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *OpenWeatherProvider) { p.httpCfg.Metrics = m }
}

// WithClock replaces the clock used to time upstream calls.
func WithClock(c clockwork.Clock) Option {
	return func(p *OpenWeatherProvider) { p.httpCfg.Clock = c }
}

// WithCircuitBreaker replaces the default breaker settings.
func WithCircuitBreaker(st gobreaker.Settings) Option {
	return func(p *OpenWeatherProvider) { p.circuit = gobreaker.NewCircuitBreaker(st) }
}

// NewOpenWeatherProvider creates a provider. The key is taken as given; an empty key
// makes Current and Forecast fail with weather.ErrMissingAPIKey.
func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Clock:  clockwork.NewRealClock(),
		},
		circuit: cb,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmCurrentPayload struct {
	Name string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity float64  `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastPayload struct {
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
	List []struct {
		Dt   *int64 `json:"dt"`
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
}

// Current fetches current conditions from /weather.
func (p *OpenWeatherProvider) Current(ctx context.Context, loc weather.Location, units weather.Units) (weather.Current, error) {
	if p.apiKey == "" {
		return weather.Current{}, weather.ErrMissingAPIKey
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, weather.StageCurrent, p.requestBuilder("/weather", loc, units))
	if err != nil {
		return weather.Current{}, err
	}
	if err := checkStatus(weather.StageCurrent, resp); err != nil {
		return weather.Current{}, err
	}

	var payload owmCurrentPayload
	if err := decodeJSON(weather.StageCurrent, resp, &payload); err != nil {
		return weather.Current{}, err
	}
	if payload.Main.Temp == nil {
		return weather.Current{}, &weather.ValidationError{Index: -1, Field: "main.temp"}
	}
	if len(payload.Weather) == 0 {
		return weather.Current{}, &weather.ValidationError{Index: -1, Field: "weather"}
	}

	return weather.Current{
		City:        payload.Name,
		Temperature: weather.RoundTenth(*payload.Main.Temp),
		Description: weather.Capitalize(payload.Weather[0].Description),
		Icon:        payload.Weather[0].Icon,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
	}, nil
}

// Forecast fetches the 5-day / 3-hour forecast from /forecast.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, loc weather.Location, units weather.Units) (weather.ForecastData, error) {
	if p.apiKey == "" {
		return weather.ForecastData{}, weather.ErrMissingAPIKey
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, weather.StageForecast, p.requestBuilder("/forecast", loc, units))
	if err != nil {
		return weather.ForecastData{}, err
	}
	if err := checkStatus(weather.StageForecast, resp); err != nil {
		return weather.ForecastData{}, err
	}

	var payload owmForecastPayload
	if err := decodeJSON(weather.StageForecast, resp, &payload); err != nil {
		return weather.ForecastData{}, err
	}

	samples := make([]weather.Sample, 0, len(payload.List))
	for i, item := range payload.List {
		switch {
		case item.Dt == nil:
			return weather.ForecastData{}, &weather.ValidationError{Index: i, Field: "dt"}
		case item.Main.Temp == nil:
			return weather.ForecastData{}, &weather.ValidationError{Index: i, Field: "main.temp"}
		case len(item.Weather) == 0:
			return weather.ForecastData{}, &weather.ValidationError{Index: i, Field: "weather"}
		}
		samples = append(samples, weather.Sample{
			Timestamp:   time.Unix(*item.Dt, 0).UTC(),
			Temperature: *item.Main.Temp,
			Description: item.Weather[0].Description,
			Icon:        item.Weather[0].Icon,
		})
	}

	return weather.ForecastData{
		City:      payload.City.Name,
		UTCOffset: payload.City.Timezone,
		Samples:   samples,
	}, nil
}

// Diagnose calls /weather without the circuit breaker and returns what came back,
// with the API key masked. On transport failure the sanitized params are still set.
func (p *OpenWeatherProvider) Diagnose(ctx context.Context, loc weather.Location, units weather.Units) (weather.Diagnosis, error) {
	diag := weather.Diagnosis{RequestParams: p.sanitizedParams(loc, units)}

	resp, err := doRequest(ctx, p.httpCfg, nil, weather.StageDiag, p.requestBuilder("/weather", loc, units))
	if err != nil {
		return diag, err
	}

	diag.StatusCode = resp.StatusCode
	diag.OK = resp.ok()
	diag.Body = bodyExcerpt(resp)
	return diag, nil
}

func (p *OpenWeatherProvider) requestBuilder(path string, loc weather.Location, units weather.Units) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, p.params(loc, units).Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}
}

func (p *OpenWeatherProvider) params(loc weather.Location, units weather.Units) url.Values {
	values := url.Values{}
	if loc.Zip != "" {
		zip := loc.Zip
		if loc.Country != "" {
			zip = fmt.Sprintf("%s,%s", loc.Zip, loc.Country)
		}
		values.Set("zip", zip)
	} else {
		values.Set("q", loc.City)
	}
	values.Set("appid", p.apiKey)
	if units == "" {
		units = weather.UnitsImperial
	}
	values.Set("units", string(units))
	return values
}

func (p *OpenWeatherProvider) sanitizedParams(loc weather.Location, units weather.Units) map[string]string {
	out := make(map[string]string)
	for k, v := range p.params(loc, units) {
		out[k] = v[0]
	}
	out["appid"] = common.MaskSecret(p.apiKey)
	return out
}

// bodyExcerpt decodes JSON bodies and truncates anything else.
func bodyExcerpt(resp upstreamResponse) any {
	if common.IsJSONContentType(resp.ContentType) {
		var v any
		if err := json.Unmarshal(resp.Body, &v); err == nil {
			return v
		}
	}
	return map[string]string{"text": common.Truncate(string(resp.Body), maxMessageBytes)}
}
