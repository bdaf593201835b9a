package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const currentJSON = `{
  "name": "Garland",
  "main": {"temp": 71.234, "humidity": 40},
  "wind": {"speed": 8.05},
  "weather": [{"main": "Clear", "description": "clear sky", "icon": "01d"}]
}`

const forecastJSON = `{
  "city": {"name": "Garland", "timezone": -18000},
  "list": [
    {"dt": 1709251200, "main": {"temp": 50.1}, "weather": [{"description": "light rain", "icon": "10n"}]},
    {"dt": 1709262000, "main": {"temp": 55.5}, "weather": [{"description": "light rain", "icon": "10d"}]},
    {"dt": 1709337600, "main": {"temp": 60}, "weather": [{"description": "clear sky", "icon": "01d"}]}
  ]
}`

// fakeOWM records the last query per path and answers from a table of handlers.
type fakeOWM struct {
	mu      sync.Mutex
	queries map[string]url.Values
	routes  map[string]http.HandlerFunc
	hits    int
}

func newFakeOWM(t *testing.T, routes map[string]http.HandlerFunc) (*fakeOWM, *httptest.Server) {
	t.Helper()
	f := &fakeOWM{queries: make(map[string]url.Values), routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries[r.URL.Path] = r.URL.Query()
		f.hits++
		f.mu.Unlock()

		h, ok := f.routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeOWM) hitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *fakeOWM) query(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func jsonBody(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func textBody(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func newTestProvider(srv *httptest.Server, key string, opts ...Option) *OpenWeatherProvider {
	opts = append([]Option{WithBaseURL(srv.URL + "/data/2.5")}, opts...)
	return NewOpenWeatherProvider(srv.Client(), key, opts...)
}

func TestCurrentSuccess(t *testing.T) {
	fake, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": jsonBody(http.StatusOK, currentJSON),
	})
	p := newTestProvider(srv, "secret-key-123")

	cur, err := p.Current(context.Background(), weather.Location{Zip: "75040", Country: "US"}, weather.UnitsImperial)
	require.NoError(t, err)

	assert.Equal(t, weather.Current{
		City:        "Garland",
		Temperature: 71.2,
		Description: "Clear sky",
		Icon:        "01d",
		Humidity:    40,
		WindSpeed:   8.05,
	}, cur)

	q := fake.query("/data/2.5/weather")
	assert.Equal(t, "75040,US", q.Get("zip"))
	assert.Empty(t, q.Get("q"))
	assert.Equal(t, "secret-key-123", q.Get("appid"))
	assert.Equal(t, "imperial", q.Get("units"))
}

func TestCurrentCityQuery(t *testing.T) {
	fake, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": jsonBody(http.StatusOK, currentJSON),
	})
	p := newTestProvider(srv, "k")

	_, err := p.Current(context.Background(), weather.Location{City: "Paris,FR"}, weather.UnitsMetric)
	require.NoError(t, err)

	q := fake.query("/data/2.5/weather")
	assert.Equal(t, "Paris,FR", q.Get("q"))
	assert.Empty(t, q.Get("zip"))
	assert.Equal(t, "metric", q.Get("units"))
}

func TestMissingAPIKeyMakesNoRequest(t *testing.T) {
	fake, srv := newFakeOWM(t, map[string]http.HandlerFunc{})
	p := newTestProvider(srv, "   ")

	_, err := p.Current(context.Background(), weather.Location{City: "Paris"}, weather.UnitsImperial)
	assert.ErrorIs(t, err, weather.ErrMissingAPIKey)

	_, err = p.Forecast(context.Background(), weather.Location{City: "Paris"}, weather.UnitsImperial)
	assert.ErrorIs(t, err, weather.ErrMissingAPIKey)

	assert.Zero(t, fake.hitCount())
}

func TestForecastSuccess(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/forecast": jsonBody(http.StatusOK, forecastJSON),
	})
	p := newTestProvider(srv, "k")

	fc, err := p.Forecast(context.Background(), weather.Location{City: "Garland"}, weather.UnitsImperial)
	require.NoError(t, err)

	assert.Equal(t, "Garland", fc.City)
	assert.Equal(t, -18000, fc.UTCOffset)
	require.Len(t, fc.Samples, 3)
	assert.Equal(t, weather.Sample{
		Timestamp:   time.Unix(1709251200, 0).UTC(),
		Temperature: 50.1,
		Description: "light rain",
		Icon:        "10n",
	}, fc.Samples[0])
}

func TestForecastMalformedSample(t *testing.T) {
	tests := []struct {
		name  string
		item  string
		field string
	}{
		{"missing dt", `{"main": {"temp": 1}, "weather": [{"description": "x", "icon": "01d"}]}`, "dt"},
		{"missing temp", `{"dt": 1709251200, "main": {}, "weather": [{"description": "x", "icon": "01d"}]}`, "main.temp"},
		{"missing weather", `{"dt": 1709251200, "main": {"temp": 1}, "weather": []}`, "weather"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
				"/data/2.5/forecast": jsonBody(http.StatusOK, `{"list": [`+tt.item+`]}`),
			})
			p := newTestProvider(srv, "k")

			_, err := p.Forecast(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
			var verr *weather.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, 0, verr.Index)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCurrentMissingTemperature(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": jsonBody(http.StatusOK, `{"name": "x", "main": {}, "weather": [{"description": "x", "icon": "01d"}]}`),
	})
	p := newTestProvider(srv, "k")

	_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	var verr *weather.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, -1, verr.Index)
	assert.Equal(t, "main.temp", verr.Field)
}

func TestUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		message string
	}{
		{"json message", jsonBody(http.StatusUnauthorized, `{"cod": 401, "message": "Invalid API key."}`), 401, "Invalid API key."},
		{"json without message", jsonBody(http.StatusNotFound, `{"cod": "404"}`), 404, ""},
		{"plain text", textBody(http.StatusBadRequest, "  bad request  \n"), 400, "bad request"},
		{"long text is capped", textBody(http.StatusBadRequest, strings.Repeat("a", 500)), 400, strings.Repeat("a", 300)},
		{"server error", textBody(http.StatusServiceUnavailable, "down"), 503, "down"},
		{"malformed json", jsonBody(http.StatusOK, `{"name": `), 200, "malformed JSON response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeOWM(t, map[string]http.HandlerFunc{"/data/2.5/weather": tt.handler})
			p := newTestProvider(srv, "k")

			_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
			var upErr *weather.UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, weather.StageCurrent, upErr.Stage)
			assert.Equal(t, tt.status, upErr.StatusCode)
			assert.Equal(t, tt.message, upErr.Message)
		})
	}
}

func TestForecastUpstreamErrorStage(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/forecast": jsonBody(http.StatusNotFound, `{"cod": "404", "message": "city not found"}`),
	})
	p := newTestProvider(srv, "k")

	_, err := p.Forecast(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	assert.Equal(t, "Forecast error: 404, city not found", weather.UserMessage(err))
}

func TestTransportError(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{})
	p := newTestProvider(srv, "k")
	srv.Close()

	_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	var trErr *weather.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, weather.StageCurrent, trErr.Stage)
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": jsonBody(http.StatusNotFound, `{"message": "city not found"}`),
	})
	p := newTestProvider(srv, "k", WithCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
		Timeout: time.Minute,
	}))

	for i := 0; i < 5; i++ {
		_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
		var upErr *weather.UpstreamError
		require.ErrorAs(t, err, &upErr)
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	fake, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": textBody(http.StatusInternalServerError, "boom"),
	})
	metrics := observability.NewMetricsForTesting()
	p := newTestProvider(srv, "k", WithMetrics(metrics), WithCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
		Timeout: time.Minute,
	}))

	for i := 0; i < 2; i++ {
		_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
		var upErr *weather.UpstreamError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, 500, upErr.StatusCode)
	}

	// Breaker is open now: no request reaches the server.
	_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	var trErr *weather.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, 2, fake.hitCount())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("current", "upstream_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("current", "circuit_open")))
}

func TestMetricsUseClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": func(w http.ResponseWriter, r *http.Request) {
			clock.Advance(2 * time.Second)
			jsonBody(http.StatusOK, currentJSON)(w, r)
		},
	})
	metrics := observability.NewMetricsForTesting()
	p := newTestProvider(srv, "k", WithMetrics(metrics), WithClock(clock))

	_, err := p.Current(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("current", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.UpstreamDuration))
}

func TestDiagnose(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": jsonBody(http.StatusUnauthorized, `{"cod": 401, "message": "Invalid API key."}`),
	})
	p := newTestProvider(srv, "abcd1234wxyz")

	diag, err := p.Diagnose(context.Background(), weather.Location{Zip: "75040", Country: "US"}, weather.UnitsImperial)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, diag.StatusCode)
	assert.False(t, diag.OK)
	assert.Equal(t, map[string]string{
		"zip":   "75040,US",
		"appid": "abcd...wxyz",
		"units": "imperial",
	}, diag.RequestParams)

	body, ok := diag.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Invalid API key.", body["message"])
}

func TestDiagnoseTextBodyAndTransportFailure(t *testing.T) {
	_, srv := newFakeOWM(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": textBody(http.StatusOK, "hello"),
	})
	p := newTestProvider(srv, "")

	diag, err := p.Diagnose(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	require.NoError(t, err)
	assert.True(t, diag.OK)
	assert.Equal(t, map[string]string{"text": "hello"}, diag.Body)
	assert.Equal(t, "", diag.RequestParams["appid"])

	srv.Close()
	diag, err = p.Diagnose(context.Background(), weather.Location{City: "x"}, weather.UnitsImperial)
	var trErr *weather.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "x", diag.RequestParams["q"])
}
