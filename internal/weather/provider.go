package weather

import (
	"context"
)

// Provider abstracts the weather data source (OpenWeatherMap).
// Errors are *UpstreamError, *TransportError, *ValidationError or ErrMissingAPIKey.
type Provider interface {
	Name() string
	Current(ctx context.Context, loc Location, units Units) (Current, error)
	Forecast(ctx context.Context, loc Location, units Units) (ForecastData, error)
}

// Diagnoser is implemented by providers that can make a raw test call.
type Diagnoser interface {
	Diagnose(ctx context.Context, loc Location, units Units) (Diagnosis, error)
}
