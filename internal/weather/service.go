package weather

import (
	"context"
	"fmt"
	"log"
)

// Service runs a lookup against the provider and aggregates the forecast.
type Service struct {
	provider Provider
	zone     DayZone
}

// NewService creates a new Service. A nil zone splits days in the server's local zone.
func NewService(provider Provider, zone DayZone) *Service {
	if zone == nil {
		zone, _ = ParseDayZone("local")
	}
	return &Service{
		provider: provider,
		zone:     zone,
	}
}

// Lookup fetches current conditions and the forecast for loc.
// When only the forecast fails, the returned report still carries Current
// alongside the error.
func (s *Service) Lookup(ctx context.Context, loc Location, units Units) (Report, error) {
	report := Report{Location: loc, Units: units, Days: []DaySummary{}}

	if s.provider == nil {
		return report, fmt.Errorf("no weather provider configured")
	}

	cur, err := s.provider.Current(ctx, loc, units)
	if err != nil {
		log.Printf("provider %s current failed for %s: %v", s.provider.Name(), loc.Key(), err)
		return report, err
	}
	report.Current = &cur

	fc, err := s.provider.Forecast(ctx, loc, units)
	if err != nil {
		log.Printf("provider %s forecast failed for %s: %v", s.provider.Name(), loc.Key(), err)
		return report, err
	}

	days, err := AggregateDaily(fc.Samples, s.zone(fc.UTCOffset))
	if err != nil {
		log.Printf("ERROR: forecast aggregation failed for %s: %v", loc.Key(), err)
		return report, err
	}
	report.Days = days
	report.Samples = fc.Samples

	return report, nil
}

// Diagnose makes a raw test call against the data source.
func (s *Service) Diagnose(ctx context.Context, loc Location, units Units) (Diagnosis, error) {
	d, ok := s.provider.(Diagnoser)
	if !ok {
		return Diagnosis{}, ErrDiagnosticsUnsupported
	}
	return d.Diagnose(ctx, loc, units)
}

// Probe reports whether the data source currently answers with a success status.
func (s *Service) Probe(ctx context.Context, loc Location) error {
	diag, err := s.Diagnose(ctx, loc, UnitsImperial)
	if err != nil {
		return err
	}
	if !diag.OK {
		return &UpstreamError{Stage: StageDiag, StatusCode: diag.StatusCode, Message: "probe failed"}
	}
	return nil
}
