package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Prober checks whether the weather data source answers for a location.
type Prober interface {
	Probe(ctx context.Context, loc weather.Location) error
}

// Scheduler periodically probes the data source and publishes the result as a gauge.
type Scheduler struct {
	scheduler *gocron.Scheduler
	prober    Prober
	location  weather.Location
	interval  time.Duration
	metrics   *observability.Metrics
}

// New creates a new Scheduler.
func New(location weather.Location, interval time.Duration, prober Prober, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		prober:    prober,
		location:  location,
		interval:  interval,
		metrics:   metrics,
	}
}

// Start schedules the probe job and starts the underlying scheduler.
// A zero interval leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: probe interval not set; upstream probe disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce probes the data source once.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.prober.Probe(ctx, s.location); err != nil {
		log.Printf("scheduler: upstream probe failed for %s: %v", s.location.Key(), err)
		s.metrics.SetUpstreamUp(false)
		return
	}
	s.metrics.SetUpstreamUp(true)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
