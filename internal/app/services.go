package app

import (
	"context"

	"github.com/anhoff/huewatchd/internal/astro"
	"github.com/anhoff/huewatchd/internal/config"
	"github.com/anhoff/huewatchd/internal/engine"
	"github.com/anhoff/huewatchd/internal/hue"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	Hue    *hue.Client
	Astro  *astro.Calculator
	Engine *engine.Engine
	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	tz := cfg.Location()

	s.Hue = hue.NewClient(cfg.Hue.Bridge, cfg.Hue.Token, cfg.Hue.Timeout.Duration())
	s.Astro = astro.NewCalculator(cfg.Geo.Lat, cfg.Geo.Lon, tz)

	s.Engine = engine.New(
		s.Hue,
		s.Astro,
		tz,
		cfg.Engine.PingInterval.Duration(),
		cfg.Engine.ReachabilityWindow.Duration(),
		cfg.Engine.TickTimeout.Duration(),
	)

	s.Health = NewHealthService(cfg, s.Engine)

	return s, nil
}

// Start connects to the Hue bridge and starts the background services.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Hue.Connect(ctx); err != nil {
		return err
	}

	go s.Engine.Run(ctx)
	s.Health.Start(ctx)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	if s.Hue != nil {
		s.Hue.Close()
	}
	return nil
}
