package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anhoff/huewatchd/internal/config"
	"github.com/anhoff/huewatchd/internal/engine"
)

// HealthService provides HTTP health check endpoints.
type HealthService struct {
	cfg    *config.Config
	engine *engine.Engine
	server *http.Server
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, eng *engine.Engine) *HealthService {
	return &HealthService{
		cfg:    cfg,
		engine: eng,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Health.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Health.Host, s.cfg.Health.Port)

	mux := http.NewServeMux()

	// Process liveness
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Readiness: at least one successful poll tick against the bridge
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := s.engine.Status()

		w.Header().Set("Content-Type", "application/json")
		if status.LastSuccess.IsZero() {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"last_tick":            formatTime(status.LastTick),
			"last_success":         formatTime(status.LastSuccess),
			"consecutive_failures": status.ConsecutiveFailures,
		})
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
