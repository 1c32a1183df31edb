package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/gigdesk-backend/api/responses"
	"github.com/angelmondragon/gigdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
	"github.com/angelmondragon/gigdesk-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is anything the readiness endpoint can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names a dependency checked by HealthReady.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GigDesk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and fails with 503 when any is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GigDesk-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		failed := map[string]any{}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				status[check.Name] = "down"
				failed[check.Name] = err.Error()
				continue
			}
			status[check.Name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
