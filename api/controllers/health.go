package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/hanamarche/hanamarche-backend/api/responses"
	"github.com/hanamarche/hanamarche-backend/pkg/config"
	"github.com/hanamarche/hanamarche-backend/pkg/db"
	pkgerrors "github.com/hanamarche/hanamarche-backend/pkg/errors"
	"github.com/hanamarche/hanamarche-backend/pkg/logger"
	"github.com/hanamarche/hanamarche-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HanaMarche-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when both backing stores answer a
// ping within two seconds.
func HealthReady(cfg *config.Config, dbPing db.Pinger, redisPing redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HanaMarche-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if dbPing != nil {
			if err := dbPing.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping"))
				return
			}
		}
		if redisPing != nil {
			if err := redisPing.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis ping"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
