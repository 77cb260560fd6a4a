package app

import (
	"net/http"
	"time"

	authapi "letterbox/cmd/internal/auth/api"
	"letterbox/cmd/internal/httpx"
	letterapi "letterbox/cmd/internal/letter/api"
)

func (a *App) registerHTTP(mux *http.ServeMux, auth *authapi.Handler, letters *letterapi.Handler) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.ReadinessRequireDB && a.pool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if a.pool != nil {
			if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				a.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if a.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	auth.Register(mux)
	letters.Register(mux)

	mux.HandleFunc("/", httpx.NotFound)
}
