package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/health", h.Health)

	r.Post("/v1/messages", h.SendMessage)
	r.Get("/v1/messages", h.ListMessages)
	r.Get("/v1/messages/{ref}", h.GetMessage)

	r.Post("/v1/campaigns/{externalID}/refresh", h.RefreshCampaign)

	r.Get("/v1/sweeps/status", h.SweepsStatus)
	r.Post("/v1/sweeps/{name}/start", h.StartSweep)
	r.Post("/v1/sweeps/{name}/stop", h.StopSweep)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("sms-relay"))
	})

	return r
}
