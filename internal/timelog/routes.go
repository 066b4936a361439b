package timelog

import (
	"net/http"

	"github.com/gorilla/mux"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

func RegisterRoutes(protected *mux.Router, h *Handler) {
	all := auth.AnyRole

	protected.Handle("/tasks/{id:[0-9]+}/time-logs", auth.Allow(h.List, all...)).Methods(http.MethodGet)
	protected.Handle("/tasks/{id:[0-9]+}/time-logs", auth.Allow(h.Log, all...)).Methods(http.MethodPost)
	protected.Handle("/time-logs/{id:[0-9]+}", auth.Allow(h.Delete, all...)).Methods(http.MethodDelete)
	protected.Handle("/billing-rates", auth.Allow(h.SetRate, models.RoleAdmin)).Methods(http.MethodPut)
	protected.Handle("/billing-rates", auth.Allow(h.Rates, models.RoleAdmin, models.RoleProjectManager)).Methods(http.MethodGet)
}
