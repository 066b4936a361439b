package expense

import (
	"net/http"

	"github.com/gorilla/mux"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

func RegisterRoutes(protected *mux.Router, h *Handler) {
	all := auth.AnyRole
	reviewers := []string{models.RoleAdmin, models.RoleProjectManager}

	protected.Handle("/expenses", auth.Allow(h.List, all...)).Methods(http.MethodGet)
	protected.Handle("/expenses", auth.Allow(h.Create, all...)).Methods(http.MethodPost)
	protected.Handle("/expenses/{id:[0-9]+}", auth.Allow(h.Get, all...)).Methods(http.MethodGet)
	protected.Handle("/expenses/{id:[0-9]+}", auth.Allow(h.Update, all...)).Methods(http.MethodPut)
	protected.Handle("/expenses/{id:[0-9]+}", auth.Allow(h.Delete, all...)).Methods(http.MethodDelete)
	protected.Handle("/expenses/{id:[0-9]+}/review", auth.Allow(h.Review, reviewers...)).Methods(http.MethodPut)
}
