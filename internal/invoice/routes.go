package invoice

import (
	"net/http"

	"github.com/gorilla/mux"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

// RegisterRoutes: все операции со счетами доступны admin и project_manager.
func RegisterRoutes(protected *mux.Router, h *Handler) {
	inv := protected.PathPrefix("/invoices").Subrouter()
	inv.Use(auth.RequireRoles(models.RoleAdmin, models.RoleProjectManager))

	inv.HandleFunc("", h.List).Methods(http.MethodGet)
	inv.HandleFunc("", h.Create).Methods(http.MethodPost)
	inv.HandleFunc("/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	inv.HandleFunc("/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	inv.HandleFunc("/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	inv.HandleFunc("/{id:[0-9]+}/items", h.AddItem).Methods(http.MethodPost)
	inv.HandleFunc("/{id:[0-9]+}/send", h.Send).Methods(http.MethodPut)
	inv.HandleFunc("/{id:[0-9]+}/paid", h.MarkPaid).Methods(http.MethodPut)
}
