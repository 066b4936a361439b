package project

import (
	"net/http"

	"github.com/gorilla/mux"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

func RegisterRoutes(protected *mux.Router, h *Handler) {
	managers := []string{models.RoleAdmin, models.RoleProjectManager}

	protected.Handle("/projects", auth.Allow(h.List, auth.AnyRole...)).Methods(http.MethodGet)
	protected.Handle("/projects", auth.Allow(h.Create, managers...)).Methods(http.MethodPost)
	protected.Handle("/projects/{id:[0-9]+}", auth.Allow(h.Get, auth.AnyRole...)).Methods(http.MethodGet)
	protected.Handle("/projects/{id:[0-9]+}", auth.Allow(h.Update, managers...)).Methods(http.MethodPut)
	protected.Handle("/projects/{id:[0-9]+}", auth.Allow(h.Delete, managers...)).Methods(http.MethodDelete)

	protected.Handle("/projects/{id:[0-9]+}/members", auth.Allow(h.Members, auth.AnyRole...)).Methods(http.MethodGet)
	protected.Handle("/projects/{id:[0-9]+}/members", auth.Allow(h.AddMember, managers...)).Methods(http.MethodPost)
	protected.Handle("/projects/{id:[0-9]+}/members/{userId:[0-9]+}", auth.Allow(h.RemoveMember, managers...)).Methods(http.MethodDelete)
}
