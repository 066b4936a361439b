package task

import (
	"net/http"

	"github.com/gorilla/mux"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

func RegisterRoutes(protected *mux.Router, h *Handler) {
	delegators := []string{models.RoleAdmin, models.RoleProjectManager}
	all := auth.AnyRole

	protected.Handle("/projects/{id:[0-9]+}/tasks", auth.Allow(h.ListByProject, all...)).Methods(http.MethodGet)
	protected.Handle("/projects/{id:[0-9]+}/tasks", auth.Allow(h.Create, all...)).Methods(http.MethodPost)

	protected.Handle("/tasks/my", auth.Allow(h.Mine, all...)).Methods(http.MethodGet)
	protected.Handle("/tasks/delegated-to-me", auth.Allow(h.DelegatedToMe, all...)).Methods(http.MethodGet)
	protected.Handle("/tasks/delegated-by-me", auth.Allow(h.DelegatedByMe, delegators...)).Methods(http.MethodGet)

	protected.Handle("/tasks/{id:[0-9]+}", auth.Allow(h.Get, all...)).Methods(http.MethodGet)
	protected.Handle("/tasks/{id:[0-9]+}", auth.Allow(h.Update, all...)).Methods(http.MethodPut)
	protected.Handle("/tasks/{id:[0-9]+}", auth.Allow(h.Delete, all...)).Methods(http.MethodDelete)
	protected.Handle("/tasks/{id:[0-9]+}/comments", auth.Allow(h.Comments, all...)).Methods(http.MethodGet)
	protected.Handle("/tasks/{id:[0-9]+}/comments", auth.Allow(h.AddComment, all...)).Methods(http.MethodPost)

	protected.Handle("/tasks/{id:[0-9]+}/delegate", auth.Allow(h.Delegate, delegators...)).Methods(http.MethodPost)
	protected.Handle("/tasks/{id:[0-9]+}/delegation-history", auth.Allow(h.History, all...)).Methods(http.MethodGet)
}
