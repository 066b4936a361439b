package account

import (
	"net/http"

	"github.com/gorilla/mux"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

// RegisterRoutes: public без токена, protected после auth.Authenticate.
func RegisterRoutes(public, protected *mux.Router, h *Handler) {
	a := public.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	a.HandleFunc("/verify-email", h.VerifyEmail).Methods(http.MethodPost)
	a.HandleFunc("/resend-otp", h.ResendOTP).Methods(http.MethodPost)
	a.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	a.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)

	protected.Handle("/auth/me", auth.Allow(h.Me, auth.AnyRole...)).Methods(http.MethodGet)

	admin := []string{models.RoleAdmin}
	protected.Handle("/users", auth.Allow(h.ListUsers, models.RoleAdmin, models.RoleProjectManager)).Methods(http.MethodGet)
	protected.Handle("/users/pending", auth.Allow(h.ListPending, admin...)).Methods(http.MethodGet)
	protected.Handle("/users/{id:[0-9]+}/assign-role", auth.Allow(h.AssignRole, admin...)).Methods(http.MethodPut)
	protected.Handle("/users/{id:[0-9]+}/reject", auth.Allow(h.RejectUser, admin...)).Methods(http.MethodDelete)
}
