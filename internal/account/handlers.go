package account

import (
	"net/http"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	u, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Signup successful. Please check your email for the verification code.",
		map[string]any{"user_id": u.ID, "email": u.Email})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Email verified. Your account is awaiting admin approval.", nil)
}

func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	if err := h.svc.ResendOTP(r.Context(), req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "A new verification code has been sent", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Login successful", res)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Password reset code sent to your email", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Password has been reset", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	u, err := h.svc.Me(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", u)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	users, err := h.svc.ListPending(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", users)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	users, err := h.svc.ListUsers(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", users)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	// пустое тело допустимо: роль по умолчанию
	var req AssignRoleRequest
	if r.ContentLength != 0 {
		if err := models.DecodeAndValidate(r, &req); err != nil {
			models.WriteError(w, r, err)
			return
		}
	}
	id, _ := auth.FromContext(r.Context())
	u, err := h.svc.AssignRole(r.Context(), id, userID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Role assigned successfully", u)
}

func (h *Handler) RejectUser(w http.ResponseWriter, r *http.Request) {
	userID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := h.svc.RejectUser(r.Context(), id, userID); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "User rejected and removed", nil)
}
