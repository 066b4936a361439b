package expense

import (
	"net/http"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	e, err := h.svc.Create(r.Context(), id, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Expense submitted successfully", e)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.QueryID(r, "project_id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.List(r.Context(), id, projectID, r.URL.Query().Get("status"))
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	expenseID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	e, err := h.svc.Get(r.Context(), id, expenseID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", e)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	expenseID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req UpdateExpenseRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	e, err := h.svc.Update(r.Context(), id, expenseID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Expense updated successfully", e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	expenseID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := h.svc.Delete(r.Context(), id, expenseID); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Expense deleted successfully", nil)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	expenseID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req ReviewRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	e, err := h.svc.Review(r.Context(), id, expenseID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Expense "+e.Status, e)
}
