package invoice

import (
	"context"
	"net/http"

	"plantobill/internal/auth"
	"plantobill/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	inv, err := h.svc.Create(r.Context(), id, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Invoice created successfully", inv)
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
	h.transition(w, r, "", h.svc.Get)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req UpdateInvoiceRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	inv, err := h.svc.Update(r.Context(), id, invoiceID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Invoice updated successfully", inv)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req ItemRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	inv, err := h.svc.AddItem(r.Context(), id, invoiceID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Item added", inv)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Invoice sent", h.svc.Send)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Invoice marked as paid", h.svc.MarkPaid)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := h.svc.Delete(r.Context(), id, invoiceID); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Invoice deleted successfully", nil)
}

// transition: общий каркас для операций без тела запроса.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, msg string,
	op func(context.Context, *auth.Identity, uint) (*models.Invoice, error)) {
	invoiceID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	inv, err := op(r.Context(), id, invoiceID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, msg, inv)
}
