package project

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
	var req CreateProjectRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	p, err := h.svc.Create(r.Context(), id, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Project created successfully", p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.List(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	p, err := h.svc.Get(r.Context(), id, projectID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req UpdateProjectRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	p, err := h.svc.Update(r.Context(), id, projectID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Project updated successfully", p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := h.svc.Delete(r.Context(), id, projectID); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Project deleted successfully", nil)
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.Members(r.Context(), id, projectID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req AddMemberRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	m, err := h.svc.AddMember(r.Context(), id, projectID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Member added successfully", m)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	userID, err := models.PathID(r, "userId")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := h.svc.RemoveMember(r.Context(), id, projectID, userID); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Member removed successfully", nil)
}
