package task

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
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req CreateTaskRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	t, err := h.svc.Create(r.Context(), id, projectID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Task created successfully", t)
}

func (h *Handler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.ListByProject(r.Context(), id, projectID, r.URL.Query().Get("status"))
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	t, err := h.svc.Get(r.Context(), id, taskID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req UpdateTaskRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	t, err := h.svc.Update(r.Context(), id, taskID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Task updated successfully", t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	if err := h.svc.Delete(r.Context(), id, taskID); err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Task deleted successfully", nil)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.Mine(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req CommentRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	c, err := h.svc.AddComment(r.Context(), id, taskID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusCreated, "Comment added", c)
}

func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.Comments(r.Context(), id, taskID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) Delegate(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	var req DelegateRequest
	if err := models.DecodeAndValidate(r, &req); err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	t, err := h.svc.Delegate(r.Context(), id, taskID, req)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "Task delegated successfully", t)
}

func (h *Handler) DelegatedToMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.DelegatedToMe(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) DelegatedByMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.DelegatedByMe(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	taskID, err := models.PathID(r, "id")
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	id, _ := auth.FromContext(r.Context())
	list, err := h.svc.History(r.Context(), id, taskID)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", list)
}
