// Package dashboard считает сводку по проектам, задачам, расходам и счетам для текущего пользователя.
package dashboard

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"plantobill/internal/access"
	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

type Stats struct {
	ProjectsByStatus map[string]int64 `json:"projects_by_status"`
	TasksByStatus    map[string]int64 `json:"tasks_by_status"`
	MyOpenTasks      int64            `json:"my_open_tasks"`
	PendingExpenses  int64            `json:"pending_expenses"`
	UnpaidInvoices   int64            `json:"unpaid_invoices"`
	UnpaidTotal      float64          `json:"unpaid_total"`
}

type Service struct {
	db    *gorm.DB
	guard *access.Guard
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, guard: access.NewGuard(db)}
}

// Stats: admin видит всю компанию, остальные только проекты, где состоят.
// Счета считаются только для admin и project_manager (по управляемым проектам).
func (s *Service) Stats(ctx context.Context, id *auth.Identity) (*Stats, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	visible := func() *gorm.DB {
		return repo.VisibleProjects(s.db, actor.CompanyID, actor.ID, actor.IsAdmin())
	}
	out := &Stats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.ProjectsByStatus, err = repo.NewProjectStore(s.db).CountByStatus(gctx, visible())
		return err
	})
	g.Go(func() (err error) {
		out.TasksByStatus, err = repo.NewTaskStore(s.db).CountByStatus(gctx, visible())
		return err
	})
	g.Go(func() (err error) {
		out.MyOpenTasks, err = repo.NewTaskStore(s.db).CountAssigned(gctx, actor.ID, visible())
		return err
	})
	g.Go(func() (err error) {
		out.PendingExpenses, err = repo.NewExpenseStore(s.db).CountPending(gctx, visible())
		return err
	})
	switch actor.RoleName() {
	case models.RoleAdmin, models.RoleProjectManager:
		g.Go(func() (err error) {
			scope := visible()
			if !actor.IsAdmin() {
				scope = repo.ManagedProjects(s.db, actor.CompanyID, actor.ID)
			}
			out.UnpaidInvoices, out.UnpaidTotal, err = repo.NewInvoiceStore(s.db).UnpaidTotal(gctx, scope)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	st, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		models.WriteError(w, r, err)
		return
	}
	models.WriteOK(w, http.StatusOK, "", st)
}

func RegisterRoutes(protected *mux.Router, h *Handler) {
	protected.Handle("/dashboard/stats", auth.Allow(h.Stats, auth.AnyRole...)).Methods(http.MethodGet)
}
