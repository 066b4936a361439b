package invoice

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"plantobill/internal/access"
	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/logs"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

const (
	MsgOnlyDraftSend  = "Only draft invoices can be sent"
	MsgDeletePaid     = "Cannot delete a paid invoice"
	MsgUpdatePaid     = "Cannot update a paid invoice"
	MsgItemsDraftOnly = "Items can only be added to draft invoices"
	msgNotFound       = "Invoice not found"
	msgCannotManage   = "Only project managers of this project or admins can manage invoices"
)

type Service struct {
	db       *gorm.DB
	invoices *repo.InvoiceStore
	guard    *access.Guard
	log      *logrus.Entry

	Now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		invoices: repo.NewInvoiceStore(db),
		guard:    access.NewGuard(db),
		log:      logs.Component("invoice"),
		Now:      time.Now,
	}
}

// Number: INV-YYYYMMDD-XXXXXXXX.
func Number(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "INV-" + at.Format("20060102") + "-" + suffix
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// totals пересчитывает налог и итог от суммы позиций.
func totals(amount, taxRate float64) (tax, total float64) {
	amount = round2(amount)
	tax = round2(amount * taxRate / 100)
	return tax, round2(amount + tax)
}

func (s *Service) Create(ctx context.Context, id *auth.Identity, in CreateInvoiceRequest) (*models.Invoice, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.guard.Manager(ctx, actor, in.ProjectID, msgCannotManage)
	if err != nil {
		return nil, err
	}
	issue, err := models.ParseDate(in.IssueDate)
	if err != nil {
		return nil, err
	}
	due, err := models.ParseDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	inv := &models.Invoice{
		InvoiceNumber: Number(now),
		ProjectID:     p.ID,
		ClientName:    strings.TrimSpace(in.ClientName),
		ClientEmail:   strings.TrimSpace(in.ClientEmail),
		IssueDate:     issue,
		DueDate:       due,
		TaxRate:       in.TaxRate,
		Notes:         in.Notes,
		Status:        models.InvoiceStatusDraft,
		CreatedBy:     actor.ID,
	}
	for _, it := range in.Items {
		item := models.InvoiceItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      round2(it.Quantity * it.UnitPrice),
		}
		inv.Amount += item.Amount
		inv.Items = append(inv.Items, item)
	}
	inv.Amount = round2(inv.Amount)
	inv.TaxAmount, inv.Total = totals(inv.Amount, inv.TaxRate)

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"invoice": inv.InvoiceNumber, "project_id": p.ID, "total": inv.Total}).Info("invoice created")
	return s.invoices.Get(ctx, inv.ID)
}

// List: admin видит все счета компании, project_manager только по управляемым проектам.
func (s *Service) List(ctx context.Context, id *auth.Identity, projectID uint, status string) ([]models.Invoice, error) {
	if status != "" && status != models.InvoiceStatusDraft &&
		status != models.InvoiceStatusSent && status != models.InvoiceStatusPaid {
		return nil, apperr.Validation("Invalid status. Must be one of: draft, sent, paid")
	}
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	f := repo.InvoiceFilter{CompanyID: actor.CompanyID, ProjectID: projectID, Status: status}
	switch actor.RoleName() {
	case models.RoleAdmin:
	case models.RoleProjectManager:
		f.ManagerID = actor.ID
	default:
		return nil, apperr.Forbidden("Access denied. Insufficient permissions.")
	}
	out, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id *auth.Identity, invoiceID uint) (*models.Invoice, error) {
	_, inv, err := s.managed(ctx, id, invoiceID)
	return inv, err
}

func (s *Service) Update(ctx context.Context, id *auth.Identity, invoiceID uint, in UpdateInvoiceRequest) (*models.Invoice, error) {
	_, inv, err := s.managed(ctx, id, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusPaid {
		return nil, apperr.Conflict(MsgUpdatePaid)
	}

	fields := map[string]any{}
	if in.ClientName != nil {
		name := strings.TrimSpace(*in.ClientName)
		if name == "" {
			return nil, apperr.Validation("client_name is required")
		}
		fields["client_name"] = name
	}
	if in.ClientEmail != nil {
		fields["client_email"] = strings.TrimSpace(*in.ClientEmail)
	}
	for col, raw := range map[string]*string{"issue_date": in.IssueDate, "due_date": in.DueDate} {
		if raw == nil {
			continue
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		if d == nil {
			fields[col] = nil
		} else {
			fields[col] = *d
		}
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.TaxRate != nil {
		tax, total := totals(inv.Amount, *in.TaxRate)
		fields["tax_rate"] = *in.TaxRate
		fields["tax_amount"] = tax
		fields["total"] = total
	}
	if len(fields) == 0 {
		return inv, nil
	}

	unpaid := []string{models.InvoiceStatusDraft, models.InvoiceStatusSent}
	if err := s.invoices.UpdateWhere(ctx, inv.ID, unpaid, fields); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return nil, apperr.Conflict(MsgUpdatePaid)
		}
		return nil, apperr.Internal(err)
	}
	return s.invoices.Get(ctx, inv.ID)
}

// AddItem дописывает позицию черновика и пересчитывает суммы в той же транзакции.
func (s *Service) AddItem(ctx context.Context, id *auth.Identity, invoiceID uint, in ItemRequest) (*models.Invoice, error) {
	_, inv, err := s.managed(ctx, id, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return nil, apperr.Conflict(MsgItemsDraftOnly)
	}

	item := &models.InvoiceItem{
		InvoiceID:   inv.ID,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Amount:      round2(in.Quantity * in.UnitPrice),
	}
	amount := round2(inv.Amount + item.Amount)
	tax, total := totals(amount, inv.TaxRate)
	err = repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		store := repo.NewInvoiceStore(tx)
		if err := store.AppendItem(ctx, item); err != nil {
			return err
		}
		return store.UpdateWhere(ctx, inv.ID, []string{models.InvoiceStatusDraft}, map[string]any{
			"amount":     amount,
			"tax_amount": tax,
			"total":      total,
		})
	})
	if errors.Is(err, repo.ErrStale) {
		return nil, apperr.Conflict(MsgItemsDraftOnly)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.invoices.Get(ctx, inv.ID)
}

// Send: только draft -> sent.
func (s *Service) Send(ctx context.Context, id *auth.Identity, invoiceID uint) (*models.Invoice, error) {
	_, inv, err := s.managed(ctx, id, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return nil, apperr.Conflict(MsgOnlyDraftSend)
	}
	err = s.invoices.UpdateWhere(ctx, inv.ID, []string{models.InvoiceStatusDraft}, map[string]any{
		"status":  models.InvoiceStatusSent,
		"sent_at": s.Now().UTC(),
	})
	if errors.Is(err, repo.ErrStale) {
		return nil, apperr.Conflict(MsgOnlyDraftSend)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.WithField("invoice", inv.InvoiceNumber).Info("invoice sent")
	return s.invoices.Get(ctx, inv.ID)
}

// MarkPaid не проверяет текущий статус: draft -> paid тоже допустим.
// Выручка проекта растёт только при первом переходе в paid; повтор ничего не меняет.
func (s *Service) MarkPaid(ctx context.Context, id *auth.Identity, invoiceID uint) (*models.Invoice, error) {
	_, inv, err := s.managed(ctx, id, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusPaid {
		return inv, nil
	}
	err = repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		err := repo.NewInvoiceStore(tx).UpdateWhere(ctx, inv.ID,
			[]string{models.InvoiceStatusDraft, models.InvoiceStatusSent},
			map[string]any{"status": models.InvoiceStatusPaid, "paid_at": s.Now().UTC()})
		if err != nil {
			return err
		}
		return repo.NewProjectStore(tx).AddAmount(ctx, inv.ProjectID, "revenue", inv.Total)
	})
	if err != nil && !errors.Is(err, repo.ErrStale) {
		return nil, apperr.Internal(err)
	}
	if err == nil {
		s.log.WithFields(logrus.Fields{"invoice": inv.InvoiceNumber, "from": inv.Status}).Info("invoice paid")
	}
	return s.invoices.Get(ctx, inv.ID)
}

func (s *Service) Delete(ctx context.Context, id *auth.Identity, invoiceID uint) error {
	_, inv, err := s.managed(ctx, id, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == models.InvoiceStatusPaid {
		return apperr.Conflict(MsgDeletePaid)
	}
	if err := s.invoices.Delete(ctx, inv.ID); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return apperr.Conflict(MsgDeletePaid)
		}
		return apperr.Internal(err)
	}
	return nil
}

// managed возвращает счёт проекта, которым актор управляет; чужая компания даёт 404.
func (s *Service) managed(ctx context.Context, id *auth.Identity, invoiceID uint) (*models.User, *models.Invoice, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.invoices.Get(ctx, invoiceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}
	if _, err := s.guard.Manager(ctx, actor, inv.ProjectID, msgCannotManage); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, nil, apperr.NotFound(msgNotFound)
		}
		return nil, nil, err
	}
	return actor, inv, nil
}
