package expense

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/models"
	"plantobill/internal/testdb"
)

type world struct {
	db      *gorm.DB
	svc     *Service
	project *models.Project
	admin   *models.User
	pm      *models.User // owner проекта
	otherPM *models.User // участник с ролью member
	dev     *models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	gdb := testdb.Open(t)
	w := &world{db: gdb, svc: NewService(gdb)}
	c := testdb.Company(t, gdb, "Acme")
	w.admin = testdb.User(t, gdb, c.ID, "admin@acme.com", models.StrPtr(models.RoleAdmin))
	w.pm = testdb.User(t, gdb, c.ID, "pm@acme.com", models.StrPtr(models.RoleProjectManager))
	w.otherPM = testdb.User(t, gdb, c.ID, "pm2@acme.com", models.StrPtr(models.RoleProjectManager))
	w.dev = testdb.User(t, gdb, c.ID, "dev@acme.com", models.StrPtr(models.RoleTeamMember))
	w.project = testdb.Project(t, gdb, c.ID, w.pm.ID, "Apollo")
	testdb.Member(t, gdb, w.project.ID, w.otherPM.ID, models.MemberRoleMember)
	testdb.Member(t, gdb, w.project.ID, w.dev.ID, models.MemberRoleMember)
	return w
}

func ident(u *models.User) *auth.Identity {
	return &auth.Identity{UserID: u.ID, Email: u.Email, Role: u.RoleName()}
}

func (w *world) submit(t *testing.T, by *models.User, amount float64) *models.Expense {
	t.Helper()
	e, err := w.svc.Create(context.Background(), ident(by), CreateExpenseRequest{
		ProjectID: w.project.ID, Amount: amount, Category: "travel",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func (w *world) spent(t *testing.T) float64 {
	t.Helper()
	var p models.Project
	if err := w.db.First(&p, w.project.ID).Error; err != nil {
		t.Fatal(err)
	}
	return p.Spent
}

func TestReviewHappensOnce(t *testing.T) {
	for _, first := range []string{models.ExpenseStatusApproved, models.ExpenseStatusRejected} {
		t.Run(first, func(t *testing.T) {
			w := newWorld(t)
			ctx := context.Background()
			e := w.submit(t, w.dev, 120.5)

			got, err := w.svc.Review(ctx, ident(w.pm), e.ID, ReviewRequest{Status: first, Notes: models.StrPtr("ok")})
			if err != nil {
				t.Fatalf("Review: %v", err)
			}
			if got.Status != first || got.ReviewedBy == nil || *got.ReviewedBy != w.pm.ID || got.ReviewedAt == nil {
				t.Fatalf("reviewed = %+v", got)
			}

			for _, again := range []string{models.ExpenseStatusApproved, models.ExpenseStatusRejected} {
				_, err := w.svc.Review(ctx, ident(w.admin), e.ID, ReviewRequest{Status: again})
				ae := apperr.As(err)
				if err == nil || ae.Message != MsgAlreadyReviewed || apperr.Status(ae.Kind) != 400 {
					t.Errorf("second review (%s) = %v", again, err)
				}
			}

			want := 0.0
			if first == models.ExpenseStatusApproved {
				want = 120.5
			}
			if got := w.spent(t); got != want {
				t.Errorf("project spent = %v, want %v", got, want)
			}
		})
	}
}

func TestReviewerRules(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	e := w.submit(t, w.dev, 10)

	// project_manager без роли owner/manager в проекте
	_, err := w.svc.Review(ctx, ident(w.otherPM), e.ID, ReviewRequest{Status: models.ExpenseStatusApproved})
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("member-PM review: %v", err)
	}
	_, err = w.svc.Review(ctx, ident(w.dev), e.ID, ReviewRequest{Status: models.ExpenseStatusApproved})
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("team member review: %v", err)
	}

	if err := w.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", w.project.ID, w.otherPM.ID).
		Update("role", models.MemberRoleManager).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := w.svc.Review(ctx, ident(w.otherPM), e.ID, ReviewRequest{Status: models.ExpenseStatusRejected}); err != nil {
		t.Fatalf("manager-PM review: %v", err)
	}
}

func TestSubmitterEditsAndDeletesOnlyWhilePending(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	e := w.submit(t, w.dev, 50)

	amount := 75.0
	got, err := w.svc.Update(ctx, ident(w.dev), e.ID, UpdateExpenseRequest{Amount: &amount})
	if err != nil || got.Amount != 75 {
		t.Fatalf("Update pending = %+v, %v", got, err)
	}
	if _, err := w.svc.Update(ctx, ident(w.pm), e.ID, UpdateExpenseRequest{Amount: &amount}); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Errorf("non-submitter update: %v", err)
	}

	if _, err := w.svc.Review(ctx, ident(w.pm), e.ID, ReviewRequest{Status: models.ExpenseStatusApproved}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.svc.Update(ctx, ident(w.dev), e.ID, UpdateExpenseRequest{Amount: &amount}); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("update after review: %v", err)
	}
	if err := w.svc.Delete(ctx, ident(w.dev), e.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("submitter delete after review: %v", err)
	}
	if err := w.svc.Delete(ctx, ident(w.admin), e.ID); err != nil {
		t.Errorf("admin delete of approved expense: %v", err)
	}

	pending := w.submit(t, w.dev, 5)
	if err := w.svc.Delete(ctx, ident(w.dev), pending.ID); err != nil {
		t.Errorf("submitter delete pending: %v", err)
	}
	if _, err := w.svc.Get(ctx, ident(w.dev), pending.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("deleted expense still visible: %v", err)
	}
}

func TestListVisibility(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.submit(t, w.dev, 1)
	w.submit(t, w.otherPM, 2)
	w.submit(t, w.pm, 3)

	cases := []struct {
		who  *models.User
		want int
	}{
		{w.admin, 3},
		{w.pm, 3},      // owner видит все расходы проекта
		{w.otherPM, 1}, // PM без управляющей роли: только свои
		{w.dev, 1},
	}
	for _, tc := range cases {
		list, err := w.svc.List(ctx, ident(tc.who), 0, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != tc.want {
			t.Errorf("%s sees %d expenses, want %d", tc.who.Email, len(list), tc.want)
		}
	}

	pending, err := w.svc.List(ctx, ident(w.admin), w.project.ID, models.ExpenseStatusPending)
	if err != nil || len(pending) != 3 {
		t.Fatalf("filtered = %d, %v", len(pending), err)
	}
	if _, err := w.svc.List(ctx, ident(w.admin), 0, "paid"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bogus status: %v", err)
	}
}

func TestCreateRequiresMembership(t *testing.T) {
	w := newWorld(t)
	var company models.Company
	w.db.First(&company)
	outsider := testdb.User(t, w.db, company.ID, "out@acme.com", models.StrPtr(models.RoleTeamMember))

	_, err := w.svc.Create(context.Background(), ident(outsider), CreateExpenseRequest{ProjectID: w.project.ID, Amount: 1, Category: "x"})
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("outsider submit: %v", err)
	}
	_, err = w.svc.Create(context.Background(), ident(w.dev), CreateExpenseRequest{ProjectID: 999, Amount: 1, Category: "x"})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown project: %v", err)
	}
}
