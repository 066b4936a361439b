package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/models"
	"plantobill/internal/testdb"
)

type world struct {
	db      *gorm.DB
	svc     *Service
	company *models.Company
	admin   *models.User
	pm      *models.User
	pm2     *models.User
	member  *models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	gdb := testdb.Open(t)
	w := &world{db: gdb, svc: NewService(gdb)}
	w.company = testdb.Company(t, gdb, "Acme")
	w.admin = testdb.User(t, gdb, w.company.ID, "admin@acme.com", models.StrPtr(models.RoleAdmin))
	w.pm = testdb.User(t, gdb, w.company.ID, "pm@acme.com", models.StrPtr(models.RoleProjectManager))
	w.pm2 = testdb.User(t, gdb, w.company.ID, "pm2@acme.com", models.StrPtr(models.RoleProjectManager))
	w.member = testdb.User(t, gdb, w.company.ID, "dev@acme.com", models.StrPtr(models.RoleTeamMember))
	return w
}

func ident(u *models.User) *auth.Identity {
	return &auth.Identity{UserID: u.ID, Email: u.Email, Role: u.RoleName()}
}

func kindOf(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("err = %v (kind %s), want %s", err, got, want)
	}
}

func TestCreateMakesCreatorTheOwner(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	start, end := "2026-01-01", "2026-06-30"
	p, err := w.svc.Create(ctx, ident(w.pm), CreateProjectRequest{
		Name: " Website ", Budget: 5000, StartDate: &start, EndDate: &end,
		Tags: []string{"web", " web", "", "client"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name != "Website" || p.Status != models.ProjectStatusPlanning || p.CompanyID != w.company.ID {
		t.Errorf("project = %+v", p)
	}
	if len(p.Tags) != 2 {
		t.Errorf("tags = %+v, want web+client", p.Tags)
	}

	members, err := w.svc.Members(ctx, ident(w.pm), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].UserID != w.pm.ID || members[0].Role != models.MemberRoleOwner {
		t.Fatalf("members = %+v", members)
	}
	if members[0].User == nil || members[0].User.Email != "pm@acme.com" {
		t.Errorf("member user not preloaded")
	}

	_, err = w.svc.Create(ctx, ident(w.member), CreateProjectRequest{Name: "x"})
	kindOf(t, err, apperr.KindAuthorization)

	bad := "2025-12-31"
	_, err = w.svc.Create(ctx, ident(w.pm), CreateProjectRequest{Name: "x", StartDate: &start, EndDate: &bad})
	kindOf(t, err, apperr.KindValidation)
}

func TestVisibility(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	p1 := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "one")
	testdb.Project(t, w.db, w.company.ID, w.pm2.ID, "two")
	testdb.Member(t, w.db, p1.ID, w.member.ID, models.MemberRoleMember)

	other := testdb.Company(t, w.db, "Globex")
	stranger := testdb.User(t, w.db, other.ID, "boss@globex.com", models.StrPtr(models.RoleAdmin))
	testdb.Project(t, w.db, other.ID, stranger.ID, "foreign")

	cases := []struct {
		who  *models.User
		want int
	}{
		{w.admin, 2},
		{w.pm, 1},
		{w.member, 1},
		{stranger, 1},
	}
	for _, tc := range cases {
		list, err := w.svc.List(ctx, ident(tc.who))
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != tc.want {
			t.Errorf("%s sees %d projects, want %d", tc.who.Email, len(list), tc.want)
		}
	}

	_, err := w.svc.Get(ctx, ident(w.pm2), p1.ID)
	kindOf(t, err, apperr.KindAuthorization)
	_, err = w.svc.Get(ctx, ident(stranger), p1.ID)
	kindOf(t, err, apperr.KindNotFound)
	if _, err := w.svc.Get(ctx, ident(w.admin), p1.ID); err != nil {
		t.Errorf("admin Get: %v", err)
	}
}

func TestUpdatePermissionsAndTags(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	p := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "one")
	testdb.Member(t, w.db, p.ID, w.pm2.ID, models.MemberRoleMember)

	name := "renamed"
	_, err := w.svc.Update(ctx, ident(w.pm2), p.ID, UpdateProjectRequest{Name: &name})
	kindOf(t, err, apperr.KindAuthorization)

	tags := []string{"a", "b"}
	status := models.ProjectStatusActive
	got, err := w.svc.Update(ctx, ident(w.pm), p.ID, UpdateProjectRequest{Name: &name, Status: &status, Tags: &tags})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != name || got.Status != status || len(got.Tags) != 2 {
		t.Fatalf("updated = %+v", got)
	}

	// tags не переданы: набор сохраняется
	budget := 0.0
	got, err = w.svc.Update(ctx, ident(w.admin), p.ID, UpdateProjectRequest{Budget: &budget})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 2 || got.Budget != 0 {
		t.Fatalf("after budget update = %+v", got)
	}

	empty := []string{}
	got, err = w.svc.Update(ctx, ident(w.pm), p.ID, UpdateProjectRequest{Tags: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("tags not cleared: %+v", got.Tags)
	}

	// project_manager с ролью manager в проекте управляет наравне с owner
	if err := w.db.Model(&models.ProjectMember{}).Where("project_id = ? AND user_id = ?", p.ID, w.pm2.ID).
		Update("role", models.MemberRoleManager).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := w.svc.Update(ctx, ident(w.pm2), p.ID, UpdateProjectRequest{Name: &name}); err != nil {
		t.Fatalf("manager Update: %v", err)
	}
}

func TestDeleteOwnerOrAdmin(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	p := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "one")
	testdb.Member(t, w.db, p.ID, w.pm2.ID, models.MemberRoleManager)
	task := testdb.Task(t, w.db, p.ID, w.pm.ID, "t")
	if err := w.db.Create(&models.TaskDelegationHistory{TaskID: task.ID, FromUserID: w.pm.ID, ToUserID: w.pm2.ID, CreatedAt: time.Now()}).Error; err != nil {
		t.Fatal(err)
	}

	err := w.svc.Delete(ctx, ident(w.pm2), p.ID)
	kindOf(t, err, apperr.KindAuthorization)

	if err := w.svc.Delete(ctx, ident(w.pm), p.ID); err != nil {
		t.Fatalf("owner Delete: %v", err)
	}
	var tasks, history int64
	w.db.Model(&models.Task{}).Where("project_id = ?", p.ID).Count(&tasks)
	w.db.Model(&models.TaskDelegationHistory{}).Where("task_id = ?", task.ID).Count(&history)
	if tasks != 0 {
		t.Errorf("tasks left = %d", tasks)
	}
	if history != 1 {
		t.Errorf("delegation history must survive project deletion, got %d rows", history)
	}

	p2 := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "two")
	if err := w.svc.Delete(ctx, ident(w.admin), p2.ID); err != nil {
		t.Fatalf("admin Delete: %v", err)
	}
	err = w.svc.Delete(ctx, ident(w.admin), p2.ID)
	kindOf(t, err, apperr.KindNotFound)
}

func TestDeleteKeepsProjectWithPaidInvoices(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	p := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "billed")
	inv := models.Invoice{
		InvoiceNumber: "INV-20260402-0000ABCD", ProjectID: p.ID, ClientName: "Initech",
		Amount: 100, Total: 100, Status: models.InvoiceStatusPaid, CreatedBy: w.pm.ID,
	}
	if err := w.db.Create(&inv).Error; err != nil {
		t.Fatal(err)
	}

	err := w.svc.Delete(ctx, ident(w.admin), p.ID)
	kindOf(t, err, apperr.KindConflict)
	if apperr.As(err).Message != msgHasPaidInvoices {
		t.Errorf("message = %q", apperr.As(err).Message)
	}
	var n int64
	w.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Count(&n)
	if n != 1 {
		t.Fatal("paid invoice removed with its project")
	}
	if _, err := w.svc.Get(ctx, ident(w.pm), p.ID); err != nil {
		t.Fatalf("project gone after refused delete: %v", err)
	}

	// неоплаченный счёт удаляется вместе с проектом
	if err := w.db.Model(&inv).Update("status", models.InvoiceStatusSent).Error; err != nil {
		t.Fatal(err)
	}
	if err := w.svc.Delete(ctx, ident(w.pm), p.ID); err != nil {
		t.Fatalf("Delete with unpaid invoice: %v", err)
	}
	w.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Count(&n)
	if n != 0 {
		t.Errorf("unpaid invoice left = %d", n)
	}
}

func TestMembers(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	p := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "one")

	m, err := w.svc.AddMember(ctx, ident(w.pm), p.ID, AddMemberRequest{UserID: w.member.ID})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.Role != models.MemberRoleMember {
		t.Errorf("default member role = %q", m.Role)
	}

	_, err = w.svc.AddMember(ctx, ident(w.pm), p.ID, AddMemberRequest{UserID: w.member.ID, Role: models.MemberRoleManager})
	if e := apperr.As(err); e.Kind != apperr.KindValidation || e.Message != msgAlreadyMember {
		t.Fatalf("duplicate add = %v", err)
	}

	other := testdb.Company(t, w.db, "Globex")
	foreign := testdb.User(t, w.db, other.ID, "x@globex.com", nil)
	_, err = w.svc.AddMember(ctx, ident(w.pm), p.ID, AddMemberRequest{UserID: foreign.ID})
	kindOf(t, err, apperr.KindNotFound)

	_, err = w.svc.AddMember(ctx, ident(w.member), p.ID, AddMemberRequest{UserID: w.pm2.ID})
	kindOf(t, err, apperr.KindAuthorization)

	if err := w.svc.RemoveMember(ctx, ident(w.pm), p.ID, w.member.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	err = w.svc.RemoveMember(ctx, ident(w.pm), p.ID, w.member.ID)
	kindOf(t, err, apperr.KindNotFound)
}

func TestOwnerIsNeverRemoved(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	p := testdb.Project(t, w.db, w.company.ID, w.pm.ID, "one")
	testdb.Member(t, w.db, p.ID, w.pm2.ID, models.MemberRoleManager)

	for _, who := range []*models.User{w.admin, w.pm, w.pm2} {
		err := w.svc.RemoveMember(ctx, ident(who), p.ID, w.pm.ID)
		if e := apperr.As(err); e.Kind != apperr.KindValidation || e.Message != msgCannotRemove {
			t.Fatalf("%s removing owner: %v", who.Email, err)
		}
	}
	var n int64
	w.db.Model(&models.ProjectMember{}).Where("project_id = ? AND role = ?", p.ID, models.MemberRoleOwner).Count(&n)
	if n != 1 {
		t.Fatalf("owner rows = %d", n)
	}
}

func TestHandlersEnvelope(t *testing.T) {
	w := newWorld(t)
	tokens := auth.NewTokens("test-secret", time.Hour)
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Authenticate(tokens))
	RegisterRoutes(api, NewHandler(w.svc))

	do := func(u *models.User, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		tok, err := tokens.Issue(*ident(u))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(w.pm, http.MethodPost, "/api/projects", `{"name":"Apollo","budget":100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	var env struct {
		Success bool           `json:"success"`
		Data    models.Project `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || !env.Success || env.Data.ID == 0 {
		t.Fatalf("envelope = %s (%v)", rec.Body, err)
	}

	rec = do(w.member, http.MethodPost, "/api/projects", `{"name":"x"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("team member create status = %d", rec.Code)
	}

	rec = do(w.pm, http.MethodPost, "/api/projects", `{"budget":-1}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("invalid create = %d %s", rec.Code, rec.Body)
	}

	path := "/api/projects/" + jsonID(env.Data.ID) + "/members/" + jsonID(w.pm.ID)
	rec = do(w.pm, http.MethodDelete, path, "")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), msgCannotRemove) {
		t.Errorf("remove owner = %d %s", rec.Code, rec.Body)
	}
}

func jsonID(id uint) string { return strconv.FormatUint(uint64(id), 10) }
