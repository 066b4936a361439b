package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/mailer"
	"plantobill/internal/models"
	"plantobill/internal/repo"
	"plantobill/internal/testdb"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []mailer.Message
}

func (c *captureNotifier) Notify(m mailer.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

type fixture struct {
	db    *gorm.DB
	svc   *Service
	mail  *captureNotifier
	now   time.Time
	admin *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testdb.Open(t)
	f := &fixture{db: gdb, mail: &captureNotifier{}, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokens("test-secret", 7*24*time.Hour)
	f.svc = NewService(gdb, tokens, f.mail, Options{OTPTTL: 10 * time.Minute, BcryptCost: bcrypt.MinCost, AppName: "Plan-to-Bill"})
	f.svc.Now = func() time.Time { return f.now }

	company := testdb.Company(t, gdb, DefaultCompany)
	f.admin = testdb.User(t, gdb, company.ID, "admin@x.com", models.StrPtr(models.RoleAdmin))
	return f
}

func (f *fixture) adminID() *auth.Identity {
	return &auth.Identity{UserID: f.admin.ID, Email: f.admin.Email, Role: models.RoleAdmin}
}

func (f *fixture) reload(t *testing.T, email string) *models.User {
	t.Helper()
	var u models.User
	if err := f.db.Where("email = ?", repo.NormalizeEmail(email)).First(&u).Error; err != nil {
		t.Fatalf("reload %s: %v", email, err)
	}
	return &u
}

func (f *fixture) signup(t *testing.T, email string) *models.User {
	t.Helper()
	_, err := f.svc.Signup(context.Background(), SignupRequest{
		Email: email, Password: "secret123", FirstName: "Ann", LastName: "Lee",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	return f.reload(t, email)
}

func wantKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, msg)
	}
	e := apperr.As(err)
	if e.Kind != kind {
		t.Fatalf("kind = %s (%v), want %s", e.Kind, err, kind)
	}
	if msg != "" && e.Message != msg {
		t.Fatalf("message = %q, want %q", e.Message, msg)
	}
}

func TestSignupCreatesUnverifiedAccountAndQueuesOTP(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "A@X.com")

	if u.Email != "a@x.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.IsVerified || u.RoleApproved || !u.PendingApproval || u.Role != nil {
		t.Errorf("unexpected initial state: %+v", u)
	}
	if u.OTP == nil || len(*u.OTP) != 6 {
		t.Fatalf("otp = %v", u.OTP)
	}
	if !u.OTPExpires.Equal(f.now.Add(10 * time.Minute)) {
		t.Errorf("otp_expires = %v", u.OTPExpires)
	}
	if len(f.mail.msgs) != 1 || f.mail.msgs[0].To != "a@x.com" {
		t.Fatalf("mails = %+v", f.mail.msgs)
	}
	if u.CompanyID != f.admin.CompanyID {
		t.Errorf("default company not reused")
	}

	_, err := f.svc.Signup(context.Background(), SignupRequest{Email: "a@x.com", Password: "secret123", FirstName: "B", LastName: "C"})
	wantKind(t, err, apperr.KindConflict, "User already exists")
}

func TestVerifyEmailRules(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "a@x.com")
	ctx := context.Background()

	err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", OTP: "000000"})
	wantKind(t, err, apperr.KindValidation, msgInvalidOTP)

	// после истечения: то же сообщение, что и для неверного кода
	f.now = f.now.Add(10*time.Minute + time.Second)
	err = f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", OTP: *u.OTP})
	wantKind(t, err, apperr.KindValidation, msgInvalidOTP)

	f.now = f.now.Add(-2 * time.Minute)
	if err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", OTP: *u.OTP}); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	got := f.reload(t, "a@x.com")
	if !got.IsVerified || got.OTP != nil || got.OTPExpires != nil {
		t.Fatalf("after verify: %+v", got)
	}

	err = f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", OTP: *u.OTP})
	wantKind(t, err, apperr.KindValidation, "Email already verified")
}

func TestLoginGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, "a@x.com")
	login := func(pw string) error {
		_, err := f.svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: pw})
		return err
	}

	wantKind(t, login("wrong-pass"), apperr.KindAuthentication, msgInvalidCreds)
	_, err := f.svc.Login(ctx, LoginRequest{Email: "nobody@x.com", Password: "secret123"})
	wantKind(t, err, apperr.KindAuthentication, msgInvalidCreds)
	wantKind(t, login("secret123"), apperr.KindAuthorization, msgVerifyFirst)

	if err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", OTP: *u.OTP}); err != nil {
		t.Fatal(err)
	}
	// подтверждён, но роль не назначена
	wantKind(t, login("secret123"), apperr.KindAuthorization, msgPendingApprove)

	if _, err := f.svc.AssignRole(ctx, f.adminID(), u.ID, AssignRoleRequest{}); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	res, err := f.svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login after approval: %v", err)
	}
	id, err := f.svc.tokens.Parse(res.Token)
	if err != nil {
		t.Fatalf("Parse token: %v", err)
	}
	if id.UserID != u.ID || id.Role != models.RoleTeamMember || id.Email != "a@x.com" {
		t.Fatalf("token identity = %+v", id)
	}
}

func TestLoginRechecksEveryGateField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.admin.CompanyID

	cases := []struct {
		name   string
		fields map[string]any
	}{
		{"unverified", map[string]any{"is_verified": false}},
		{"role not approved", map[string]any{"role_approved": false}},
		{"pending approval", map[string]any{"pending_approval": true}},
		{"null role", map[string]any{"role": nil}},
	}
	for i, tc := range cases {
		email := string(rune('a'+i)) + "@gate.com"
		u := testdb.User(t, f.db, company, email, models.StrPtr(models.RoleTeamMember))
		if _, err := f.svc.Login(ctx, LoginRequest{Email: email, Password: testdb.Password}); err != nil {
			t.Fatalf("%s: active user cannot log in: %v", tc.name, err)
		}
		if err := f.db.Model(&models.User{}).Where("id = ?", u.ID).Updates(tc.fields).Error; err != nil {
			t.Fatal(err)
		}
		_, err := f.svc.Login(ctx, LoginRequest{Email: email, Password: testdb.Password})
		if apperr.KindOf(err) != apperr.KindAuthorization {
			t.Errorf("%s: err = %v, want 403", tc.name, err)
		}
	}
}

func TestAssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, "a@x.com")

	_, err := f.svc.AssignRole(ctx, f.adminID(), u.ID, AssignRoleRequest{Role: models.StrPtr("bogus")})
	wantKind(t, err, apperr.KindValidation, "")
	if got := f.reload(t, "a@x.com"); got.Role != nil || got.RoleApproved || !got.PendingApproval {
		t.Fatalf("invalid role mutated the account: %+v", got)
	}

	for _, in := range []*string{nil, models.StrPtr("")} {
		got, err := f.svc.AssignRole(ctx, f.adminID(), u.ID, AssignRoleRequest{Role: in})
		if err != nil {
			t.Fatalf("AssignRole(%v): %v", in, err)
		}
		if got.RoleName() != models.RoleTeamMember {
			t.Errorf("default role = %q", got.RoleName())
		}
	}

	got, err := f.svc.AssignRole(ctx, f.adminID(), u.ID, AssignRoleRequest{Role: models.StrPtr(models.RoleProjectManager)})
	if err != nil {
		t.Fatal(err)
	}
	if got.RoleName() != models.RoleProjectManager || !got.RoleApproved || got.PendingApproval {
		t.Errorf("state = %+v", got)
	}
	if got.ApprovedBy == nil || *got.ApprovedBy != f.admin.ID || got.ApprovedAt == nil {
		t.Errorf("approval stamp missing: %+v", got)
	}

	_, err = f.svc.AssignRole(ctx, f.adminID(), 9999, AssignRoleRequest{})
	wantKind(t, err, apperr.KindNotFound, msgUserNotFound)

	pm := &auth.Identity{UserID: got.ID, Role: models.RoleProjectManager}
	_, err = f.svc.AssignRole(ctx, pm, f.admin.ID, AssignRoleRequest{})
	wantKind(t, err, apperr.KindAuthorization, "")
}

func TestRejectUserOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.signup(t, "p@x.com")
	active := testdb.User(t, f.db, f.admin.CompanyID, "act@x.com", models.StrPtr(models.RoleTeamMember))

	err := f.svc.RejectUser(ctx, f.adminID(), active.ID)
	wantKind(t, err, apperr.KindConflict, "User is not pending approval")

	if err := f.svc.RejectUser(ctx, f.adminID(), pending.ID); err != nil {
		t.Fatalf("RejectUser: %v", err)
	}
	var n int64
	f.db.Model(&models.User{}).Where("id = ?", pending.ID).Count(&n)
	if n != 0 {
		t.Fatal("rejected account still present")
	}
}

func TestListPendingShowsVerifiedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.signup(t, "a@x.com")
	f.signup(t, "b@x.com")
	if err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "a@x.com", OTP: *a.OTP}); err != nil {
		t.Fatal(err)
	}

	list, err := f.svc.ListPending(ctx, f.adminID())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Email != "a@x.com" {
		t.Fatalf("pending = %+v", list)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "nobody@x.com"})
	wantKind(t, err, apperr.KindNotFound, msgUserNotFound)

	if err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "admin@x.com"}); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	u := f.reload(t, "admin@x.com")
	if u.ResetPasswordOTP == nil {
		t.Fatal("reset otp not stored")
	}
	if len(f.mail.msgs) != 1 {
		t.Fatalf("mails = %d", len(f.mail.msgs))
	}

	f.now = f.now.Add(11 * time.Minute)
	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "admin@x.com", OTP: *u.ResetPasswordOTP, NewPassword: "newpass1"})
	wantKind(t, err, apperr.KindValidation, msgInvalidOTP)

	f.now = f.now.Add(-5 * time.Minute)
	if err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "admin@x.com", OTP: *u.ResetPasswordOTP, NewPassword: "newpass1"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := f.svc.Login(ctx, LoginRequest{Email: "admin@x.com", Password: "newpass1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	// код одноразовый
	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "admin@x.com", OTP: *u.ResetPasswordOTP, NewPassword: "again12"})
	wantKind(t, err, apperr.KindValidation, msgInvalidOTP)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.EnsureAdmin(ctx, "root@x.com", "rootpass", "Acme")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if !u.CanLogin() || !u.IsAdmin() {
		t.Fatalf("bootstrap admin not active: %+v", u)
	}
	again, err := f.svc.EnsureAdmin(ctx, "root@x.com", "other", "Acme")
	if err != nil || again.ID != u.ID {
		t.Fatalf("second EnsureAdmin = %+v, %v", again, err)
	}
	if _, err := f.svc.Login(ctx, LoginRequest{Email: "root@x.com", Password: "rootpass"}); err != nil {
		t.Fatalf("bootstrap admin login: %v", err)
	}
}
