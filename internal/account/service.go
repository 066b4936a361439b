package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"plantobill/internal/access"
	"plantobill/internal/apperr"
	"plantobill/internal/auth"
	"plantobill/internal/logs"
	"plantobill/internal/mailer"
	"plantobill/internal/models"
	"plantobill/internal/repo"
)

const (
	DefaultCompany = "Default Company"

	msgInvalidOTP     = "Invalid or expired OTP"
	msgInvalidCreds   = "Invalid credentials"
	msgUserNotFound   = "User not found"
	msgVerifyFirst    = "Please verify your email first"
	msgPendingApprove = "Your account is pending admin approval"
)

type Options struct {
	OTPTTL     time.Duration
	BcryptCost int
	AppName    string
}

type Service struct {
	users     *repo.UserStore
	companies *repo.CompanyStore
	guard     *access.Guard
	tokens    *auth.Tokens
	notifier  mailer.Notifier
	opts      Options
	log       *logrus.Entry

	Now func() time.Time
}

func NewService(db *gorm.DB, tokens *auth.Tokens, n mailer.Notifier, opts Options) *Service {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	return &Service{
		users:     repo.NewUserStore(db),
		companies: repo.NewCompanyStore(db),
		guard:     access.NewGuard(db),
		tokens:    tokens,
		notifier:  n,
		opts:      opts,
		log:       logs.Component("account"),
		Now:       time.Now,
	}
}

// Signup создаёт неподтверждённый аккаунт без роли и отправляет OTP.
func (s *Service) Signup(ctx context.Context, in SignupRequest) (*models.User, error) {
	_, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.Conflict("User already exists")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	companyName := strings.TrimSpace(in.CompanyName)
	if companyName == "" {
		companyName = DefaultCompany
	}
	company, err := s.companies.FindOrCreate(ctx, companyName)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	hash, err := auth.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	otp, err := auth.GenerateOTP()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	expires := s.Now().Add(s.opts.OTPTTL)

	u := &models.User{
		CompanyID:       company.ID,
		Email:           in.Email,
		PasswordHash:    hash,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		PendingApproval: true,
		OTP:             &otp,
		OTPExpires:      &expires,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal(err)
	}

	s.notify(mailer.VerificationEmail(s.opts.AppName, u.Email, u.FirstName, otp, s.opts.OTPTTL))
	s.log.WithField("user_id", u.ID).Info("account created")
	return u, nil
}

// VerifyEmail принимает одноразовый код с ограниченным сроком; любой отказ даёт одно и то же сообщение.
func (s *Service) VerifyEmail(ctx context.Context, in VerifyEmailRequest) error {
	u, err := s.byEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return apperr.Validation("Email already verified")
	}
	if !auth.OTPMatches(u.OTP, u.OTPExpires, in.OTP, s.Now()) {
		return apperr.Validation(msgInvalidOTP)
	}
	return s.update(ctx, u.ID, map[string]any{
		"is_verified": true,
		"otp":         nil,
		"otp_expires": nil,
	})
}

// ResendOTP выдаёт новый код неподтверждённому аккаунту.
func (s *Service) ResendOTP(ctx context.Context, in EmailRequest) error {
	u, err := s.byEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return apperr.Validation("Email already verified")
	}
	otp, err := auth.GenerateOTP()
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.update(ctx, u.ID, map[string]any{"otp": otp, "otp_expires": s.Now().Add(s.opts.OTPTTL)}); err != nil {
		return err
	}
	s.notify(mailer.VerificationEmail(s.opts.AppName, u.Email, u.FirstName, otp, s.opts.OTPTTL))
	return nil
}

// Login проверяет все условия допуска при каждом входе; состояние в токене не кэшируется.
func (s *Service) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.Authentication(msgInvalidCreds)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Authentication(msgInvalidCreds)
	}
	if !u.IsVerified {
		return nil, apperr.Forbidden(msgVerifyFirst)
	}
	if !u.CanLogin() {
		return nil, apperr.Forbidden(msgPendingApprove)
	}
	token, err := s.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Role: u.RoleName()})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResponse{Token: token, User: u}, nil
}

func (s *Service) ForgotPassword(ctx context.Context, in EmailRequest) error {
	u, err := s.byEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	otp, err := auth.GenerateOTP()
	if err != nil {
		return apperr.Internal(err)
	}
	err = s.update(ctx, u.ID, map[string]any{
		"reset_password_otp":         otp,
		"reset_password_otp_expires": s.Now().Add(s.opts.OTPTTL),
	})
	if err != nil {
		return err
	}
	s.notify(mailer.PasswordResetEmail(s.opts.AppName, u.Email, u.FirstName, otp, s.opts.OTPTTL))
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordRequest) error {
	u, err := s.byEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if !auth.OTPMatches(u.ResetPasswordOTP, u.ResetPasswordOTPExpires, in.OTP, s.Now()) {
		return apperr.Validation(msgInvalidOTP)
	}
	hash, err := auth.HashPassword(in.NewPassword, s.opts.BcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	return s.update(ctx, u.ID, map[string]any{
		"password_hash":              hash,
		"reset_password_otp":         nil,
		"reset_password_otp_expires": nil,
	})
}

func (s *Service) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	return s.guard.Actor(ctx, id)
}

// ListPending: очередь одобрения компании администратора.
func (s *Service) ListPending(ctx context.Context, id *auth.Identity) ([]models.User, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.users.ListPending(ctx, actor.CompanyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) ListUsers(ctx context.Context, id *auth.Identity) ([]models.User, error) {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.users.ListActive(ctx, actor.CompanyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// NormalizeRole: nil/"" -> team_member; значения вне набора отклоняются.
func NormalizeRole(role *string) (string, error) {
	if role == nil || *role == "" {
		return models.RoleTeamMember, nil
	}
	if !models.IsValidRole(*role) {
		return "", apperr.Validation("Invalid role. Must be one of: admin, project_manager, team_member")
	}
	return *role, nil
}

// AssignRole одобряет аккаунт и назначает роль. Только admin.
func (s *Service) AssignRole(ctx context.Context, id *auth.Identity, userID uint, in AssignRoleRequest) (*models.User, error) {
	role, err := NormalizeRole(in.Role)
	if err != nil {
		return nil, err
	}
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("Only admins can assign roles")
	}
	target, err := s.users.GetInCompany(ctx, actor.CompanyID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	err = s.update(ctx, target.ID, map[string]any{
		"role":             role,
		"role_approved":    true,
		"pending_approval": false,
		"approved_by":      actor.ID,
		"approved_at":      s.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": target.ID, "role": role, "by": actor.ID}).Info("role assigned")
	return s.users.Get(ctx, target.ID)
}

// RejectUser удаляет аккаунт; допустимо только пока он ждёт одобрения.
func (s *Service) RejectUser(ctx context.Context, id *auth.Identity, userID uint) error {
	actor, err := s.guard.Actor(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperr.Forbidden("Only admins can reject users")
	}
	target, err := s.users.GetInCompany(ctx, actor.CompanyID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if !target.PendingApproval {
		return apperr.Conflict("User is not pending approval")
	}
	if err := s.users.DeletePending(ctx, target.ID); err != nil {
		if errors.Is(err, repo.ErrStale) {
			return apperr.Conflict("User is not pending approval")
		}
		return apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"user_id": target.ID, "by": actor.ID}).Info("user rejected")
	return nil
}

// EnsureAdmin создаёт активного администратора, если такого email ещё нет.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, companyName string) (*models.User, error) {
	if u, err := s.users.GetByEmail(ctx, email); err == nil {
		return u, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if companyName == "" {
		companyName = DefaultCompany
	}
	company, err := s.companies.FindOrCreate(ctx, companyName)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	u := &models.User{
		CompanyID:    company.ID,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		Role:         models.StrPtr(models.RoleAdmin),
		IsVerified:   true,
		RoleApproved: true,
		ApprovedAt:   &now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithField("email", u.Email).Info("bootstrap admin created")
	return u, nil
}

func (s *Service) byEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) update(ctx context.Context, id uint, fields map[string]any) error {
	if err := s.users.Update(ctx, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return apperr.Internal(err)
	}
	return nil
}

// notify: отправка вне пути ответа; ошибка рендера только в лог.
func (s *Service) notify(m mailer.Message, err error) {
	if err != nil {
		s.log.WithError(err).Error("render mail")
		return
	}
	if s.notifier != nil {
		s.notifier.Notify(m)
	}
}
