package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Client-facing messages shared by handlers and tests.
const (
	MsgRegistered         = "Registration successful. Please check your email for OTP verification."
	MsgEmailTaken         = "Email already registered"
	MsgPendingLive        = "Email already registered. Please verify your OTP or wait for it to expire."
	MsgInvalidCredentials = "Invalid credentials"
	MsgResetSent          = "If an account with that email exists, a password reset link has been sent."
	MsgResetExpired       = "Reset link has expired. Please request a new one."
	MsgInvalidToken       = "Invalid token"
	MsgPasswordTooLong    = "Password must be 72 bytes or less"
)

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

type RegisterInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	EmployeeID      string `json:"employeeId"`
}

type ResetInput struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

// Session is a signed-in user and the token proving it.
type Session struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

type AuthOptions struct {
	OTPTTL      time.Duration
	BcryptCost  int
	FrontendURL string
	Now         func() time.Time
}

// AuthService owns registration, OTP verification, login and password reset.
type AuthService struct {
	users       repository.UserRepository
	tokens      *utils.TokenIssuer
	mailer      utils.Mailer
	log         *zap.Logger
	otpTTL      time.Duration
	bcryptCost  int
	frontendURL string
	now         func() time.Time
	newOTP      func() (string, error)
}

func NewAuthService(users repository.UserRepository, tokens *utils.TokenIssuer, mailer utils.Mailer, log *zap.Logger, opts AuthOptions) *AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	return &AuthService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		log:         log,
		otpTTL:      opts.OTPTTL,
		bcryptCost:  opts.BcryptCost,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		now:         opts.Now,
		newOTP:      utils.GenerateOTP,
	}
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending registrant and emails it a one-time code. It
// returns the pending record's id.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || strings.TrimSpace(in.Phone) == "" ||
		in.Password == "" || in.ConfirmPassword == "" || in.EmployeeID == "" {
		return "", validation("All fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return "", validation("Passwords do not match")
	}
	if len(in.Password) > MaxPasswordBytes {
		return "", validation(MsgPasswordTooLong)
	}
	if len(in.EmployeeID) > models.MaxReferralIDLen {
		return "", validation("Employee ID must be 16 characters or less")
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return "", internal("Server error", err)
	case !existing.IsPending():
		return "", validation(MsgEmailTaken)
	case s.now().Before(existing.OTPExpires):
		return "", validation(MsgPendingLive)
	default:
		s.log.Info("replacing expired pending registration", zap.String("email", in.Email))
		if err := s.users.DeletePending(ctx, existing.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return "", internal("Server error", err)
		}
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return "", internal("Server error", err)
	}
	code, err := s.newOTP()
	if err != nil {
		return "", internal("Server error", err)
	}

	now := s.now().UTC()
	pending := &models.User{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Name:       models.FullName(in.FirstName, in.LastName),
		Email:      in.Email,
		Phone:      strings.TrimSpace(in.Phone),
		Password:   hash,
		EmployeeID: in.EmployeeID,
		Role:       models.RoleUser,
		Status:     models.StatusPending,
		OTP:        code,
		OTPExpires: now.Add(s.otpTTL),
		CreatedAt:  now,
	}
	if err := s.users.Create(ctx, pending); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", validation(MsgEmailTaken)
		}
		return "", internal("Server error", err)
	}

	if err := s.mailer.Send(ctx, otpMail(in.Email, code, s.otpTTL)); err != nil {
		return "", internal("Failed to send OTP email", err)
	}
	s.log.Info("pending registration created", zap.String("user_id", pending.ID.Hex()))
	return pending.ID.Hex(), nil
}

// VerifyOTP promotes a pending registrant whose code matches and has not
// expired.
func (s *AuthService) VerifyOTP(ctx context.Context, pendingID, code string) (*Session, error) {
	pendingID, code = strings.TrimSpace(pendingID), strings.TrimSpace(code)
	if pendingID == "" || code == "" {
		return nil, validation("User ID and OTP are required")
	}
	id, err := primitive.ObjectIDFromHex(pendingID)
	if err != nil {
		return nil, notFound("Pending user not found")
	}

	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsPending()) {
		return nil, notFound("Pending user not found")
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	if u.OTP == "" || u.OTP != code {
		return nil, validation("Invalid OTP")
	}
	if !s.now().Before(u.OTPExpires) {
		return nil, validation("OTP has expired")
	}

	verified, err := s.users.Promote(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Pending user not found")
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	return s.session(verified)
}

// Login checks credentials and that the stored role is the one the caller
// is signing in as.
func (s *AuthService) Login(ctx context.Context, email, password, loginType string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.IsPending()) {
		return nil, validation(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	if err := utils.CheckPassword(u.Password, password); err != nil {
		return nil, validation(MsgInvalidCredentials)
	}
	if u.Role != loginType {
		return nil, forbidden("You are not authorized to login as " + loginType)
	}
	return s.session(u)
}

// ForgotPassword emails a reset link when a verified account holds email.
// The caller always answers with the same message.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return validation("Email is required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.IsPending()) {
		s.log.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return internal("Server error", err)
	}

	token, err := s.tokens.GenerateResetToken(u.ID.Hex(), u.Email, u.Password)
	if err != nil {
		return internal("Server error", err)
	}
	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mailer.Send(ctx, resetMail(u.Email, link, s.tokens.ResetTTL())); err != nil {
		return internal("Failed to send reset email. Please try again.", err)
	}
	s.log.Info("password reset link sent", zap.String("user_id", u.ID.Hex()))
	return nil
}

// ResetPassword consumes a reset token. A token stops working once the
// password it was issued against has changed.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetInput) (*Session, error) {
	if in.Token == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return nil, validation("All fields are required")
	}
	if in.NewPassword != in.ConfirmPassword {
		return nil, validation("Passwords do not match")
	}
	if len(in.NewPassword) > MaxPasswordBytes {
		return nil, validation(MsgPasswordTooLong)
	}

	claims, err := s.tokens.ParseReset(in.Token)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, validation(MsgResetExpired)
	}
	if err != nil {
		return nil, validation(MsgInvalidToken)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, validation(MsgInvalidToken)
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validation(MsgInvalidToken)
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	if u.IsPending() || u.Email != claims.Email || utils.PasswordFingerprint(u.Password) != claims.Fingerprint {
		return nil, validation(MsgInvalidToken)
	}

	hash, err := utils.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return nil, internal("Server error", err)
	}
	if err := s.users.UpdatePassword(ctx, id, u.Password, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validation(MsgInvalidToken)
		}
		return nil, internal("Password reset failed. Please try again.", err)
	}
	s.log.Info("password reset", zap.String("user_id", u.ID.Hex()))
	return s.session(u)
}

// Profile returns the verified user behind id.
func (s *AuthService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.IsPending()) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	return u, nil
}

// UpdateProfile lets a user change their own name and phone.
func (s *AuthService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*models.User, error) {
	cur, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := repository.UserPatch{}
	first, last := cur.FirstName, cur.LastName
	if v := trimmed(in.FirstName); v != "" {
		first = v
		patch.FirstName = &first
	}
	if v := trimmed(in.LastName); v != "" {
		last = v
		patch.LastName = &last
	}
	if patch.FirstName != nil || patch.LastName != nil {
		name := models.FullName(first, last)
		patch.Name = &name
	}
	if v := trimmed(in.Phone); v != "" {
		patch.Phone = &v
	}

	u, err := s.users.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, internal("Server error", err)
	}
	return u, nil
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := s.tokens.GenerateJWT(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, internal("Server error", err)
	}
	return &Session{User: u.Summary(), Token: token}, nil
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
