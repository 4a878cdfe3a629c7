package services

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc    *AuthService
	users  *repository.MemoryUserRepo
	mailer *captureMailer
	clock  *testClock
	tokens *utils.TokenIssuer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := newClock()
	users := repository.NewMemoryUserRepo()
	mailer := &captureMailer{}
	tokens := utils.NewTokenIssuer("test-secret", 7*24*time.Hour, time.Hour, clock.Now)
	svc := NewAuthService(users, tokens, mailer, zap.NewNop(), AuthOptions{
		OTPTTL:      10 * time.Minute,
		BcryptCost:  bcrypt.MinCost,
		FrontendURL: "http://localhost:5173/",
		Now:         clock.Now,
	})
	return &authFixture{svc: svc, users: users, mailer: mailer, clock: clock, tokens: tokens}
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func registration(email string) RegisterInput {
	return RegisterInput{
		FirstName:       "Asha",
		LastName:        "Rao",
		Email:           email,
		Phone:           "9876543210",
		Password:        "Secret1",
		ConfirmPassword: "Secret1",
		EmployeeID:      "E01",
	}
}

func (f *authFixture) register(t *testing.T, email string) (string, string) {
	t.Helper()
	id, err := f.svc.Register(context.Background(), registration(email))
	require.NoError(t, err)
	code := sixDigits.FindString(f.mailer.last(t).Text)
	require.NotEmpty(t, code)
	return id, code
}

func (f *authFixture) verifiedUser(t *testing.T, email string) *models.User {
	t.Helper()
	id, code := f.register(t, email)
	_, err := f.svc.VerifyOTP(context.Background(), id, code)
	require.NoError(t, err)
	u, err := f.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func TestRegisterAndVerify(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	id, code := f.register(t, "a@x.com")

	mail := f.mailer.last(t)
	assert.Equal(t, "a@x.com", mail.To)
	assert.Equal(t, "OTP Verification - Car Portal", mail.Subject)
	assert.Contains(t, mail.HTML, code)
	assert.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := f.svc.VerifyOTP(ctx, id, wrong)
	requireKind(t, err, KindValidation, "Invalid OTP")

	sess, err := f.svc.VerifyOTP(ctx, id, code)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sess.User.Email)
	assert.Equal(t, "Asha Rao", sess.User.Name)
	assert.Equal(t, models.RoleUser, sess.User.Role)

	claims, err := f.tokens.ParseSession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	_, err = f.svc.VerifyOTP(ctx, id, code)
	requireKind(t, err, KindNotFound, "Pending user not found")
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	in := registration("a@x.com")
	in.Phone = ""
	_, err := f.svc.Register(ctx, in)
	requireKind(t, err, KindValidation, "All fields are required")

	in = registration("a@x.com")
	in.ConfirmPassword = "other"
	_, err = f.svc.Register(ctx, in)
	requireKind(t, err, KindValidation, "Passwords do not match")

	in = registration("a@x.com")
	in.EmployeeID = strings.Repeat("x", 17)
	_, err = f.svc.Register(ctx, in)
	requireKind(t, err, KindValidation, "Employee ID must be 16 characters or less")

	in = registration("a@x.com")
	in.Password = strings.Repeat("p", MaxPasswordBytes+8)
	in.ConfirmPassword = in.Password
	_, err = f.svc.Register(ctx, in)
	requireKind(t, err, KindValidation, MsgPasswordTooLong)

	assert.Empty(t, f.mailer.sent)

	// exactly 72 bytes still hashes
	in = registration("b@x.com")
	in.Password = strings.Repeat("p", MaxPasswordBytes)
	in.ConfirmPassword = in.Password
	_, err = f.svc.Register(ctx, in)
	require.NoError(t, err)
}

func TestRegister_PendingLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	oldID, oldCode := f.register(t, "a@x.com")

	_, err := f.svc.Register(ctx, registration("a@x.com"))
	requireKind(t, err, KindValidation, MsgPendingLive)

	f.clock.Advance(10*time.Minute + time.Second)

	newID, newCode := f.register(t, "a@x.com")
	assert.NotEqual(t, oldID, newID)

	_, err = f.svc.VerifyOTP(ctx, oldID, oldCode)
	requireKind(t, err, KindNotFound, "")

	_, err = f.svc.VerifyOTP(ctx, newID, newCode)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registration("A@X.com "))
	requireKind(t, err, KindValidation, MsgEmailTaken)
}

func TestVerifyOTP_ExpiryBoundary(t *testing.T) {
	for _, after := range []time.Duration{0, time.Second} {
		f := newAuthFixture(t)
		id, code := f.register(t, "a@x.com")
		f.clock.Advance(10*time.Minute + after)

		_, err := f.svc.VerifyOTP(context.Background(), id, code)
		requireKind(t, err, KindValidation, "OTP has expired")
	}
}

func TestVerifyOTP_BadInput(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyOTP(ctx, "", "123456")
	requireKind(t, err, KindValidation, "User ID and OTP are required")

	_, err = f.svc.VerifyOTP(ctx, "not-an-id", "123456")
	requireKind(t, err, KindNotFound, "")

	_, err = f.svc.VerifyOTP(ctx, primitive.NewObjectID().Hex(), "123456")
	requireKind(t, err, KindNotFound, "")
}

func TestRegister_MailFailureKeepsPending(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.Register(context.Background(), registration("a@x.com"))
	requireKind(t, err, KindInternal, "")

	u, err := f.users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, u.IsPending())
}

// blindUsers never sees existing emails, so the insert is what catches a
// duplicate, as happens when two registrations race.
type blindUsers struct {
	*repository.MemoryUserRepo
}

func (blindUsers) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func TestRegister_ConcurrentDuplicateIsValidationError(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com")

	svc := NewAuthService(blindUsers{f.users}, f.tokens, f.mailer, zap.NewNop(), AuthOptions{BcryptCost: bcrypt.MinCost, Now: f.clock.Now})
	_, err := svc.Register(context.Background(), registration("a@x.com"))
	requireKind(t, err, KindValidation, MsgEmailTaken)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com")

	_, errUnknown := f.svc.Login(ctx, "nobody@x.com", "Secret1", models.RoleUser)
	_, errWrong := f.svc.Login(ctx, "a@x.com", "wrong", models.RoleUser)
	requireKind(t, errUnknown, KindValidation, MsgInvalidCredentials)
	requireKind(t, errWrong, KindValidation, MsgInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	_, err := f.svc.Login(ctx, "a@x.com", "Secret1", models.RoleAdmin)
	requireKind(t, err, KindForbidden, "You are not authorized to login as admin")

	sess, err := f.svc.Login(ctx, " A@x.com", "Secret1", models.RoleUser)
	require.NoError(t, err)
	claims, err := f.tokens.ParseSession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestLogin_PendingCannotSignIn(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com")

	_, err := f.svc.Login(context.Background(), "a@x.com", "Secret1", models.RoleUser)
	requireKind(t, err, KindValidation, MsgInvalidCredentials)
}

func TestForgotPassword_UnknownEmailSendsNothing(t *testing.T) {
	clock := newClock()
	mailer := &mockMailer{}
	tokens := utils.NewTokenIssuer("s", time.Hour, time.Hour, clock.Now)
	svc := NewAuthService(repository.NewMemoryUserRepo(), tokens, mailer, zap.NewNop(), AuthOptions{Now: clock.Now})

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@x.com"))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	requireKind(t, svc.ForgotPassword(context.Background(), " "), KindValidation, "Email is required")
}

func resetTokenFrom(t *testing.T, m utils.Mail) string {
	t.Helper()
	i := strings.Index(m.Text, "http")
	require.GreaterOrEqual(t, i, 0)
	u, err := url.Parse(strings.TrimSpace(m.Text[i:]))
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", u.Path)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok)
	return tok
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	mail := f.mailer.last(t)
	assert.Equal(t, "Password Reset Request - Car Portal", mail.Subject)
	assert.True(t, strings.HasPrefix(mail.Text[strings.Index(mail.Text, "http"):], "http://localhost:5173/reset-password?token="))
	token := resetTokenFrom(t, mail)

	_, err := f.svc.ResetPassword(ctx, ResetInput{Token: token, NewPassword: "N3w", ConfirmPassword: "other"})
	requireKind(t, err, KindValidation, "Passwords do not match")

	_, err = f.svc.ResetPassword(ctx, ResetInput{Token: "garbage", NewPassword: "N3w", ConfirmPassword: "N3w"})
	requireKind(t, err, KindValidation, MsgInvalidToken)

	long := strings.Repeat("n", MaxPasswordBytes+1)
	_, err = f.svc.ResetPassword(ctx, ResetInput{Token: token, NewPassword: long, ConfirmPassword: long})
	requireKind(t, err, KindValidation, MsgPasswordTooLong)

	sess, err := f.svc.ResetPassword(ctx, ResetInput{Token: token, NewPassword: "N3w", ConfirmPassword: "N3w"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sess.User.Email)

	_, err = f.svc.Login(ctx, "a@x.com", "N3w", models.RoleUser)
	require.NoError(t, err)

	_, err = f.svc.ResetPassword(ctx, ResetInput{Token: token, NewPassword: "again", ConfirmPassword: "again"})
	requireKind(t, err, KindValidation, MsgInvalidToken)
}

// staleUsers serves a user record read before a concurrent reset landed.
type staleUsers struct {
	*repository.MemoryUserRepo
	snapshot models.User
}

func (s staleUsers) FindByID(context.Context, primitive.ObjectID) (*models.User, error) {
	u := s.snapshot
	return &u, nil
}

func TestResetPassword_RacingResetsSucceedOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.verifiedUser(t, "a@x.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	token := resetTokenFrom(t, f.mailer.last(t))

	racer := NewAuthService(staleUsers{f.users, *u}, f.tokens, f.mailer, zap.NewNop(), AuthOptions{BcryptCost: bcrypt.MinCost, Now: f.clock.Now})

	_, err := f.svc.ResetPassword(ctx, ResetInput{Token: token, NewPassword: "first", ConfirmPassword: "first"})
	require.NoError(t, err)
	_, err = racer.ResetPassword(ctx, ResetInput{Token: token, NewPassword: "second", ConfirmPassword: "second"})
	requireKind(t, err, KindValidation, MsgInvalidToken)

	_, err = f.svc.Login(ctx, "a@x.com", "first", models.RoleUser)
	assert.NoError(t, err)
}

func TestResetPassword_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "a@x.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	token := resetTokenFrom(t, f.mailer.last(t))
	f.clock.Advance(time.Hour + time.Second)

	_, err := f.svc.ResetPassword(ctx, ResetInput{Token: token, NewPassword: "N3w", ConfirmPassword: "N3w"})
	requireKind(t, err, KindValidation, MsgResetExpired)
}

func TestResetPassword_SessionTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	u := f.verifiedUser(t, "a@x.com")
	session, err := f.tokens.GenerateJWT(u.ID.Hex(), u.Role)
	require.NoError(t, err)

	_, err = f.svc.ResetPassword(context.Background(), ResetInput{Token: session, NewPassword: "x", ConfirmPassword: "x"})
	requireKind(t, err, KindValidation, MsgInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	u := f.verifiedUser(t, "a@x.com")

	got, err := f.svc.UpdateProfile(context.Background(), u.ID, ProfileInput{LastName: strp("Iyer"), Phone: strp(" 111 ")})
	require.NoError(t, err)
	assert.Equal(t, "Asha Iyer", got.Name)
	assert.Equal(t, "111", got.Phone)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = f.svc.UpdateProfile(context.Background(), primitive.NewObjectID(), ProfileInput{})
	requireKind(t, err, KindNotFound, "User not found")
}
