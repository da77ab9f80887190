package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"forgedb/internal/captcha"
	"forgedb/internal/featureflags"
	"forgedb/internal/mail"
	"forgedb/internal/middleware"
	"forgedb/internal/models"
	"forgedb/internal/observability"
	"forgedb/internal/repository"
	"forgedb/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	// VerificationCodeTTL is how long an emailed verification code stays valid.
	VerificationCodeTTL = 10 * time.Minute
	defaultBcryptCost   = 12
)

type AuthService struct {
	users      repository.UserRepository
	mailer     mail.Mailer
	captcha    captcha.Verifier
	flags      *featureflags.Manager
	bcryptCost int
	now        func() time.Time
}

type RegisterInput struct {
	Email         string
	Password      string
	HCaptchaToken string
	RemoteIP      string
}

func NewAuthService(
	users repository.UserRepository,
	mailer mail.Mailer,
	verifier captcha.Verifier,
	flags *featureflags.Manager,
) *AuthService {
	return &AuthService{
		users:      users,
		mailer:     mailer,
		captcha:    verifier,
		flags:      flags,
		bcryptCost: defaultBcryptCost,
		now:        time.Now,
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// HashPassword hashes a password with the service's bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// Register creates an unverified account and emails it a verification code.
// With email verification switched off the account starts verified.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.HCaptchaToken) == "" {
		return nil, models.NewValidationError("email, password and hcaptchaToken are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ok, err := s.captcha.Verify(ctx, in.HCaptchaToken, in.RemoteIP)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("captcha verification: %w", err))
	}
	if !ok {
		return nil, models.NewValidationError("hCaptcha verification failed")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email is already registered")
	}

	hashed, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    email,
		Password: hashed,
		Badges:   []string{},
	}

	verify := s.flags.Global(featureflags.EmailVerification)
	if verify {
		code, err := generateVerificationCode()
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		expires := s.now().Add(VerificationCodeTTL)
		user.VerificationCode = code
		user.VerificationCodeExpires = &expires
	} else {
		user.IsVerified = true
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if verify {
		if err := s.sendVerification(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User) error {
	msg, err := mail.VerificationMessage(user.Email, user.VerificationCode, VerificationCodeTTL)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		observability.VerificationEmails.WithLabelValues("failed").Inc()
		middleware.Logger.ErrorContext(ctx, "verification email failed", "user_id", user.ID, "error", err)
		return models.NewInternalError(fmt.Errorf("send verification email: %w", err))
	}
	observability.VerificationEmails.WithLabelValues("sent").Inc()
	return nil
}

// Verify checks an emailed code and marks the account verified. Verifying
// an already verified account succeeds without changes.
func (s *AuthService) Verify(ctx context.Context, email, code string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, models.NewValidationError("email and code are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if user.IsVerified {
		return user, nil
	}

	if validation.ValidateVerificationCode(code) != nil ||
		subtle.ConstantTimeCompare([]byte(code), []byte(user.VerificationCode)) != 1 ||
		user.VerificationCodeExpires == nil ||
		s.now().After(*user.VerificationCodeExpires) {
		return nil, models.NewValidationError("Invalid or expired verification code")
	}

	user.IsVerified = true
	user.VerificationCode = ""
	user.VerificationCodeExpires = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials. The email match is case-insensitive.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	return user, nil
}

// generateVerificationCode returns a uniformly random 6-digit code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
