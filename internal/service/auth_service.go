// Package service implements the application's business logic on top of the
// repository layer. Every operation takes the acting user explicitly; there
// is no ambient current-user state.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "inkwell-api"
	tokenAudience = "inkwell-client"

	sessionTokenTTL = 7 * 24 * time.Hour

	// purposeReset distinguishes password-reset tokens from session tokens
	// signed with the same key.
	purposeReset = "password_reset"
)

// AuthService verifies credentials, manages session identity and owns the
// password-reset token lifecycle.
type AuthService struct {
	userRepo repository.UserRepository
	secret   []byte
	resetTTL time.Duration

	// now is injectable so expiry behavior is testable.
	now func() time.Time
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateProfileInput carries a profile update. Username and Email are the
// desired new values; Avatar is an already-stored filename or empty.
type UpdateProfileInput struct {
	UserID   uint
	Username string
	Email    string
	Avatar   string
}

// NewAuthService creates an AuthService from configuration.
func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		secret:   []byte(cfg.JWTSecret),
		resetTTL: time.Duration(cfg.ResetTokenTTL) * time.Minute,
		now:      time.Now,
	}
}

// Register creates a new account. All field-validation failures are reported
// at once; uniqueness violations surface as field errors too, and no user row
// is created on any failure.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	fieldErrs := validation.ValidateRegistration(in.Username, in.Email, in.Password)
	conflicts := validation.FieldErrors{}

	if _, ok := fieldErrs["username"]; !ok {
		existing, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			conflicts.Add("username", "username already in use")
		}
	}
	if _, ok := fieldErrs["email"]; !ok {
		existing, err := s.userRepo.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			conflicts.Add("email", "email already in use")
		}
	}

	// Malformed fields dominate: the response lists every problem at once.
	// Pure uniqueness collisions get their own code.
	if !fieldErrs.Empty() {
		for field, msg := range conflicts {
			fieldErrs.Add(field, msg)
		}
		return nil, models.NewFieldValidationError(fieldErrs)
	}
	if !conflicts.Empty() {
		return nil, models.NewConflictError(conflicts)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
		Avatar:   models.DefaultAvatar,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks the email/password pair and returns the user with a
// signed session token. Unknown email and wrong password are indistinguishable
// to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		observability.AuthFailures.WithLabelValues("unknown_email").Inc()
		return nil, "", models.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.AuthFailures.WithLabelValues("bad_password").Inc()
		return nil, "", models.NewInvalidCredentialsError()
	}

	token, err := s.SessionToken(user)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return user, token, nil
}

// SessionToken creates a signed session JWT for the given user.
func (s *AuthService) SessionToken(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(sessionTokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// IssueResetToken produces a signed, time-limited token bound to the user's
// id only. The token is stateless; nothing is persisted.
func (s *AuthService) IssueResetToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":     strconv.FormatUint(uint64(user.ID), 10),
		"purpose": purposeReset,
		"iss":     tokenIssuer,
		"aud":     tokenAudience,
		"exp":     now.Add(s.resetTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	observability.ResetTokensIssued.Inc()
	return signed, nil
}

// VerifyResetToken validates signature, purpose and expiry and returns the
// bound user id. Malformed input yields TokenInvalid, never a panic.
func (s *AuthService) VerifyResetToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, models.NewTokenExpiredError()
		}
		return 0, models.NewTokenInvalidError()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, models.NewTokenInvalidError()
	}
	if purpose, _ := claims["purpose"].(string); purpose != purposeReset {
		return 0, models.NewTokenInvalidError()
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, models.NewTokenInvalidError()
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, models.NewTokenInvalidError()
	}
	return uint(userID), nil
}

// ResetPassword completes the reset flow: verifies the token and stores a new
// password hash for the bound user.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) (*models.User, error) {
	userID, err := s.VerifyResetToken(tokenString)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.Password = string(hashed)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies new username/email/avatar values. Uniqueness is only
// re-checked for fields that actually changed, so keeping the current value
// never collides with itself.
func (s *AuthService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	fieldErrs := validation.FieldErrors{}
	conflicts := validation.FieldErrors{}

	if in.Username != "" && in.Username != user.Username {
		if err := validation.ValidateUsername(in.Username); err != nil {
			fieldErrs.Add("username", err.Error())
		} else {
			existing, err := s.userRepo.GetByUsername(ctx, in.Username)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				conflicts.Add("username", "username already in use")
			}
		}
	}
	if in.Email != "" && in.Email != user.Email {
		if err := validation.ValidateEmail(in.Email); err != nil {
			fieldErrs.Add("email", err.Error())
		} else {
			existing, err := s.userRepo.GetByEmail(ctx, in.Email)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				conflicts.Add("email", "email already in use")
			}
		}
	}

	if !fieldErrs.Empty() {
		for field, msg := range conflicts {
			fieldErrs.Add(field, msg)
		}
		return nil, models.NewFieldValidationError(fieldErrs)
	}
	if !conflicts.Empty() {
		return nil, models.NewConflictError(conflicts)
	}

	if in.Username != "" {
		user.Username = in.Username
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
