package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tagreturn/tagreturn-server/internal/auth"
	"github.com/tagreturn/tagreturn-server/internal/domain"
	domainerrors "github.com/tagreturn/tagreturn-server/internal/errors"
	"github.com/tagreturn/tagreturn-server/internal/id"
	"github.com/tagreturn/tagreturn-server/internal/mail"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// AuthOptions configures account behaviour.
type AuthOptions struct {
	// AdminEmails are granted the admin role at signup.
	AdminEmails []string
	// PublicURL prefixes links in emails.
	PublicURL          string
	ResetTokenDuration time.Duration
}

// AuthService handles signup, signin and password resets.
type AuthService struct {
	store        store.Store
	hasher       auth.PasswordHasher
	tokenService *auth.TokenService
	mailer       Mailer
	opts         AuthOptions
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	hasher auth.PasswordHasher,
	tokenService *auth.TokenService,
	mailer Mailer,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	if opts.ResetTokenDuration <= 0 {
		opts.ResetTokenDuration = time.Hour
	}
	return &AuthService{
		store:        store,
		hasher:       hasher,
		tokenService: tokenService,
		mailer:       mailer,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// SignupRequest contains the profile of a new account.
type SignupRequest struct {
	FullName    string `json:"full_name" validate:"required,max=128"`
	Email       string `json:"email_address" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address,omitempty" validate:"max=256"`
	IDNo        string `json:"id_no,omitempty" validate:"max=64"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"omitempty,e164"`
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	ValidIDType string `json:"valid_id_type,omitempty" validate:"max=64"`
}

// SigninRequest contains user credentials.
type SigninRequest struct {
	Email    string `json:"email_address" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// AuthResponse contains an access token and the signed-in user.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Signup creates an account. Email addresses are unique regardless of case.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := domain.RoleMember
	if slices.Contains(s.opts.AdminEmails, strings.ToLower(req.Email)) {
		role = domain.RoleAdmin
	}

	now := s.now().UTC()
	user := &domain.User{
		UUID:         id.NewUserID(),
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		DateOfBirth:  req.DateOfBirth,
		Address:      req.Address,
		IDNo:         req.IDNo,
		PhoneNumber:  req.PhoneNumber,
		Gender:       req.Gender,
		ValidIDType:  req.ValidIDType,
		PasswordHash: hash,
		Role:         role,
		Items:        map[string]domain.Item{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, domainerrors.AlreadyExists("email address is already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User signed up", "uuid", user.UUID, "role", user.Role)
	s.mailer.SendAsync(mail.TemplateWelcome, user.Email, map[string]any{"Name": user.FullName})

	return publicUser(user), nil
}

// Signin verifies credentials and issues an access token.
func (s *AuthService) Signin(ctx context.Context, req SigninRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	token, expiresAt, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        publicUser(user),
	}, nil
}

// VerifyAccessToken validates a token and returns its claims.
func (s *AuthService) VerifyAccessToken(token string) (*auth.Claims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if errors.Is(err, auth.ErrTokenExpired) {
		return nil, domainerrors.TokenExpired("access token has expired")
	}
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid access token")
	}
	return claims, nil
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently
// so the endpoint does not reveal which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrUserNotFound) {
		s.logger.Debug("Password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}

	now := s.now().UTC()
	reset := &domain.PasswordReset{
		TokenHash: hash,
		UserUUID:  user.UUID,
		ExpiresAt: now.Add(s.opts.ResetTokenDuration),
		CreatedAt: now,
	}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("store password reset: %w", err)
	}

	s.mailer.SendAsync(mail.TemplatePasswordReset, user.Email, map[string]any{
		"Name":     user.FullName,
		"Link":     s.opts.PublicURL + "/reset-password?token=" + url.QueryEscape(token),
		"ValidFor": s.opts.ResetTokenDuration.String(),
	})
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	reset, err := s.store.ConsumePasswordReset(ctx, auth.HashResetToken(req.Token), s.now())
	if errors.Is(err, store.ErrResetNotFound) {
		return domainerrors.Unauthorized("reset token is invalid or expired")
	}
	if err != nil {
		return fmt.Errorf("consume password reset: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, reset.UserUUID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("Password reset", "uuid", reset.UserUUID)
	return nil
}

// publicUser returns a copy safe to serialize.
func publicUser(u *domain.User) *domain.User {
	out := *u
	out.PasswordHash = ""
	return &out
}
