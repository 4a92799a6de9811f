package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	limited := s.rateLimited(s.authRateLimiter)

	huma.Register(s.api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Create account",
		Description:   "Creates a member account. Email addresses are unique regardless of case.",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleSignup)

	huma.Register(s.api, huma.Operation{
		OperationID: "signin",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Authenticates a user and returns an access token",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleSignin)

	huma.Register(s.api, huma.Operation{
		OperationID:   "forgotPassword",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/forgot-password",
		Summary:       "Request password reset",
		Description:   "Emails a reset link when the address belongs to an account. The response never reveals whether it does.",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   limited,
	}, s.handleForgotPassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetPassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/reset-password",
		Summary:     "Reset password",
		Description: "Sets a new password using a single-use reset token",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleResetPassword)
}

// === DTOs ===

// SignupInput wraps the signup request for Huma.
type SignupInput struct {
	Body service.SignupRequest
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

// SigninInput wraps the signin request for Huma.
type SigninInput struct {
	Body service.SigninRequest
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body *service.AuthResponse
}

// ForgotPasswordRequest names the account to reset.
type ForgotPasswordRequest struct {
	Email string `json:"email_address" doc:"Account email address"`
}

// ForgotPasswordInput wraps the forgot-password request for Huma.
type ForgotPasswordInput struct {
	Body ForgotPasswordRequest
}

// ResetPasswordInput wraps the reset request for Huma.
type ResetPasswordInput struct {
	Body service.ResetPasswordRequest
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleSignup(ctx context.Context, input *SignupInput) (*UserOutput, error) {
	user, err := s.services.Auth.Signup(ctx, input.Body)
	if err != nil {
		return nil, handleError(err)
	}
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleSignin(ctx context.Context, input *SigninInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Signin(ctx, input.Body)
	if err != nil {
		return nil, handleError(err)
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ForgotPassword(ctx, input.Body.Email); err != nil {
		return nil, handleError(err)
	}
	return &MessageOutput{Body: MessageResponse{
		Message: "If the address is registered, a reset link has been sent.",
	}}, nil
}

func (s *Server) handleResetPassword(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ResetPassword(ctx, input.Body); err != nil {
		return nil, handleError(err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "Password updated."}}, nil
}
