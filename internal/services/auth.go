package services

import (
	"context"
	"fmt"
	"strings"

	"canvia-backend/internal/canvas"
	"canvia-backend/internal/cache"
	"canvia-backend/internal/middleware"
	"canvia-backend/internal/models"
)

const sessionLifetimeSeconds = 24 * 60 * 60

// AuthService exchanges a Canvas API token for a session JWT. Verifying the
// token against the Canvas instance is the engine's one hard failure: no
// fetch runs on behalf of an identity that was never proven.
type AuthService struct {
	jwt            *middleware.JWTAuth
	store          *cache.Store
	defaultBaseURL string
}

func NewAuthService(jwt *middleware.JWTAuth, store *cache.Store, defaultBaseURL string) *AuthService {
	return &AuthService{
		jwt:            jwt,
		store:          store,
		defaultBaseURL: defaultBaseURL,
	}
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if strings.TrimSpace(req.CanvasToken) == "" {
		return nil, &ValidationError{Fields: map[string]string{"canvas_token": "Canvas API token is required"}}
	}

	baseURL := s.defaultBaseURL
	if strings.TrimSpace(req.CanvasURL) != "" {
		baseURL = canvas.NormalizeBaseURL(req.CanvasURL)
	}

	client := canvas.NewClient(baseURL, req.CanvasToken, "", s.store)
	user, err := client.VerifySelf(ctx)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Canvas rejected the API token"}
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Name, baseURL, req.CanvasToken)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		UserName:    user.Name,
		ExpiresIn:   sessionLifetimeSeconds,
	}, nil
}

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }
