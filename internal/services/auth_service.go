package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidRole     = errors.New("role must be manager or staff")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
	ErrProfileNotFound = errors.New("profile not found")
)

const minPasswordLength = 8

// AuthService handles login and token refresh against the profiles table
type AuthService struct {
	profiles   ProfileStore
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(profiles ProfileStore, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		profiles:   profiles,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Login checks a password and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(profile)
}

// Refresh exchanges a refresh token for a new pair. The role is read
// again so a changed role applies from the next access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	return s.issue(profile)
}

func (s *AuthService) issue(profile *models.Profile) (*models.TokenResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(profile.ID, profile.Email, string(profile.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(profile.ID, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Profile:      profile,
	}, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// RoleFor looks up a user's current role.
func (s *AuthService) RoleFor(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	role, err := s.profiles.GetRole(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return "", ErrProfileNotFound
	}
	return role, err
}

// Register creates a login account. The rota has no self sign-up; this is
// used by the operator CLI.
func (s *AuthService) Register(ctx context.Context, email, password string, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"profile_id": profile.ID,
		"role":       role,
	}).Info("Profile created")
	return profile, nil
}
