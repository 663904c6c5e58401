package auth

import (
	"context"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/database"
	"confluence-engine/internal/logging"
)

// Service implements account management on top of the repository
type Service struct {
	repo      *database.Repository
	jwt       *JWTManager
	passwords *PasswordManager
	log       *logging.Logger
}

// NewService creates the auth service
func NewService(repo *database.Repository, cfg config.AuthConfig) *Service {
	return &Service{
		repo:      repo,
		jwt:       NewJWTManager(cfg.JWTSecret, cfg.AccessTokenDuration),
		passwords: NewPasswordManager(DefaultBcryptCost, cfg.MinPasswordLength),
		log:       logging.WithComponent("auth"),
	}
}

// JWT exposes the token manager for middleware wiring
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// Login verifies credentials and issues an access token
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.passwords.VerifyPassword(req.Password, user.PasswordHash) {
		// Same error for unknown email and bad password
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(UserClaims{
		UserID:  user.ID.String(),
		Email:   user.Email,
		IsAdmin: user.Role == database.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("Failed to stamp last login", "user", user.Email, "error", err)
	}

	s.log.Info("User logged in", "email", user.Email)

	return &LoginResponse{
		User:        toUserResponse(user),
		AccessToken: token,
		ExpiresIn:   s.jwt.GetAccessTokenDuration(),
		TokenType:   "Bearer",
	}, nil
}

// Register creates a new non-admin account
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if err := s.passwords.ValidatePasswordStrength(req.Password); err != nil {
		return nil, ErrWeakPassword
	}

	existing, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &database.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         database.RoleUser,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered", "email", user.Email)
	resp := toUserResponse(user)
	return &resp, nil
}

// SeedAdmin ensures the configured admin account exists. Called once at
// startup; a no-op when the account is already present or no admin is
// configured.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return err
	}

	user := &database.User{
		Email:        email,
		PasswordHash: hash,
		Role:         database.RoleAdmin,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return err
	}

	s.log.Info("Seeded admin account", "email", email)
	return nil
}

func toUserResponse(user *database.User) UserResponse {
	var lastLogin *time.Time
	if user.LastLoginAt != nil {
		t := *user.LastLoginAt
		lastLogin = &t
	}
	return UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		IsAdmin:     user.Role == database.RoleAdmin,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: lastLogin,
	}
}
