package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPassword is returned when a password cannot be hashed.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrLoginDisabled is returned when no operator password hash is configured.
	ErrLoginDisabled = errors.New("operator login is not configured")
)

// Service authenticates relay operators for the admin API.
type Service struct {
	username     string
	passwordHash string
	jwtConfig    *JWTConfig
}

// NewService creates an operator authentication service.
// An empty passwordHash disables Login; tokens minted offline still validate.
func NewService(username, passwordHash string, jwtConfig *JWTConfig) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		jwtConfig:    jwtConfig,
	}
}

// Login validates operator credentials and returns a JWT token.
func (s *Service) Login(username, password string) (string, error) {
	if s.passwordHash == "" {
		return "", ErrLoginDisabled
	}
	if username != s.username {
		return "", ErrInvalidCredentials
	}
	if err := ComparePassword(s.passwordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// IssueToken mints a token for the configured operator without a password check.
func (s *Service) IssueToken() (string, error) {
	return GenerateToken(s.jwtConfig, s.username)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
