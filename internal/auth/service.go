package auth

import (
	"fmt"
	"strings"
)

// Service validates and issues identity tokens. Issuance exists for
// development tooling; production tokens come from the surrounding
// application.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, strings.TrimSpace(tokenString))
}

// IssueToken signs a token for userID.
func (s *Service) IssueToken(userID, username string) (string, error) {
	if userID == "" {
		return "", ErrMissingSubject
	}
	token, err := GenerateToken(s.jwtConfig, userID, username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
