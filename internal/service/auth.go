package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ticketdesk-backoffice/internal/config"
	"ticketdesk-backoffice/internal/logger"
	"ticketdesk-backoffice/internal/security"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// dummyHash keeps the unknown-operator path as slow as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ticketdesk-placeholder"), bcrypt.DefaultCost)

type authService struct {
	operators map[string]config.Operator
	tokens    security.TokenManager
}

func NewAuthService(operators []config.Operator, tokens security.TokenManager) AuthService {
	byEmail := make(map[string]config.Operator, len(operators))
	for _, op := range operators {
		byEmail[strings.ToLower(strings.TrimSpace(op.Email))] = op
	}
	return &authService{operators: byEmail, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	op, ok := s.operators[email]
	hash := dummyHash
	if ok {
		hash = []byte(op.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		logger.Warn("Operator login failed", "email", email)
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.GenerateAccessToken(email, email, op.Roles)
	if err != nil {
		return "", time.Time{}, err
	}
	logger.Info("Operator logged in", "email", email, "roles", op.Roles)
	return token, expires, nil
}
