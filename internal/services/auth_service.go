package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cbms/internal/auth"
	"cbms/internal/log"
	"cbms/internal/storage"
)

var ErrInvalidUsername = errors.New("username must be at least 3 characters")

// AuthService handles account registration and login.
type AuthService struct {
	storage *storage.SQLiteRepository
	tokens  *auth.TokenManager
	logger  *log.Logger
}

func NewAuthService(repo *storage.SQLiteRepository, tokens *auth.TokenManager, logger *log.Logger) *AuthService {
	return &AuthService{
		storage: repo,
		tokens:  tokens,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account and returns a session token for it.
func (s *AuthService) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return "", ErrInvalidUsername
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	userID, err := s.storage.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return "", err
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, userID)
	return s.tokens.Generate(userID, username)
}

// Login verifies credentials and returns a session token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.storage.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", auth.ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "user logged in", log.FieldUserID, user.ID)
	return s.tokens.Generate(user.ID, user.Username)
}
