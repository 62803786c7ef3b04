package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/utils"
)

// UserService exposes account listing and the session-token guarded self operations.
type UserService struct {
	users  UserRepository
	tokens *utils.TokenService
	log    *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(users UserRepository, tokens *utils.TokenService, log *zap.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, log: log.Named("user")}
}

// List returns all users with their post counts.
func (s *UserService) List(ctx context.Context) ([]models.UserSummary, error) {
	return s.users.ListWithPostCounts(ctx)
}

// Authenticate resolves a session token to a user that still exists.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claim, err := s.tokens.VerifySession(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, claim.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUserNotFound, "No user found")
		}
		return nil, fmt.Errorf("user: looking up %d: %w", claim.UserID, err)
	}
	return user, nil
}

// Delete removes the account. Posts keep their denormalized author fields.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user: deleting %d: %w", id, err)
	}
	s.log.Info("user deleted", zap.Uint("user_id", id))
	return nil
}
