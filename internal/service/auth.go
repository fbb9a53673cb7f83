package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/studyhive/studyroom-server/internal/errors"
	"github.com/studyhive/studyroom-server/internal/model"
	"github.com/studyhive/studyroom-server/internal/repository"
	"github.com/studyhive/studyroom-server/internal/util"
)

const minPasswordLength = 8

type SignInResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

func (s *AuthService) SignUp(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.InvalidInput("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("User")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, model.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Info().Int64("userId", user.ID).Msg("user signed up")
	return user, nil
}

// SignIn verifies credentials and rotates the user's API token. The returned
// token is opaque; only its hash is stored.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if err := s.userRepo.UpdateTokenHash(ctx, user.ID, util.HashToken(token)); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	log.Info().Int64("userId", user.ID).Msg("user signed in")
	return &SignInResult{Token: token, User: user}, nil
}

func (s *AuthService) SignOut(ctx context.Context, userID int64) error {
	if err := s.userRepo.ClearTokenHash(ctx, userID); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
