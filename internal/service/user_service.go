package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/patsaid/ts-agentic-api/internal/auth"
	"github.com/patsaid/ts-agentic-api/internal/cache"
	apperrors "github.com/patsaid/ts-agentic-api/internal/errors"
	"github.com/patsaid/ts-agentic-api/internal/model"
	"github.com/patsaid/ts-agentic-api/internal/repository"
)

const bcryptCost = 10

const userCacheTTL = 5 * time.Minute

// UserService handles the account lifecycle: registration, credential
// updates, deletion (with conversation cascade) and login.
type UserService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, email, password string) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	cache      *cache.Client
}

// NewUserService builds a UserService.
func NewUserService(users repository.UserRepository, jwtService *auth.JWTService, cache *cache.Client) UserService {
	return &userService{users: users, jwtService: jwtService, cache: cache}
}

func userCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// Register creates a new user with a bcrypt-hashed password. Email syntax
// and password length are checked at the handler boundary.
func (s *userService) Register(ctx context.Context, email, password string) (*model.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Update changes only the supplied fields; empty values leave the stored
// ones untouched. A new password is re-hashed, never stored in plaintext.
func (s *userService) Update(ctx context.Context, id uuid.UUID, email, password string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	if email != "" && email != user.Email {
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil && existing != nil {
			return nil, apperrors.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check user existence: %w", err)
		}
		user.Email = email
	}
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, userCacheKey(user.ID))
	return user, nil
}

// Delete removes the user and every conversation they own in a single
// transaction, so a partial failure cannot orphan conversations.
func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.users.WithTransaction(ctx, func(ctx context.Context, users repository.UserRepository, conversations repository.ConversationRepository) error {
		affected, err := users.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if affected == 0 {
			return apperrors.ErrUserNotFound
		}
		if _, err := conversations.DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))
	_ = s.cache.Delete(ctx, conversationsCacheKey(id))
	return nil
}

// Login verifies credentials and returns the user plus a signed access
// token. Unknown email and wrong password produce the same error.
func (s *userService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(user.ID.String(), user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}
	return user, token, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, userCacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, userCacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}
