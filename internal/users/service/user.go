package service

import (
	"context"
	"errors"
	"time"

	userserrors "geobus/internal/users/errors"
	"geobus/internal/users/repository"
	"geobus/internal/users/validator"
	"geobus/pkg/auth"
	"geobus/pkg/config"
	apperrors "geobus/pkg/errors"
	"geobus/pkg/model"
	"geobus/pkg/validation"
)

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	tokens    TokenIssuer
	cfg       *config.Config
	now       func() time.Time
}

func NewUserService(repo repository.UserRepository, validator *validator.UserValidator, tokens TokenIssuer, cfg *config.Config) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		tokens:    tokens,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("request body is required")
	}

	s.validator.NormalizeRegister(req)
	if err := s.validator.ValidateRegister(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.cfg.Log.Error("Failed to hash password", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	user := &model.User{
		Name:      req.Name,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Password:  hash,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			s.cfg.Log.Info("Registration rejected, email in use", "email", req.Email)
			return nil, apperrors.UserExists(req.Email)
		}
		s.cfg.Log.Error("Failed to create user", "email", req.Email, "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	s.cfg.Log.Info("User registered", "user_id", user.ID, "email", user.Email)
	return s.authResponse(user)
}

// Login never says whether the email or the password was wrong.
func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("request body is required")
	}
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			s.cfg.Log.Warn("Login failed", "email", req.Email, "reason", "unknown email")
			return nil, apperrors.InvalidCredentials()
		}
		s.cfg.Log.Error("Failed to load user", "email", req.Email, "error", err)
		return nil, apperrors.Internal("Failed to login", err)
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.cfg.Log.Warn("Login failed", "email", req.Email, "reason", "password mismatch")
			return nil, apperrors.InvalidCredentials()
		}
		s.cfg.Log.Error("Failed to verify password", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to login", err)
	}

	return s.authResponse(user)
}

func (s *userService) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *userService) authResponse(user *model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.cfg.Log.Error("Failed to issue token", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to issue token", err)
	}
	return &model.AuthResponse{Token: token, User: user}, nil
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.ToAppError()
	}
	return apperrors.Validation("Validation failed", map[string]any{"error": err.Error()})
}
