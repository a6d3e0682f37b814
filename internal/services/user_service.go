package services

import (
	"context"
	"fmt"
	"time"

	"billhive/internal/models"
	"billhive/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService covers registration, login and profile maintenance. These are
// plain CRUD around the identity store plus token issuance.
type UserService interface {
	Register(ctx context.Context, req *RegisterRequest) (*models.User, *models.TokenResponse, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenResponse, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.UserProfile, error)
}

// RegisterRequest carries registration input. Profile fields are optional.
type RegisterRequest struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	CompanyName *string
	Address     string
	TaxID       *string
}

// UpdateProfileRequest is a partial update: nil fields are left untouched.
type UpdateProfileRequest struct {
	FirstName   *string
	LastName    *string
	CompanyName *string
	Address     *string
	TaxID       *string
}

type userService struct {
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	authSvc     AuthService
}

func NewUserService(userRepo repositories.UserRepository, profileRepo repositories.ProfileRepository, authSvc AuthService) UserService {
	return &userService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		authSvc:     authSvc,
	}
}

func (s *userService) Register(ctx context.Context, req *RegisterRequest) (*models.User, *models.TokenResponse, error) {
	if len(req.Password) < 8 {
		return nil, nil, fmt.Errorf("password must be at least 8 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         models.UserRoleUser,
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	profile := &models.UserProfile{
		UserID:      user.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		Address:     req.Address,
		TaxID:       req.TaxID,
	}

	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, nil, err
	}

	tokens, err := s.authSvc.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, *models.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, nil, fmt.Errorf("invalid email or password")
	}

	if user.PasswordHash == "" {
		return nil, nil, fmt.Errorf("account not properly initialized")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("invalid email or password")
	}

	tokens, err := s.authSvc.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return user, tokens, nil
}

func (s *userService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return s.profileRepo.GetByUserID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.UserProfile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.CompanyName != nil {
		profile.CompanyName = req.CompanyName
	}
	if req.Address != nil {
		profile.Address = *req.Address
	}
	if req.TaxID != nil {
		profile.TaxID = req.TaxID
	}
	profile.UpdatedAt = time.Now()

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}
