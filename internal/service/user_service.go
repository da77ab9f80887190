package service

import (
	"context"
	"strings"

	"forgedb/internal/models"
	"forgedb/internal/repository"
	"forgedb/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// IsAdmin is the AdminCheck used by the other services.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateAvatar sets the caller's avatar. The URL must be on an allowed image host.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uint, avatar string) (*models.User, error) {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return nil, models.NewValidationError("avatar is required")
	}
	if err := validation.ValidateImageURL(avatar); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Avatar = avatar
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}

// SetAdminByEmail grants or revokes admin rights. actorID must be an admin;
// pass 0 for trusted callers such as the admin CLI.
func (s *UserService) SetAdminByEmail(ctx context.Context, actorID uint, email string, isAdmin bool) (*models.User, error) {
	if actorID != 0 {
		admin, err := s.IsAdmin(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewForbiddenError("Admin access required")
		}
	}

	email = validation.NormalizeEmail(email)
	if email == "" {
		return nil, models.NewValidationError("email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}

	if err := s.userRepo.SetAdmin(ctx, user.ID, isAdmin); err != nil {
		return nil, err
	}
	user.IsAdmin = isAdmin
	return user, nil
}
