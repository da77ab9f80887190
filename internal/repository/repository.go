// Package repository provides the data access layer: users in SQL, and mods
// and reviews in SQL, JSON files or Firestore behind the same interfaces.
package repository

import (
	"context"

	"forgedb/internal/models"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail matches case-insensitively and returns (nil, nil) when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
}

// ModRepository defines persistence operations for mods.
type ModRepository interface {
	Create(ctx context.Context, mod *models.Mod) error
	GetByID(ctx context.Context, id string) (*models.Mod, error)
	List(ctx context.Context) ([]*models.Mod, error)
	// UpdateRollup writes only the derived reviewCount/averageRating fields.
	UpdateRollup(ctx context.Context, id string, reviewCount int, averageRating float64) error
}

// ReviewMutation changes a review in place. Returning an error aborts the update.
type ReviewMutation func(review *models.Review) error

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByMod(ctx context.Context, modID string) ([]*models.Review, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Review, error)
	CountByMod(ctx context.Context, modID string) (int, error)
	CountByUser(ctx context.Context, userID uint) (int, error)
	// Update loads the review, applies fn and persists the result as one
	// atomic step; concurrent updates of the same review never interleave.
	Update(ctx context.Context, id string, fn ReviewMutation) (*models.Review, error)
	Delete(ctx context.Context, id string) error
}

// ContentStore bundles the mod and review repositories of one backend.
type ContentStore interface {
	Mods() ModRepository
	Reviews() ReviewRepository
	Close() error
}
