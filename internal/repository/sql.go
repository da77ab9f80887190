package repository

import (
	"context"
	"errors"
	"time"

	"forgedb/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps mods and reviews in the relational database.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore returns a content store backed by db.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Mods() ModRepository       { return &modRepository{db: s.db} }
func (s *SQLStore) Reviews() ReviewRepository { return &reviewRepository{db: s.db} }

// Close is a no-op; the connection is owned by the caller.
func (s *SQLStore) Close() error { return nil }

type modRepository struct {
	db *gorm.DB
}

// NewModRepository returns a GORM-backed ModRepository.
func NewModRepository(db *gorm.DB) ModRepository {
	return &modRepository{db: db}
}

func (r *modRepository) Create(ctx context.Context, mod *models.Mod) error {
	if err := r.db.WithContext(ctx).Create(mod).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("Mod already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *modRepository) GetByID(ctx context.Context, id string) (*models.Mod, error) {
	var mod models.Mod
	if err := r.db.WithContext(ctx).First(&mod, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Mod", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &mod, nil
}

func (r *modRepository) List(ctx context.Context) ([]*models.Mod, error) {
	var mods []*models.Mod
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&mods).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return mods, nil
}

func (r *modRepository) UpdateRollup(ctx context.Context, id string, reviewCount int, averageRating float64) error {
	res := r.db.WithContext(ctx).Model(&models.Mod{}).Where("id = ?", id).Updates(map[string]interface{}{
		"review_count":   reviewCount,
		"average_rating": averageRating,
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Mod", id)
	}
	return nil
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository returns a GORM-backed ReviewRepository.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("Review already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Review", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &review, nil
}

func (r *reviewRepository) ListByMod(ctx context.Context, modID string) ([]*models.Review, error) {
	var reviews []*models.Review
	err := r.db.WithContext(ctx).
		Where("mod_id = ?", modID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reviews, nil
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Review, error) {
	var reviews []*models.Review
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reviews, nil
}

func (r *reviewRepository) CountByMod(ctx context.Context, modID string) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("mod_id = ?", modID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(n), nil
}

func (r *reviewRepository) CountByUser(ctx context.Context, userID uint) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(n), nil
}

// Update runs fn inside a transaction. On PostgreSQL the row is locked with
// SELECT ... FOR UPDATE; SQLite serializes writers on its own.
func (r *reviewRepository) Update(ctx context.Context, id string, fn ReviewMutation) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&review, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Review", id)
			}
			return err
		}
		if err := fn(&review); err != nil {
			return err
		}
		return tx.Save(&review).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}
	return &review, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Review", id)
	}
	return nil
}
