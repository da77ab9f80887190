package service

import (
	"context"
	"strings"

	"forgedb/internal/cache"
	"forgedb/internal/models"
	"forgedb/internal/observability"
	"forgedb/internal/repository"
	"forgedb/internal/stats"
	"forgedb/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type ModService struct {
	mods    repository.ModRepository
	reviews repository.ReviewRepository
	cache   *cache.Cache
	isAdmin AdminCheck
}

type CreateModInput struct {
	UserID      uint   `json:"-"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	BannerURL   string `json:"bannerUrl" validate:"required,imagehost"`
}

func NewModService(
	mods repository.ModRepository,
	reviews repository.ReviewRepository,
	c *cache.Cache,
	isAdmin AdminCheck,
) *ModService {
	return &ModService{mods: mods, reviews: reviews, cache: c, isAdmin: isAdmin}
}

// CreateMod adds a mod. Only admins may create mods.
func (s *ModService) CreateMod(ctx context.Context, in CreateModInput) (*models.Mod, error) {
	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, models.NewForbiddenError("Only admins can create mods")
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.BannerURL = strings.TrimSpace(in.BannerURL)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	mod := &models.Mod{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		BannerURL:   in.BannerURL,
	}
	if err := s.mods.Create(ctx, mod); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.ModListKey())
	return mod, nil
}

func (s *ModService) ListMods(ctx context.Context) ([]*models.Mod, error) {
	var mods []*models.Mod
	err := s.cache.Aside(ctx, "mod_list", cache.ModListKey(), &mods, func() error {
		var err error
		mods, err = s.mods.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if mods == nil {
		mods = []*models.Mod{}
	}
	return mods, nil
}

// GetModDetail returns the mod, its reviews and their aggregate statistics.
func (s *ModService) GetModDetail(ctx context.Context, modID string) (detail *models.ModDetail, err error) {
	span, ctx := observability.StartSpan(ctx, "ModService.GetModDetail", attribute.String("mod.id", modID))
	defer func() { span.End(err) }()

	var out models.ModDetail
	err = s.cache.Aside(ctx, "mod_detail", cache.ModDetailKey(modID), &out, func() error {
		mod, err := s.mods.GetByID(ctx, modID)
		if err != nil {
			return err
		}
		reviews, err := s.reviews.ListByMod(ctx, modID)
		if err != nil {
			return err
		}
		if reviews == nil {
			reviews = []*models.Review{}
		}
		out = models.ModDetail{Mod: mod, Reviews: reviews, Statistics: stats.Compute(reviews)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.AddAttributes(attribute.Int("mod.review_count", len(out.Reviews)))
	return &out, nil
}
