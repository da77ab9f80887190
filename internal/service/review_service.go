package service

import (
	"context"
	"strings"

	"forgedb/internal/cache"
	"forgedb/internal/middleware"
	"forgedb/internal/models"
	"forgedb/internal/notifications"
	"forgedb/internal/observability"
	"forgedb/internal/repository"
	"forgedb/internal/stats"
	"forgedb/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type ReviewService struct {
	mods    repository.ModRepository
	reviews repository.ReviewRepository
	users   repository.UserRepository
	cache   *cache.Cache
	events  EventPublisher
	isAdmin AdminCheck
}

type CreateReviewInput struct {
	UserID           uint                    `json:"-"`
	ModID            string                  `json:"modId" validate:"required,max=64"`
	ModName          string                  `json:"modName" validate:"required,max=200"`
	MinecraftVersion string                  `json:"minecraftVersion" validate:"max=50"`
	ForgeVersion     string                  `json:"forgeVersion" validate:"max=50"`
	SystemSpecs      models.SystemSpecs      `json:"systemSpecs"`
	IssueType        models.IssueType        `json:"issueType" validate:"required,issuetype"`
	ConflictingMods  []models.ConflictingMod `json:"conflictingMods" validate:"max=50,dive"`
	Description      string                  `json:"description" validate:"required,max=10000"`
	Screenshot       string                  `json:"screenshot" validate:"omitempty,imagehost"`
}

type ToggleReactionInput struct {
	UserID   uint
	ReviewID string
	Type     models.ReactionType
}

type DeleteReviewInput struct {
	UserID   uint
	ReviewID string
}

// ReactionsPayload is the body of a review.reactions event.
type ReactionsPayload struct {
	ReviewID  string               `json:"reviewId"`
	Reactions models.ReactionTally `json:"reactions"`
}

// events may be nil when live updates are off.
func NewReviewService(
	mods repository.ModRepository,
	reviews repository.ReviewRepository,
	users repository.UserRepository,
	c *cache.Cache,
	events EventPublisher,
	isAdmin AdminCheck,
) *ReviewService {
	return &ReviewService{
		mods:    mods,
		reviews: reviews,
		users:   users,
		cache:   c,
		events:  events,
		isAdmin: isAdmin,
	}
}

func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (*models.Review, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	in.ModID = strings.TrimSpace(in.ModID)
	in.ModName = strings.TrimSpace(in.ModName)
	in.Description = strings.TrimSpace(in.Description)
	in.Screenshot = strings.TrimSpace(in.Screenshot)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	conflicts := make([]models.ConflictingMod, 0, len(in.ConflictingMods))
	for _, cm := range in.ConflictingMods {
		cm.Name = strings.TrimSpace(cm.Name)
		if cm.Name != "" {
			conflicts = append(conflicts, cm)
		}
	}

	review := &models.Review{
		ID:               uuid.NewString(),
		ModID:            in.ModID,
		ModName:          in.ModName,
		UserID:           in.UserID,
		MinecraftVersion: strings.TrimSpace(in.MinecraftVersion),
		ForgeVersion:     strings.TrimSpace(in.ForgeVersion),
		SystemSpecs:      in.SystemSpecs,
		IssueType:        in.IssueType,
		ConflictingMods:  conflicts,
		Description:      in.Description,
		Screenshot:       in.Screenshot,
		UserReactions:    map[string]models.ReactionType{},
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	observability.ReviewsCreated.WithLabelValues(string(review.IssueType)).Inc()

	s.afterModChange(ctx, review.ModID)
	s.publish(ctx, review.ModID, notifications.EventReviewCreated, review)

	if author, err := s.author(ctx, review.UserID); err == nil {
		review.Author = author
	}
	return review, nil
}

// ListUserReviews returns the caller's reviews, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uint) ([]*models.Review, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	reviews, err := s.reviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}

// GetReview returns the review with its author summary. A review whose
// author no longer exists is reported as not found.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	author, err := s.author(ctx, review.UserID)
	if err != nil {
		return nil, err
	}
	review.Author = author
	return review, nil
}

// ToggleReaction applies the like/dislike toggle for the caller inside the
// store's atomic update.
func (s *ReviewService) ToggleReaction(ctx context.Context, in ToggleReactionInput) (review *models.Review, err error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Reaction type must be 'like' or 'dislike'")
	}

	span, ctx := observability.StartSpan(ctx, "ReviewService.ToggleReaction",
		attribute.String("review.id", in.ReviewID),
		attribute.String("reaction.type", string(in.Type)),
	)
	defer func() { span.End(err) }()

	var transition stats.Transition
	review, err = s.reviews.Update(ctx, in.ReviewID, func(r *models.Review) error {
		var applyErr error
		transition, applyErr = stats.ApplyReaction(r, userKey(in.UserID), in.Type)
		return applyErr
	})
	if err != nil {
		return nil, err
	}

	span.AddAttributes(attribute.String("reaction.transition", string(transition)))
	observability.ReactionTransitions.WithLabelValues(string(in.Type), string(transition)).Inc()

	s.cache.Invalidate(ctx, cache.ModDetailKey(review.ModID))
	s.publish(ctx, review.ModID, notifications.EventReviewReactions, ReactionsPayload{
		ReviewID:  review.ID,
		Reactions: review.Reactions,
	})

	if author, err := s.author(ctx, review.UserID); err == nil {
		review.Author = author
	}
	return review, nil
}

// DeleteReview removes a review. Only admins may delete reviews.
func (s *ReviewService) DeleteReview(ctx context.Context, in DeleteReviewInput) error {
	admin, err := s.isAdmin(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError("Only admins can delete reviews")
	}

	review, err := s.reviews.GetByID(ctx, in.ReviewID)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return err
	}
	observability.ReviewsDeleted.Inc()

	s.afterModChange(ctx, review.ModID)
	s.publish(ctx, review.ModID, notifications.EventReviewDeleted, map[string]string{"reviewId": review.ID})
	return nil
}

// RecomputeModRollup rewrites the mod's derived review count and average
// rating. Unknown mods are skipped.
func (s *ReviewService) RecomputeModRollup(ctx context.Context, modID string) error {
	if _, err := s.mods.GetByID(ctx, modID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil
		}
		return err
	}

	n, err := s.reviews.CountByMod(ctx, modID)
	if err != nil {
		return err
	}
	count, avg := stats.Rollup(n)
	return s.mods.UpdateRollup(ctx, modID, count, avg)
}

func (s *ReviewService) afterModChange(ctx context.Context, modID string) {
	if err := s.RecomputeModRollup(ctx, modID); err != nil {
		middleware.Logger.WarnContext(ctx, "mod rollup failed", "mod_id", modID, "error", err)
	}
	s.cache.InvalidateMod(ctx, modID)
}

func (s *ReviewService) publish(ctx context.Context, modID, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishModEvent(ctx, modID, eventType, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish mod event", "mod_id", modID, "event", eventType, "error", err)
	}
}

func (s *ReviewService) author(ctx context.Context, userID uint) (*models.ReviewAuthor, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}

	count, err := s.reviews.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	image := user.Avatar
	if image == "" {
		image = DefaultAvatarURL(user.ID)
	}
	badges := user.Badges
	if badges == nil {
		badges = []string{}
	}
	return &models.ReviewAuthor{
		ID:          user.ID,
		Name:        user.DisplayName(),
		Image:       image,
		ReviewCount: count,
		Badges:      badges,
	}, nil
}
