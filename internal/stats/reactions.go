package stats

import "forgedb/internal/models"

// Transition names what a reaction toggle did.
type Transition string

const (
	TransitionAdded    Transition = "added"
	TransitionRemoved  Transition = "removed"
	TransitionSwitched Transition = "switched"
)

// ApplyReaction toggles userID's reaction on review:
//
//	none -> X  adds X
//	X    -> X  removes X
//	X    -> Y  replaces X with Y
//
// The reaction map and the tally are updated together. Callers must run it
// inside the store's atomic update so concurrent toggles are not lost.
func ApplyReaction(review *models.Review, userID string, requested models.ReactionType) (Transition, error) {
	if userID == "" {
		return "", models.NewUnauthorizedError("Authentication required")
	}
	if !requested.Valid() {
		return "", models.NewValidationError("Reaction type must be 'like' or 'dislike'")
	}
	if review.UserReactions == nil {
		review.UserReactions = make(map[string]models.ReactionType)
	}

	// an unknown stored value counts as no reaction and is overwritten below
	current, had := ReactionOf(review, userID)

	switch {
	case !had:
		review.UserReactions[userID] = requested
		adjust(&review.Reactions, requested, 1)
		return TransitionAdded, nil
	case current == requested:
		delete(review.UserReactions, userID)
		adjust(&review.Reactions, requested, -1)
		return TransitionRemoved, nil
	default:
		review.UserReactions[userID] = requested
		adjust(&review.Reactions, current, -1)
		adjust(&review.Reactions, requested, 1)
		return TransitionSwitched, nil
	}
}

// ReactionOf returns the user's current reaction, if any.
func ReactionOf(review *models.Review, userID string) (models.ReactionType, bool) {
	t, ok := review.UserReactions[userID]
	return t, ok && t.Valid()
}

func adjust(tally *models.ReactionTally, t models.ReactionType, delta int) {
	counter := &tally.Likes
	if t == models.ReactionDislike {
		counter = &tally.Dislikes
	}
	*counter += delta
	if *counter < 0 {
		*counter = 0
	}
}
