package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"forgedb/internal/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	modsCollection    = "mods"
	reviewsCollection = "reviews"
)

// FirestoreStore keeps mods and reviews as Firestore documents keyed by id.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an open Firestore client. Close closes the client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Mods() ModRepository       { return &firestoreModRepository{client: s.client} }
func (s *FirestoreStore) Reviews() ReviewRepository { return &firestoreReviewRepository{client: s.client} }
func (s *FirestoreStore) Close() error              { return s.client.Close() }

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

type modDoc struct {
	ID            string    `firestore:"id"`
	Name          string    `firestore:"name"`
	Description   string    `firestore:"description"`
	BannerURL     string    `firestore:"bannerUrl"`
	ReviewCount   int64     `firestore:"reviewCount"`
	AverageRating float64   `firestore:"averageRating"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func toModDoc(m *models.Mod) modDoc {
	return modDoc{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		BannerURL:     m.BannerURL,
		ReviewCount:   int64(m.ReviewCount),
		AverageRating: m.AverageRating,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (d modDoc) model() *models.Mod {
	return &models.Mod{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		BannerURL:     d.BannerURL,
		ReviewCount:   int(d.ReviewCount),
		AverageRating: d.AverageRating,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type systemSpecsDoc struct {
	OS  string `firestore:"os"`
	CPU string `firestore:"cpu"`
	GPU string `firestore:"gpu"`
	RAM string `firestore:"ram"`
}

type conflictDoc struct {
	Name        string `firestore:"name"`
	CausesCrash bool   `firestore:"causesCrash"`
}

type reviewDoc struct {
	ID               string            `firestore:"id"`
	ModID            string            `firestore:"modId"`
	ModName          string            `firestore:"modName"`
	UserID           int64             `firestore:"userId"`
	MinecraftVersion string            `firestore:"minecraftVersion"`
	ForgeVersion     string            `firestore:"forgeVersion"`
	SystemSpecs      systemSpecsDoc    `firestore:"systemSpecs"`
	IssueType        string            `firestore:"issueType"`
	ConflictingMods  []conflictDoc     `firestore:"conflictingMods"`
	Description      string            `firestore:"description"`
	Screenshot       string            `firestore:"screenshot,omitempty"`
	Verified         bool              `firestore:"verified"`
	Likes            int64             `firestore:"likes"`
	Dislikes         int64             `firestore:"dislikes"`
	UserReactions    map[string]string `firestore:"userReactions"`
	CreatedAt        time.Time         `firestore:"createdAt"`
	UpdatedAt        time.Time         `firestore:"updatedAt"`
}

func toReviewDoc(r *models.Review) reviewDoc {
	d := reviewDoc{
		ID:               r.ID,
		ModID:            r.ModID,
		ModName:          r.ModName,
		UserID:           int64(r.UserID),
		MinecraftVersion: r.MinecraftVersion,
		ForgeVersion:     r.ForgeVersion,
		SystemSpecs: systemSpecsDoc{
			OS:  r.SystemSpecs.OS,
			CPU: r.SystemSpecs.CPU,
			GPU: r.SystemSpecs.GPU,
			RAM: r.SystemSpecs.RAM,
		},
		IssueType:     string(r.IssueType),
		Description:   r.Description,
		Screenshot:    r.Screenshot,
		Verified:      r.Verified,
		Likes:         int64(r.Reactions.Likes),
		Dislikes:      int64(r.Reactions.Dislikes),
		UserReactions: make(map[string]string, len(r.UserReactions)),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for _, cm := range r.ConflictingMods {
		d.ConflictingMods = append(d.ConflictingMods, conflictDoc{Name: cm.Name, CausesCrash: cm.CausesCrash})
	}
	for uid, t := range r.UserReactions {
		d.UserReactions[uid] = string(t)
	}
	return d
}

func (d reviewDoc) model() *models.Review {
	r := &models.Review{
		ID:               d.ID,
		ModID:            d.ModID,
		ModName:          d.ModName,
		UserID:           uint(d.UserID),
		MinecraftVersion: d.MinecraftVersion,
		ForgeVersion:     d.ForgeVersion,
		SystemSpecs: models.SystemSpecs{
			OS:  d.SystemSpecs.OS,
			CPU: d.SystemSpecs.CPU,
			GPU: d.SystemSpecs.GPU,
			RAM: d.SystemSpecs.RAM,
		},
		IssueType:     models.IssueType(d.IssueType),
		Description:   d.Description,
		Screenshot:    d.Screenshot,
		Verified:      d.Verified,
		Reactions:     models.ReactionTally{Likes: int(d.Likes), Dislikes: int(d.Dislikes)},
		UserReactions: make(map[string]models.ReactionType, len(d.UserReactions)),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, cm := range d.ConflictingMods {
		r.ConflictingMods = append(r.ConflictingMods, models.ConflictingMod{Name: cm.Name, CausesCrash: cm.CausesCrash})
	}
	for uid, t := range d.UserReactions {
		r.UserReactions[uid] = models.ReactionType(t)
	}
	return r
}

type firestoreModRepository struct {
	client *firestore.Client
}

func (r *firestoreModRepository) Create(ctx context.Context, mod *models.Mod) error {
	now := time.Now().UTC()
	if mod.CreatedAt.IsZero() {
		mod.CreatedAt = now
	}
	mod.UpdatedAt = now
	if _, err := r.client.Collection(modsCollection).Doc(mod.ID).Create(ctx, toModDoc(mod)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.NewConflictError("Mod already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *firestoreModRepository) GetByID(ctx context.Context, id string) (*models.Mod, error) {
	snap, err := r.client.Collection(modsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Mod", id)
		}
		return nil, models.NewInternalError(err)
	}
	var d modDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, models.NewInternalError(err)
	}
	return d.model(), nil
}

func (r *firestoreModRepository) List(ctx context.Context) ([]*models.Mod, error) {
	iter := r.client.Collection(modsCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	mods := make([]*models.Mod, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		var d modDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, models.NewInternalError(err)
		}
		mods = append(mods, d.model())
	}
	return mods, nil
}

func (r *firestoreModRepository) UpdateRollup(ctx context.Context, id string, reviewCount int, averageRating float64) error {
	_, err := r.client.Collection(modsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "reviewCount", Value: int64(reviewCount)},
		{Path: "averageRating", Value: averageRating},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Mod", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

type firestoreReviewRepository struct {
	client *firestore.Client
}

func (r *firestoreReviewRepository) Create(ctx context.Context, review *models.Review) error {
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	if _, err := r.client.Collection(reviewsCollection).Doc(review.ID).Create(ctx, toReviewDoc(review)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.NewConflictError("Review already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *firestoreReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	snap, err := r.client.Collection(reviewsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Review", id)
		}
		return nil, models.NewInternalError(err)
	}
	var d reviewDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, models.NewInternalError(err)
	}
	return d.model(), nil
}

// query sorts in memory so equality filters need no composite index.
func (r *firestoreReviewRepository) query(ctx context.Context, q firestore.Query) ([]*models.Review, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	reviews := make([]*models.Review, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		var d reviewDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, models.NewInternalError(err)
		}
		reviews = append(reviews, d.model())
	}
	sort.SliceStable(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (r *firestoreReviewRepository) ListByMod(ctx context.Context, modID string) ([]*models.Review, error) {
	return r.query(ctx, r.client.Collection(reviewsCollection).Where("modId", "==", modID))
}

func (r *firestoreReviewRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Review, error) {
	return r.query(ctx, r.client.Collection(reviewsCollection).Where("userId", "==", int64(userID)))
}

func (r *firestoreReviewRepository) count(ctx context.Context, q firestore.Query) (int, error) {
	iter := q.Select().Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return n, nil
		}
		if err != nil {
			return 0, models.NewInternalError(err)
		}
		n++
	}
}

func (r *firestoreReviewRepository) CountByMod(ctx context.Context, modID string) (int, error) {
	return r.count(ctx, r.client.Collection(reviewsCollection).Where("modId", "==", modID))
}

func (r *firestoreReviewRepository) CountByUser(ctx context.Context, userID uint) (int, error) {
	return r.count(ctx, r.client.Collection(reviewsCollection).Where("userId", "==", int64(userID)))
}

// Update runs fn in a Firestore transaction, which retries on contention.
func (r *firestoreReviewRepository) Update(ctx context.Context, id string, fn ReviewMutation) (*models.Review, error) {
	ref := r.client.Collection(reviewsCollection).Doc(id)

	var updated *models.Review
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Review", id)
			}
			return err
		}
		var d reviewDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		review := d.model()
		if err := fn(review); err != nil {
			return err
		}
		review.UpdatedAt = time.Now().UTC()
		updated = review
		return tx.Set(ref, toReviewDoc(review))
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}
	return updated, nil
}

func (r *firestoreReviewRepository) Delete(ctx context.Context, id string) error {
	ref := r.client.Collection(reviewsCollection).Doc(id)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Review", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}
