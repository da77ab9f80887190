package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"forgedb/internal/middleware"
	"forgedb/internal/models"

	"github.com/spf13/afero"
)

const (
	modsFile    = "mods.json"
	reviewsFile = "reviews.json"
)

// JSONStore keeps mods and reviews as indented JSON arrays in DATA_DIR, one
// file per collection. A single mutex guards every read-modify-write, and
// files are replaced by rename so readers never see a partial write.
type JSONStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	// records from the last read of each file that did not decode; written
	// back untouched so a rewrite never drops them
	unreadable map[string][]json.RawMessage
}

// NewJSONStore returns a store rooted at dir on fs, creating dir if needed.
func NewJSONStore(fs afero.Fs, dir string) (*JSONStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &JSONStore{fs: fs, dir: dir, unreadable: make(map[string][]json.RawMessage)}, nil
}

func (s *JSONStore) Mods() ModRepository       { return &jsonModRepository{s: s} }
func (s *JSONStore) Reviews() ReviewRepository { return &jsonReviewRepository{s: s} }
func (s *JSONStore) Close() error              { return nil }

// readCollection decodes name record by record. Records that do not fit T
// are logged and skipped. Callers must hold s.mu.
func readCollection[T any](s *JSONStore, name string) ([]T, error) {
	delete(s.unreadable, name)
	data, err := afero.ReadFile(s.fs, path.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, nil
		}
		return nil, models.NewInternalError(fmt.Errorf("read %s: %w", name, err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode %s: %w", name, err))
	}

	items := make([]T, 0, len(raw))
	for i, rec := range raw {
		var item T
		if err := json.Unmarshal(rec, &item); err != nil {
			middleware.Logger.Warn("skipping unreadable record",
				"file", name, "index", i, "error", err)
			s.unreadable[name] = append(s.unreadable[name], rec)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func writeCollection[T any](s *JSONStore, name string, items []T) error {
	out := make([]any, 0, len(items)+len(s.unreadable[name]))
	for i := range items {
		out = append(out, items[i])
	}
	for _, rec := range s.unreadable[name] {
		out = append(out, rec)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return models.NewInternalError(fmt.Errorf("encode %s: %w", name, err))
	}
	target := path.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return models.NewInternalError(fmt.Errorf("write %s: %w", name, err))
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		return models.NewInternalError(fmt.Errorf("replace %s: %w", name, err))
	}
	return nil
}

type jsonModRepository struct {
	s *JSONStore
}

func (r *jsonModRepository) Create(_ context.Context, mod *models.Mod) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	mods, err := readCollection[models.Mod](r.s, modsFile)
	if err != nil {
		return err
	}
	for i := range mods {
		if mods[i].ID == mod.ID {
			return models.NewConflictError("Mod already exists")
		}
	}
	now := time.Now().UTC()
	if mod.CreatedAt.IsZero() {
		mod.CreatedAt = now
	}
	mod.UpdatedAt = now
	return writeCollection(r.s, modsFile, append(mods, *mod))
}

func (r *jsonModRepository) GetByID(_ context.Context, id string) (*models.Mod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	mods, err := readCollection[models.Mod](r.s, modsFile)
	if err != nil {
		return nil, err
	}
	for i := range mods {
		if mods[i].ID == id {
			return &mods[i], nil
		}
	}
	return nil, models.NewNotFoundError("Mod", id)
}

func (r *jsonModRepository) List(_ context.Context) ([]*models.Mod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	mods, err := readCollection[models.Mod](r.s, modsFile)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Mod, 0, len(mods))
	for i := range mods {
		out = append(out, &mods[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *jsonModRepository) UpdateRollup(_ context.Context, id string, reviewCount int, averageRating float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	mods, err := readCollection[models.Mod](r.s, modsFile)
	if err != nil {
		return err
	}
	for i := range mods {
		if mods[i].ID == id {
			mods[i].ReviewCount = reviewCount
			mods[i].AverageRating = averageRating
			mods[i].UpdatedAt = time.Now().UTC()
			return writeCollection(r.s, modsFile, mods)
		}
	}
	return models.NewNotFoundError("Mod", id)
}

type jsonReviewRepository struct {
	s *JSONStore
}

func (r *jsonReviewRepository) Create(_ context.Context, review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reviews, err := readCollection[models.Review](r.s, reviewsFile)
	if err != nil {
		return err
	}
	for i := range reviews {
		if reviews[i].ID == review.ID {
			return models.NewConflictError("Review already exists")
		}
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	stored := *review
	stored.Author = nil
	return writeCollection(r.s, reviewsFile, append(reviews, stored))
}

func (r *jsonReviewRepository) GetByID(_ context.Context, id string) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reviews, err := readCollection[models.Review](r.s, reviewsFile)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].ID == id {
			return &reviews[i], nil
		}
	}
	return nil, models.NewNotFoundError("Review", id)
}

func (r *jsonReviewRepository) filter(keep func(*models.Review) bool) ([]*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reviews, err := readCollection[models.Review](r.s, reviewsFile)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Review, 0)
	for i := range reviews {
		if keep(&reviews[i]) {
			out = append(out, &reviews[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *jsonReviewRepository) ListByMod(_ context.Context, modID string) ([]*models.Review, error) {
	return r.filter(func(rv *models.Review) bool { return rv.ModID == modID })
}

func (r *jsonReviewRepository) ListByUser(_ context.Context, userID uint) ([]*models.Review, error) {
	return r.filter(func(rv *models.Review) bool { return rv.UserID == userID })
}

func (r *jsonReviewRepository) CountByMod(ctx context.Context, modID string) (int, error) {
	reviews, err := r.ListByMod(ctx, modID)
	return len(reviews), err
}

func (r *jsonReviewRepository) CountByUser(ctx context.Context, userID uint) (int, error) {
	reviews, err := r.ListByUser(ctx, userID)
	return len(reviews), err
}

func (r *jsonReviewRepository) Update(_ context.Context, id string, fn ReviewMutation) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reviews, err := readCollection[models.Review](r.s, reviewsFile)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].ID != id {
			continue
		}
		updated := reviews[i]
		if err := fn(&updated); err != nil {
			return nil, err
		}
		updated.Author = nil
		updated.UpdatedAt = time.Now().UTC()
		reviews[i] = updated
		if err := writeCollection(r.s, reviewsFile, reviews); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, models.NewNotFoundError("Review", id)
}

func (r *jsonReviewRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reviews, err := readCollection[models.Review](r.s, reviewsFile)
	if err != nil {
		return err
	}
	for i := range reviews {
		if reviews[i].ID == id {
			return writeCollection(r.s, reviewsFile, append(reviews[:i], reviews[i+1:]...))
		}
	}
	return models.NewNotFoundError("Review", id)
}
