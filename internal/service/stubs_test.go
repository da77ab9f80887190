package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"forgedb/internal/mail"
	"forgedb/internal/models"
	"forgedb/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	createFn     func(context.Context, *models.User) error
	updateFn     func(context.Context, *models.User) error
	listFn       func(context.Context, int, int) ([]models.User, error)
	listAdminsFn func(context.Context) ([]models.User, error)
	setAdminFn   func(context.Context, uint, bool) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	return s.setAdminFn(ctx, id, isAdmin)
}

// usersFrom returns a user stub backed by an in-memory slice.
func usersFrom(users ...*models.User) *userRepoStub {
	var mu sync.Mutex
	byID := func(id uint) *models.User {
		for _, u := range users {
			if u.ID == id {
				return u
			}
		}
		return nil
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			if u := byID(id); u != nil {
				cp := *u
				return &cp, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			for _, u := range users {
				if u.Email == email {
					cp := *u
					return &cp, nil
				}
			}
			return nil, nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			mu.Lock()
			defer mu.Unlock()
			u.ID = uint(len(users) + 1)
			cp := *u
			users = append(users, &cp)
			return nil
		},
		updateFn: func(_ context.Context, u *models.User) error {
			mu.Lock()
			defer mu.Unlock()
			if cur := byID(u.ID); cur != nil {
				*cur = *u
				return nil
			}
			return models.NewNotFoundError("User", u.ID)
		},
		listFn: func(_ context.Context, _, _ int) ([]models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make([]models.User, 0, len(users))
			for _, u := range users {
				out = append(out, *u)
			}
			return out, nil
		},
		listAdminsFn: func(_ context.Context) ([]models.User, error) { return nil, nil },
		setAdminFn: func(_ context.Context, id uint, isAdmin bool) error {
			mu.Lock()
			defer mu.Unlock()
			if u := byID(id); u != nil {
				u.IsAdmin = isAdmin
				return nil
			}
			return models.NewNotFoundError("User", id)
		},
	}
}

// memContent is an in-memory mod and review store.
type memContent struct {
	mu      sync.Mutex
	mods    map[string]*models.Mod
	reviews map[string]*models.Review
	updates int
}

func newMemContent() *memContent {
	return &memContent{mods: map[string]*models.Mod{}, reviews: map[string]*models.Review{}}
}

type memMods struct{ *memContent }
type memReviews struct{ *memContent }

var (
	_ repository.ModRepository    = memMods{}
	_ repository.ReviewRepository = memReviews{}
	_ repository.UserRepository   = (*userRepoStub)(nil)
)

func (m memMods) Create(_ context.Context, mod *models.Mod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mod
	m.mods[mod.ID] = &cp
	return nil
}
func (m memMods) GetByID(_ context.Context, id string) (*models.Mod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mod, ok := m.mods[id]; ok {
		cp := *mod
		return &cp, nil
	}
	return nil, models.NewNotFoundError("Mod", id)
}
func (m memMods) List(_ context.Context) ([]*models.Mod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Mod, 0, len(m.mods))
	for _, mod := range m.mods {
		cp := *mod
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
func (m memMods) UpdateRollup(_ context.Context, id string, count int, avg float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.mods[id]
	if !ok {
		return models.NewNotFoundError("Mod", id)
	}
	mod.ReviewCount, mod.AverageRating = count, avg
	return nil
}

func (m memReviews) Create(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reviews[r.ID] = &cp
	return nil
}
func (m memReviews) GetByID(_ context.Context, id string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reviews[id]; ok {
		return cloneReview(r), nil
	}
	return nil, models.NewNotFoundError("Review", id)
}
func (m memReviews) filter(keep func(*models.Review) bool) []*models.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Review
	for _, r := range m.reviews {
		if keep(r) {
			out = append(out, cloneReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
func (m memReviews) ListByMod(_ context.Context, modID string) ([]*models.Review, error) {
	return m.filter(func(r *models.Review) bool { return r.ModID == modID }), nil
}
func (m memReviews) ListByUser(_ context.Context, userID uint) ([]*models.Review, error) {
	return m.filter(func(r *models.Review) bool { return r.UserID == userID }), nil
}
func (m memReviews) CountByMod(ctx context.Context, modID string) (int, error) {
	rs, _ := m.ListByMod(ctx, modID)
	return len(rs), nil
}
func (m memReviews) CountByUser(ctx context.Context, userID uint) (int, error) {
	rs, _ := m.ListByUser(ctx, userID)
	return len(rs), nil
}
func (m memReviews) Update(_ context.Context, id string, fn repository.ReviewMutation) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, models.NewNotFoundError("Review", id)
	}
	cp := cloneReview(r)
	if err := fn(cp); err != nil {
		return nil, err
	}
	m.reviews[id] = cp
	m.updates++
	return cloneReview(cp), nil
}
func (m memReviews) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return models.NewNotFoundError("Review", id)
	}
	delete(m.reviews, id)
	return nil
}

func cloneReview(r *models.Review) *models.Review {
	cp := *r
	cp.UserReactions = make(map[string]models.ReactionType, len(r.UserReactions))
	for k, v := range r.UserReactions {
		cp.UserReactions[k] = v
	}
	cp.ConflictingMods = append([]models.ConflictingMod(nil), r.ConflictingMods...)
	return &cp
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *publisherStub) PublishModEvent(_ context.Context, modID, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+"@"+modID)
	return p.err
}

// mailerStub records sent messages.
type mailerStub struct {
	sent []mail.Message
	err  error
}

func (m *mailerStub) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type captchaStub struct {
	ok  bool
	err error
}

func (c captchaStub) Verify(context.Context, string, string) (bool, error) { return c.ok, c.err }

func adminIf(ids ...uint) AdminCheck {
	return func(_ context.Context, userID uint) (bool, error) {
		for _, id := range ids {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
