package seed

import (
	"context"
	"fmt"
	"strconv"

	"forgedb/internal/middleware"
	"forgedb/internal/models"
	"forgedb/internal/repository"
	"forgedb/internal/stats"
	"forgedb/internal/validation"
)

// DemoPassword is the password of every generated demo user.
const DemoPassword = "Forgedb-Demo-2024"

// Options controls how much demo data is generated.
type Options struct {
	Users         int
	Mods          int
	ReviewsPerMod int
	MaxDays       int
	Seed          int64
	// Extra mods, e.g. from LoadModFixtures, inserted before the generated ones.
	Fixtures []*models.Mod
}

// Result summarizes what Demo created.
type Result struct {
	Users     int
	Mods      int
	Reviews   int
	Reactions int
}

// PasswordHasher turns a plain password into a stored hash.
type PasswordHasher func(password string) (string, error)

// Seeder writes demo data through the repositories, so it works with every
// content backend.
type Seeder struct {
	users   repository.UserRepository
	mods    repository.ModRepository
	reviews repository.ReviewRepository
	hash    PasswordHasher
}

func NewSeeder(users repository.UserRepository, content repository.ContentStore, hash PasswordHasher) *Seeder {
	return &Seeder{users: users, mods: content.Mods(), reviews: content.Reviews(), hash: hash}
}

// Demo creates users, mods, reviews and reactions, then recomputes every
// touched mod's rollup.
func (s *Seeder) Demo(ctx context.Context, opts Options) (Result, error) {
	var res Result
	f := NewFactory(opts.Seed)

	hashed, err := s.hash(DemoPassword)
	if err != nil {
		return res, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u := f.BuildUser(hashed)
		if err := s.users.Create(ctx, u); err != nil {
			return res, fmt.Errorf("create user %s: %w", u.Email, err)
		}
		users = append(users, u)
	}
	res.Users = len(users)

	mods := append([]*models.Mod{}, opts.Fixtures...)
	for i := 0; i < opts.Mods; i++ {
		mods = append(mods, f.BuildMod())
	}
	for _, m := range mods {
		if err := s.mods.Create(ctx, m); err != nil {
			return res, fmt.Errorf("create mod %s: %w", m.Name, err)
		}
	}
	res.Mods = len(mods)

	if len(users) == 0 {
		return res, nil
	}

	for _, m := range mods {
		for i := 0; i < opts.ReviewsPerMod; i++ {
			author := users[(i+res.Reviews)%len(users)]
			r := f.BuildReview(m, author.ID, opts.MaxDays)
			if err := s.reviews.Create(ctx, r); err != nil {
				return res, fmt.Errorf("create review: %w", err)
			}
			res.Reviews++

			n, err := s.react(ctx, f, r.ID, users)
			if err != nil {
				return res, err
			}
			res.Reactions += n
		}

		count, err := s.reviews.CountByMod(ctx, m.ID)
		if err != nil {
			return res, err
		}
		c, avg := stats.Rollup(count)
		if err := s.mods.UpdateRollup(ctx, m.ID, c, avg); err != nil {
			return res, fmt.Errorf("rollup %s: %w", m.ID, err)
		}
	}

	middleware.Logger.Info("demo data seeded",
		"users", res.Users, "mods", res.Mods, "reviews", res.Reviews, "reactions", res.Reactions)
	return res, nil
}

// react lets a random subset of users react to a review.
func (s *Seeder) react(ctx context.Context, f *Factory, reviewID string, users []*models.User) (int, error) {
	reacted := 0
	_, err := s.reviews.Update(ctx, reviewID, func(r *models.Review) error {
		for _, u := range users {
			if f.faker.Number(1, 3) != 1 {
				continue
			}
			if _, err := stats.ApplyReaction(r, strconv.FormatUint(uint64(u.ID), 10), f.PickReaction()); err != nil {
				return err
			}
			reacted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("react to %s: %w", reviewID, err)
	}
	return reacted, nil
}

// EnsureAdmin makes sure an admin account exists for email. An existing
// account is promoted and keeps its password; otherwise a verified admin is
// created with password. Returns true when a new account was created.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, hash PasswordHasher, email, password string) (bool, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return false, fmt.Errorf("admin email: %w", err)
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if existing.IsAdmin {
			return false, nil
		}
		return false, users.SetAdmin(ctx, existing.ID, true)
	}

	if password == "" {
		return false, fmt.Errorf("a password is required to create admin %s", email)
	}
	hashed, err := hash(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		Email:      email,
		Name:       "Admin",
		Password:   hashed,
		IsAdmin:    true,
		IsVerified: true,
		Badges:     []string{"admin"},
	}
	if err := users.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}
