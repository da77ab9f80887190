// Package bootstrap wires the storage dependencies shared by the server and
// the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forgedb/internal/cache"
	"forgedb/internal/config"
	"forgedb/internal/database"
	"forgedb/internal/middleware"
	"forgedb/internal/repository"
	"forgedb/internal/seed"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureAdmin creates or promotes ADMIN_EMAIL in development.
	EnsureAdmin bool
}

// Runtime holds the connections a process needs.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Content repository.ContentStore
	Users   repository.UserRepository
}

// InitRuntime connects to the database, Redis (optional) and the configured
// content backend.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// cache, rate limits, revocation and live updates are off without Redis
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("Redis unavailable, continuing without it", "error", err)
			rdb = nil
		}
	}

	content, err := OpenContentStore(ctx, cfg, db, afero.NewOsFs())
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	rt := &Runtime{
		DB:      db,
		Redis:   rdb,
		Content: content,
		Users:   repository.NewUserRepository(db),
	}

	if opts.EnsureAdmin {
		if err := ensureDevAdmin(ctx, cfg, rt.Users); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
		}
	}
	return rt, nil
}

// OpenContentStore returns the mod/review store selected by CONTENT_BACKEND.
func OpenContentStore(ctx context.Context, cfg *config.Config, db *gorm.DB, fs afero.Fs) (repository.ContentStore, error) {
	switch cfg.ContentBackend {
	case config.BackendJSON:
		store, err := repository.NewJSONStore(fs, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open json store: %w", err)
		}
		return store, nil
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		return repository.NewFirestoreStore(client), nil
	case config.BackendSQL, "":
		return repository.NewSQLStore(db), nil
	default:
		return nil, fmt.Errorf("unknown content backend %q", cfg.ContentBackend)
	}
}

// HashPassword is the bcrypt hasher used for accounts created outside the API.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func ensureDevAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	created, err := seed.EnsureAdmin(ctx, users, HashPassword, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		middleware.Logger.Info("development admin created", "email", cfg.AdminEmail)
	}
	return nil
}

// Close releases every connection.
func (r *Runtime) Close() error {
	var firstErr error
	if r.Content != nil {
		if err := r.Content.Close(); err != nil {
			firstErr = err
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := database.Close(r.DB); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
