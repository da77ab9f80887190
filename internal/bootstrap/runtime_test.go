package bootstrap

import (
	"context"
	"testing"

	"forgedb/internal/config"
	"forgedb/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(backend string) *config.Config {
	return &config.Config{
		Env:            "development",
		DBDriver:       "sqlite",
		SQLitePath:     "file::memory:",
		ContentBackend: backend,
		DataDir:        "/data",
		AdminEmail:     "admin@forgedb.com",
		AdminPassword:  "AdminPass123!",
	}
}

func TestOpenContentStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := OpenContentStore(ctx, sqliteConfig(config.BackendJSON), nil, afero.NewMemMapFs())
	require.NoError(t, err)
	assert.IsType(t, &repository.JSONStore{}, store)

	store, err = OpenContentStore(ctx, sqliteConfig(config.BackendSQL), nil, afero.NewMemMapFs())
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLStore{}, store)

	_, err = OpenContentStore(ctx, sqliteConfig("mongo"), nil, afero.NewMemMapFs())
	assert.Error(t, err)
}

func TestInitRuntimeEnsuresDevAdmin(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(config.BackendSQL)
	cfg.RedisURL = mr.Addr()

	rt, err := InitRuntime(context.Background(), cfg, Options{EnsureAdmin: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.NotNil(t, rt.Redis)
	admin, err := rt.Users.GetByEmail(context.Background(), "admin@forgedb.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)
}

func TestInitRuntimeWithoutRedis(t *testing.T) {
	cfg := sqliteConfig(config.BackendSQL)
	cfg.Env = "test"
	cfg.RedisURL = "127.0.0.1:1"

	rt, err := InitRuntime(context.Background(), cfg, Options{EnsureAdmin: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Nil(t, rt.Redis)
	admin, err := rt.Users.GetByEmail(context.Background(), "admin@forgedb.com")
	require.NoError(t, err)
	assert.Nil(t, admin, "admin is only ensured in development")
}
