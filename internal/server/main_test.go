package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"forgedb/internal/captcha"
	"forgedb/internal/config"
	"forgedb/internal/database"
	"forgedb/internal/mail"
	"forgedb/internal/middleware"
	"forgedb/internal/models"
	"forgedb/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	users  repository.UserRepository
	mailer *captureMailer
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels(config.BackendSQL)...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:       testSecret,
		Port:            "0",
		Env:             "test",
		ContentBackend:  config.BackendSQL,
		AllowedOrigins:  "http://localhost:3000",
		FeatureFlags:    flags,
		CacheTTLSeconds: 60,
	}

	mailer := &captureMailer{}
	s, err := NewServerWithDeps(cfg, db, rdb, nil,
		WithMailer(mailer),
		WithCaptcha(captcha.AcceptAny{}),
		WithBcryptCost(bcrypt.MinCost),
	)
	require.NoError(t, err)

	return &testEnv{
		server: s,
		app:    s.NewApp(),
		db:     db,
		mr:     mr,
		rdb:    rdb,
		users:  repository.NewUserRepository(db),
		mailer: mailer,
	}
}

// createUser inserts a verified account with password "Str0ng!Passw0rd".
func (e *testEnv) createUser(t *testing.T, email string, admin bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!Passw0rd"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:      email,
		Password:   string(hash),
		IsAdmin:    admin,
		IsVerified: true,
		Badges:     []string{},
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, user.ID, middleware.SessionClaims{
		Email:   user.Email,
		Name:    user.DisplayName(),
		IsAdmin: user.IsAdmin,
	}, time.Now())
	require.NoError(t, err)
	return token
}

// do sends a JSON request and decodes a JSON object response, if any.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}
