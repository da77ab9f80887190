package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"forgedb/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_AuthRequired(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	user := env.createUser(t, "player@example.com", false)

	sign := func(issuer string, exp time.Duration) string {
		claims := jwt.MapClaims{
			"sub": "1",
			"iss": issuer,
			"aud": middleware.TokenAudience,
			"exp": time.Now().Add(exp).Unix(),
			"jti": "test-jti",
		}
		str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return str
	}

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{name: "Valid Token", token: env.tokenFor(t, user), expectedStatus: http.StatusOK},
		{name: "Missing Token", expectedStatus: http.StatusUnauthorized},
		{name: "Garbage Token", token: "not-a-jwt", expectedStatus: http.StatusUnauthorized},
		{name: "Expired Token", token: sign(middleware.TokenIssuer, -time.Hour), expectedStatus: http.StatusUnauthorized},
		{name: "Wrong Issuer", token: sign("someone-else", time.Hour), expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodGet, "/api/user/profile", nil, tt.token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	user := env.createUser(t, "player@example.com", false)
	token := env.tokenFor(t, user)

	resp, _ := env.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	claims, err := middleware.ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.True(t, env.mr.Exists(revokedKey(claims.ID)))
	assert.Greater(t, env.mr.TTL(revokedKey(claims.ID)), 6*24*time.Hour)

	resp, body := env.do(t, http.MethodGet, "/api/user/profile", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestRegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t, "live_updates=off,email_verification=on")
	ctx := context.Background()

	register := map[string]string{
		"email":         "New.Player@Example.com",
		"password":      "Str0ng!Passw0rd",
		"hcaptchaToken": "token",
	}

	resp, body := env.do(t, http.MethodPost, "/api/auth/register", register, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new.player@example.com", body["email"])
	assert.Equal(t, 1, env.mailer.count())

	resp, body = env.do(t, http.MethodPost, "/api/auth/register", register, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["code"])

	user, err := env.users.GetByEmail(ctx, "new.player@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.False(t, user.IsVerified)
	require.Len(t, user.VerificationCode, 6)

	wrong := "000000"
	if user.VerificationCode == wrong {
		wrong = "111111"
	}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/verify",
		map[string]string{"email": user.Email, "code": wrong}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/verify",
		map[string]string{"email": user.Email, "code": user.VerificationCode}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// verifying twice is not an error
	resp, _ = env.do(t, http.MethodPost, "/api/auth/verify",
		map[string]string{"email": user.Email, "code": "123456"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": user.Email, "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "NEW.PLAYER@example.com", "password": "Str0ng!Passw0rd"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, ok := body["token"].(string)
	require.True(t, ok)

	claims, err := middleware.ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "new.player@example.com", claims.Email)
	assert.Equal(t, "new.player", claims.Name)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "Weak Password", body: map[string]string{"email": "a@example.com", "password": "short", "hcaptchaToken": "t"}},
		{name: "Bad Email", body: map[string]string{"email": "nope", "password": "Str0ng!Passw0rd", "hcaptchaToken": "t"}},
		{name: "Missing Captcha", body: map[string]string{"email": "a@example.com", "password": "Str0ng!Passw0rd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
		})
	}
	assert.Zero(t, env.mailer.count())
}

func TestRegister_WithoutEmailVerification(t *testing.T) {
	env := newTestEnv(t, "live_updates=off,email_verification=off")

	resp, _ := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":         "quick@example.com",
		"password":      "Str0ng!Passw0rd",
		"hcaptchaToken": "token",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, env.mailer.count())

	user, err := env.users.GetByEmail(context.Background(), "quick@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
}

func TestCredentialRoutes_FailClosedWhenRedisDown(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	env.createUser(t, "alice@example.com", false)
	t.Setenv("APP_ENV", "production")
	env.mr.Close()

	login := map[string]string{"email": "alice@example.com", "password": "Str0ng!Passw0rd"}
	resp, body := env.do(t, http.MethodPost, "/api/auth/login", login, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "rate limit unavailable", body["error"])

	register := map[string]string{"email": "new@example.com", "password": "Str0ng!Passw0rd", "hcaptchaToken": "t"}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/register", register, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, env.mailer.count())

	// read-only routes keep working without Redis
	resp, _ = env.do(t, http.MethodGet, "/api/mods", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
