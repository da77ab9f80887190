package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBanner = "https://images.pexels.com/photos/1/banner.jpeg"

func (e *testEnv) createMod(t *testing.T, adminToken, name string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/mods", map[string]string{
		"name":        name,
		"description": "Adds more ores",
		"bannerUrl":   testBanner,
	}, adminToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mod := body["mod"].(map[string]any)
	return mod["id"].(string)
}

func (e *testEnv) createReview(t *testing.T, token, modID, issue string, conflicts ...string) string {
	t.Helper()
	cms := make([]map[string]any, 0, len(conflicts))
	for _, name := range conflicts {
		cms = append(cms, map[string]any{"name": name, "causesCrash": true})
	}
	resp, body := e.do(t, http.MethodPost, "/api/reviews", map[string]any{
		"modId":            modID,
		"modName":          "Ore Expansion",
		"minecraftVersion": "1.20.1",
		"forgeVersion":     "47.2.0",
		"systemSpecs":      map[string]string{"os": "Linux", "cpu": "Ryzen", "gpu": "RTX", "ram": "16GB"},
		"issueType":        issue,
		"conflictingMods":  cms,
		"description":      "Crashes when loading a world",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	review := body["review"].(map[string]any)
	return review["id"].(string)
}

func TestCreateMod_Authorization(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	admin := env.createUser(t, "admin@example.com", true)
	player := env.createUser(t, "player@example.com", false)

	tests := []struct {
		name           string
		token          string
		banner         string
		expectedStatus int
	}{
		{name: "Admin", token: env.tokenFor(t, admin), banner: testBanner, expectedStatus: http.StatusCreated},
		{name: "Not Admin", token: env.tokenFor(t, player), banner: testBanner, expectedStatus: http.StatusForbidden},
		{name: "Anonymous", banner: testBanner, expectedStatus: http.StatusUnauthorized},
		{name: "Banner Host Not Allowed", token: env.tokenFor(t, admin), banner: "https://evil.example.com/x.png", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, "/api/mods", map[string]string{
				"name":        "Ore Expansion",
				"description": "Adds more ores",
				"bannerUrl":   tt.banner,
			}, tt.token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	resp, body := env.do(t, http.MethodGet, "/api/mods", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["mods"], 1)
}

func TestModDetail_StatisticsAndRollup(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	admin := env.createUser(t, "admin@example.com", true)
	alice := env.tokenFor(t, env.createUser(t, "alice@example.com", false))
	bob := env.tokenFor(t, env.createUser(t, "bob@example.com", false))
	adminToken := env.tokenFor(t, admin)

	modID := env.createMod(t, adminToken, "Ore Expansion")
	env.createReview(t, alice, modID, "client", "OptiFine", "JEI")
	env.createReview(t, bob, modID, "client", "OptiFine")
	third := env.createReview(t, bob, modID, "server", "Create", "OptiFine")

	resp, body := env.do(t, http.MethodGet, "/api/mods/"+modID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mod := body["mod"].(map[string]any)
	assert.EqualValues(t, 3, mod["reviewCount"])
	assert.EqualValues(t, 5, mod["averageRating"])
	assert.Len(t, body["reviews"], 3)

	statistics := body["statistics"].(map[string]any)
	issues := statistics["issueStats"].(map[string]any)
	assert.EqualValues(t, 67, issues["client"])
	assert.EqualValues(t, 33, issues["server"])
	assert.EqualValues(t, 0, issues["both"])

	ranking := statistics["conflictingMods"].([]any)
	require.Len(t, ranking, 3)
	assert.Equal(t, map[string]any{"name": "OptiFine", "count": float64(3)}, ranking[0])
	assert.Equal(t, "Create", ranking[1].(map[string]any)["name"])
	assert.Equal(t, "JEI", ranking[2].(map[string]any)["name"])

	resp, _ = env.do(t, http.MethodDelete, "/api/reviews/"+third, nil, bob)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/reviews/"+third, nil, adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, http.MethodGet, "/api/mods/"+modID, nil, "")
	mod = body["mod"].(map[string]any)
	assert.EqualValues(t, 2, mod["reviewCount"])
	issues = body["statistics"].(map[string]any)["issueStats"].(map[string]any)
	assert.EqualValues(t, 100, issues["client"])

	resp, _ = env.do(t, http.MethodGet, "/api/mods/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleReaction(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	adminToken := env.tokenFor(t, env.createUser(t, "admin@example.com", true))
	alice := env.tokenFor(t, env.createUser(t, "alice@example.com", false))
	bob := env.tokenFor(t, env.createUser(t, "bob@example.com", false))

	modID := env.createMod(t, adminToken, "Ore Expansion")
	reviewID := env.createReview(t, alice, modID, "both")
	path := "/api/reviews/" + reviewID

	steps := []struct {
		name     string
		token    string
		reaction string
		likes    float64
		dislikes float64
	}{
		{name: "Alice Likes", token: alice, reaction: "like", likes: 1},
		{name: "Bob Dislikes", token: bob, reaction: "dislike", likes: 1, dislikes: 1},
		{name: "Bob Switches To Like", token: bob, reaction: "like", likes: 2},
		{name: "Alice Removes Like", token: alice, reaction: "like", likes: 1},
	}

	for _, step := range steps {
		resp, body := env.do(t, http.MethodPut, path, map[string]string{"type": step.reaction}, step.token)
		require.Equal(t, http.StatusOK, resp.StatusCode, step.name)
		reactions := body["review"].(map[string]any)["reactions"].(map[string]any)
		assert.Equal(t, step.likes, reactions["likes"], step.name)
		assert.Equal(t, step.dislikes, reactions["dislikes"], step.name)
	}

	resp, body := env.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"3": "like"}, body["userReactions"])
	author := body["user"].(map[string]any)
	assert.Equal(t, "alice", author["name"])
	assert.EqualValues(t, 1, author["reviewCount"])

	resp, _ = env.do(t, http.MethodPut, path, map[string]string{"type": "love"}, alice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/reviews/missing", map[string]string{"type": "like"}, alice)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, path, map[string]string{"type": "like"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetMyReviews(t *testing.T) {
	env := newTestEnv(t, "live_updates=off")
	adminToken := env.tokenFor(t, env.createUser(t, "admin@example.com", true))
	alice := env.tokenFor(t, env.createUser(t, "alice@example.com", false))
	bob := env.tokenFor(t, env.createUser(t, "bob@example.com", false))

	modID := env.createMod(t, adminToken, "Ore Expansion")
	env.createReview(t, alice, modID, "client")
	env.createReview(t, alice, modID, "server")
	env.createReview(t, bob, modID, "both")

	resp, body := env.do(t, http.MethodGet, "/api/reviews", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["reviews"], 2)

	resp, _ = env.do(t, http.MethodPost, "/api/reviews", map[string]any{
		"modId":       modID,
		"modName":     "Ore Expansion",
		"issueType":   "graphics",
		"description": "x",
	}, alice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
