package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"forestfocus/internal/config"
	"forestfocus/internal/db"
	"forestfocus/internal/fingerprint"
	"forestfocus/internal/handler"
	"forestfocus/internal/repository"
	"forestfocus/internal/router"
	"forestfocus/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type completionResponse struct {
	Success      bool `json:"success"`
	Duplicate    bool `json:"duplicate"`
	PointsEarned int  `json:"pointsEarned"`
	NewStreak    int  `json:"newStreak"`
	TreesGrown   []struct {
		TreeID       string `json:"treeId"`
		NewStage     int    `json:"newStage"`
		StagesGained int    `json:"stagesGained"`
	} `json:"treesGrown"`
}

type treeEnvelope struct {
	Tree struct {
		ID    string `json:"id"`
		Stage int    `json:"stage"`
	} `json:"tree"`
}

type treesEnvelope struct {
	Trees []struct {
		ID                  string   `json:"id"`
		Stage               int      `json:"stage"`
		GrowthSessionIDs    []string `json:"lastGrowthSessionIds"`
		TotalGrowthSessions int      `json:"totalGrowthSessions"`
	} `json:"trees"`
}

type streakEnvelope struct {
	Streak struct {
		StreakDays int `json:"streakDays"`
	} `json:"streak"`
}

type pendingEnvelope struct {
	Pending []struct {
		ID string `json:"id"`
	} `json:"pending"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestCompletionPipeline(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user1@example.com", "123456")

	// Plant a tree so the completion has something to grow.
	status, rawTree := requestJSON(t, engine, http.MethodPost, "/api/forest/plant", user.Token, map[string]string{
		"speciesId": "oak",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on plant, got %d: %s", status, rawTree)
	}
	var planted treeEnvelope
	if err := json.Unmarshal(rawTree, &planted); err != nil {
		t.Fatalf("unmarshal plant response: %v", err)
	}

	sessionID := "11111111-1111-1111-1111-111111111111"
	startedAt := time.Now().UTC().Add(-50 * time.Minute)
	payload := map[string]interface{}{
		"sessionId":    sessionID,
		"fingerprint":  fingerprint.ForSession(sessionID, startedAt),
		"startedAt":    startedAt.Format(time.RFC3339Nano),
		"focusMinutes": 50,
	}

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/focus/complete", user.Token, payload)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on complete, got %d: %s", status, raw)
	}
	var result completionResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal completion response: %v", err)
	}
	if !result.Success || result.Duplicate {
		t.Fatalf("expected fresh success, got %+v", result)
	}
	if result.PointsEarned != 28 {
		// 25 base, first completion starts a 1-day streak: round(25 * 1.1).
		t.Fatalf("expected 28 points, got %d", result.PointsEarned)
	}
	if result.NewStreak != 1 {
		t.Fatalf("expected streak 1, got %d", result.NewStreak)
	}
	if len(result.TreesGrown) != 1 || result.TreesGrown[0].NewStage != 2 {
		t.Fatalf("expected one tree grown to stage 2, got %+v", result.TreesGrown)
	}

	// Replaying the same fingerprint is a no-op success, not a new credit.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/focus/complete", user.Token, payload)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d: %s", status, raw)
	}
	var dup completionResponse
	if err := json.Unmarshal(raw, &dup); err != nil {
		t.Fatalf("unmarshal duplicate response: %v", err)
	}
	if !dup.Success || !dup.Duplicate {
		t.Fatalf("expected duplicate no-op success, got %+v", dup)
	}
	if len(dup.TreesGrown) != 0 {
		t.Fatalf("duplicate must not grow trees, got %+v", dup.TreesGrown)
	}

	// The tree grew exactly once.
	status, raw = requestJSON(t, engine, http.MethodGet, "/api/forest/trees", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for trees, got %d", status)
	}
	var trees treesEnvelope
	if err := json.Unmarshal(raw, &trees); err != nil {
		t.Fatalf("unmarshal trees: %v", err)
	}
	if len(trees.Trees) != 1 {
		t.Fatalf("expected one tree, got %d", len(trees.Trees))
	}
	if trees.Trees[0].Stage != 2 || trees.Trees[0].TotalGrowthSessions != 1 {
		t.Fatalf("unexpected tree state: %+v", trees.Trees[0])
	}

	// Streak surface agrees with the completion result.
	status, raw = requestJSON(t, engine, http.MethodGet, "/api/focus/streak", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for streak, got %d", status)
	}
	var streak streakEnvelope
	if err := json.Unmarshal(raw, &streak); err != nil {
		t.Fatalf("unmarshal streak: %v", err)
	}
	if streak.Streak.StreakDays != 1 {
		t.Fatalf("expected streak 1, got %d", streak.Streak.StreakDays)
	}
}

func TestCompletionRejectsForgedFingerprint(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user2@example.com", "123456")

	startedAt := time.Now().UTC().Add(-25 * time.Minute)
	payload := map[string]interface{}{
		"sessionId":    "22222222-2222-2222-2222-222222222222",
		"fingerprint":  "forged",
		"startedAt":    startedAt.Format(time.RFC3339Nano),
		"focusMinutes": 25,
	}

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/focus/complete", user.Token, payload)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for forged fingerprint, got %d: %s", status, raw)
	}
	var apiErr apiErrorEnvelope
	if err := json.Unmarshal(raw, &apiErr); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if apiErr.Error.Code != "fingerprint_mismatch" {
		t.Fatalf("expected fingerprint_mismatch, got %s", apiErr.Error.Code)
	}
}

func TestCompletionRejectsMalformedPayload(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user3@example.com", "123456")

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/focus/complete", user.Token, map[string]interface{}{
		"sessionId":    "",
		"fingerprint":  "x",
		"focusMinutes": 25,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d: %s", status, raw)
	}
}

func TestPendingQueueStartsEmpty(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "user4@example.com", "123456")

	status, raw := requestJSON(t, engine, http.MethodGet, "/api/queue/pending", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for pending queue, got %d: %s", status, raw)
	}
	var pending pendingEnvelope
	if err := json.Unmarshal(raw, &pending); err != nil {
		t.Fatalf("unmarshal pending: %v", err)
	}
	if len(pending.Pending) != 0 {
		t.Fatalf("expected empty queue, got %d entries", len(pending.Pending))
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	engine := setupTestEngine(t)

	for _, path := range []string{"/api/focus/streak", "/api/forest/trees", "/api/queue/pending"} {
		status, _ := requestJSON(t, engine, http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token, got %d", path, status)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	streakRepo := repository.NewStreakRepository(database)
	treeRepo := repository.NewTreeRepository(database)
	completionRepo := repository.NewCompletionRepository(database)
	queueRepo := repository.NewQueueRepository(database)

	species := config.DefaultCatalog().SpeciesByID()
	authService := service.NewAuthService(userRepo, streakRepo, "test-secret", 24*time.Hour)
	completionService := service.NewCompletionService(completionRepo, streakRepo, treeRepo, species)
	forestService := service.NewForestService(treeRepo, species)

	authHandler := handler.NewAuthHandler(authService)
	focusHandler := handler.NewFocusHandler(completionService)
	forestHandler := handler.NewForestHandler(forestService)
	queueHandler := handler.NewQueueHandler(queueRepo)

	return router.New(authService, authHandler, focusHandler, forestHandler, queueHandler, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
