package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MJE43/puyobattle/internal/scoring"
	"github.com/MJE43/puyobattle/internal/settings"
)

func newTestServer(t *testing.T, secret string) *Server {
	t.Helper()
	server, err := NewServer(zap.NewNop(), Options{HostSecret: secret})
	require.NoError(t, err)
	return server
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Routes().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, "secret")

	w := doJSON(t, server, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp HealthCheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, HealthStatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 3)
}

func TestHealthDegradedWithoutSecret(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp HealthCheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, HealthStatusDegraded, resp.Status)
}

func TestReadinessAndLiveness(t *testing.T) {
	server := newTestServer(t, "")
	for _, path := range []string{"/health/ready", "/health/live", "/version"} {
		w := doJSON(t, server, "GET", path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
		if w.Header().Get("X-Engine-Version") == "" {
			t.Errorf("%s: expected X-Engine-Version header", path)
		}
	}
}

func TestBuildSettingsEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/settings", BuildSettingsRequest{
		Fields: map[string]string{
			"gamemode":   "Fever",
			"rows":       "5",
			"numColours": "7",
			"cols":       "8",
			"marginTime": "30",
			"seed":       "0.25",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp BuildSettingsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Fever", resp.Settings.Gamemode)
	assert.Equal(t, 12, resp.Settings.Rows)
	assert.Equal(t, 4, resp.Settings.NumColours)
	assert.Equal(t, 8, resp.Settings.Cols)
	assert.Equal(t, int64(30000), resp.Settings.MarginTimeMs)
	assert.Equal(t, 2, resp.Rejected)
	assert.Equal(t, "Fever 0.036 12 8 0.27 4 70 30000 0 0.25", resp.Wire)
	assert.Len(t, resp.Fields, len(settings.Fields))
}

func TestBuildSettingsDerivesSeed(t *testing.T) {
	server := newTestServer(t, "secret")
	nonce := uint64(4)

	first := doJSON(t, server, "POST", "/api/v1/settings", BuildSettingsRequest{Room: "room-1", Nonce: &nonce})
	second := doJSON(t, server, "POST", "/api/v1/settings", BuildSettingsRequest{Room: "room-1", Nonce: &nonce})
	require.Equal(t, http.StatusOK, first.Code)

	var a, b BuildSettingsResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&a))
	require.NoError(t, json.NewDecoder(second.Body).Decode(&b))
	assert.Equal(t, a.Wire, b.Wire)
}

func TestBuildSettingsSeedNeedsSecret(t *testing.T) {
	server := newTestServer(t, "")
	nonce := uint64(1)

	w := doJSON(t, server, "POST", "/api/v1/settings", BuildSettingsRequest{Room: "room-1", Nonce: &nonce})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestBuildSettingsRejectsUnknownField(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/settings", BuildSettingsRequest{Fields: map[string]string{"speed": "3"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var engineErr EngineError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&engineErr))
	assert.Equal(t, ErrTypeValidation, engineErr.Type)
	assert.Equal(t, "validation", w.Header().Get("X-Error-Category"))
}

func TestDecodeSettingsEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/settings/decode", WireRequest{Wire: "Tsu 0.036 12 6 0.27 4 70 96000 0 0.5"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp DecodeSettingsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, 70, resp.Settings.TargetPoints)

	w = doJSON(t, server, "POST", "/api/v1/settings/decode", WireRequest{Wire: "Tsu 0.036 3 6 0.27 4 70 96000 0 0.5"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Problem, "rows")

	w = doJSON(t, server, "POST", "/api/v1/settings/decode", WireRequest{Wire: "Tsu 0.036"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	var engineErr EngineError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&engineErr))
	assert.Equal(t, ErrTypeInvalidSettings, engineErr.Type)
}

func TestCheckSettingsEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/settings/check", WireRequest{Wire: "Tsu 0.30000000000000004 12 6 0.27 4 70 96000 0 0.1"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp CheckSettingsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.OK)
}

func TestScoreEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/score", ScoreRequest{Steps: []scoring.ClearEvent{
		{Tiles: scoring.Tiles(scoring.Red, 4), Chain: 1},
		{Tiles: scoring.Tiles(scoring.Red, 4), Chain: 2},
	}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScoreResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 320, resp.Total)
	require.Len(t, resp.Steps, 2)
	assert.Equal(t, 0, resp.Steps[0].Score)
}

func TestScoreEndpointRejectsChainZero(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/score", ScoreRequest{Steps: []scoring.ClearEvent{{Tiles: scoring.Tiles(scoring.Red, 4)}}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
}

func TestScoreEndpointRejectsUnknownColour(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest("POST", "/api/v1/score", bytes.NewBufferString(`{"steps":[{"tiles":[{"colour":"Orange"}],"chain":1}]}`))
	w := httptest.NewRecorder()
	server.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestNuisanceEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/nuisance", NuisanceRequest{ScoreDelta: 75, TargetPoints: 70, Carry: 0.5})
	require.Equal(t, http.StatusOK, w.Code)
	var resp NuisanceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Units)
	assert.InDelta(t, 0.5714, resp.Carry, 1e-4)

	w = doJSON(t, server, "POST", "/api/v1/nuisance", NuisanceRequest{ScoreDelta: 75, TargetPoints: 0})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
}

func TestMarginEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/margin", MarginRequest{Wire: "Tsu 0.036 12 6 0.27 4 70 96000 0 0.5", ElapsedMs: 112000})
	require.Equal(t, http.StatusOK, w.Code)

	var resp MarginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 26, resp.TargetPoints)
	assert.True(t, resp.Started)
	assert.False(t, resp.Frozen)
	assert.Equal(t, []MarginStep{
		{AtMs: 96000, From: 70, To: 52, Count: 1, First: true},
		{AtMs: 112000, From: 52, To: 26, Count: 2},
	}, resp.Reductions)
}

func TestSeedEndpoint(t *testing.T) {
	server := newTestServer(t, "secret")

	w := doJSON(t, server, "POST", "/api/v1/seed", SeedRequest{Room: "room-1", Nonce: 2})
	require.Equal(t, http.StatusOK, w.Code)
	var resp SeedResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.GreaterOrEqual(t, resp.Seed, 0.0)
	assert.Less(t, resp.Seed, 1.0)
	assert.Len(t, resp.Commitment, 64)

	back, err := settings.ParseFloat(resp.SeedText)
	require.NoError(t, err)
	assert.Equal(t, resp.Seed, back)

	w = doJSON(t, server, "POST", "/api/v1/seed", SeedRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestMatchEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	twoStep := []scoring.ClearEvent{
		{Tiles: scoring.Tiles(scoring.Red, 4), Chain: 1},
		{Tiles: scoring.Tiles(scoring.Blue, 4), Chain: 2},
	}

	w := doJSON(t, server, "POST", "/api/v1/match", MatchRequest{
		Wire:  "Tsu 0.036 12 6 0.27 4 70 96000 0 0.5",
		Human: "human",
		CPUs:  []CPURequest{{ID: "cpu", AI: "Test", Slider: 8}},
		Events: []MatchEvent{
			{AtMs: 1000, Peer: "human", Steps: twoStep},
			{AtMs: 96000, Peer: "cpu", Steps: twoStep},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp MatchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Attacks, 2)
	assert.Equal(t, 4, resp.Attacks[0].Units)
	assert.Equal(t, []string{"cpu"}, resp.Attacks[0].Targets)
	assert.Equal(t, 52, resp.Attacks[1].TargetPoints)
	assert.Equal(t, 6, resp.Attacks[1].Units)
	assert.NotEmpty(t, resp.MatchID)
	require.Len(t, resp.Peers, 2)
}

func TestMatchEndpointValidation(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "POST", "/api/v1/match", MatchRequest{
		Wire:  "Tsu 0.036 12 6 0.27 4 70 96000 0 0.5",
		Human: "human",
		CPUs:  []CPURequest{{Slider: 12}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest("POST", "/api/v1/nuisance", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	server.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	var engineErr EngineError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&engineErr))
	assert.Equal(t, ErrTypeInvalidJSON, engineErr.Type)
	assert.NotEmpty(t, engineErr.RequestID)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, "")

	w := doJSON(t, server, "OPTIONS", "/api/v1/score", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryHandler(t *testing.T) {
	eh := NewErrorHandler(zap.NewNop())
	h := eh.RecoveryHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	assert.Equal(t, ErrTypeInternal, w.Header().Get("X-Error-Type"))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, CategoryValidation, GetErrorCategory(ErrTypeInvalidSettings))
	assert.Equal(t, CategoryRules, GetErrorCategory(ErrTypeNuisance))
	assert.Equal(t, CategoryTimeout, GetErrorCategory(ErrTypeTimeout))
	assert.Equal(t, CategorySystem, GetErrorCategory(ErrTypeNotConfigured))
}
