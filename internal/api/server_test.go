package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardid/cardid-server/internal/cache"
	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/resolver"
	"github.com/cardid/cardid-server/internal/search"
	"github.com/cardid/cardid-server/internal/service"
	"github.com/cardid/cardid-server/internal/store/sqlite"
)

var (
	baseSet = domain.CardSet{ID: "base1", Name: "Base", Series: "Base", PrintedTotal: 102, ReleaseDate: "1999/01/09"}
	svp     = domain.CardSet{ID: "svp", Name: "Scarlet & Violet Black Star Promos", Series: "Scarlet & Violet", PrintedTotal: 210, ReleaseDate: "2023/01/01"}
)

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api   humatest.TestAPI
	store *sqlite.Store
}

// setupTestServer creates a server over a seeded sqlite catalog.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWith(t, config.ServerConfig{})
}

func setupTestServerWith(t *testing.T, cfg config.ServerConfig) *testServer {
	t.Helper()
	log := logger.Nop()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.UpsertCards(context.Background(), []domain.ReferenceCard{
		{ID: "base1-4", Name: "Charizard", Number: "4", Set: baseSet, Rarity: "Rare Holo"},
		{ID: "base1-58", Name: "Pikachu", Number: "58", Set: baseSet, Rarity: "Common"},
		{ID: "svp-85", Name: "Pikachu", Number: "85", Set: svp, Rarity: "Promo"},
	})
	require.NoError(t, err)

	index, err := search.NewNameIndex(search.Options{Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	lookups, err := cache.New(cache.Options{Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lookups.Close() })

	catalogService := service.NewCatalogService(st, service.CatalogOptions{
		Index:  index,
		Cache:  lookups,
		Logger: log,
	})
	_, err = catalogService.Reload(context.Background())
	require.NoError(t, err)

	res := resolver.New(st,
		resolver.WithCache(lookups),
		resolver.WithNameSuggester(index),
		resolver.WithLogger(log),
	)

	services := &Services{
		Identify: service.NewIdentifyService(res, log),
		Catalog:  catalogService,
	}

	server := NewServer(services, cfg, log)
	t.Cleanup(server.Close)

	return &testServer{
		Server: server,
		api:    humatest.Wrap(t, server.API()),
		store:  st,
	}
}

// decodeData unwraps the envelope of a successful response.
func decodeData(t *testing.T, body []byte, dest any) {
	t.Helper()
	var envelope struct {
		Version int             `json:"v"`
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.True(t, envelope.Success, string(body))
	require.Equal(t, EnvelopeVersion, envelope.Version)
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

// decodeError unwraps a coded error envelope.
func decodeError(t *testing.T, body []byte) APIErrorEnvelope {
	t.Helper()
	var envelope APIErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.False(t, envelope.Success)
	return envelope
}

func TestResolve_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/resolve", map[string]any{
		"query": map[string]any{
			"name":           "Charizard",
			"printed_number": "4/102",
			"set_total":      "102",
			"set_name":       "Base Set",
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out service.Identification
	decodeData(t, resp.Body.Bytes(), &out)

	assert.True(t, strings.HasPrefix(out.ID, "res-"))
	assert.True(t, out.Success)
	require.NotNil(t, out.Card)
	assert.Equal(t, "base1-4", out.Card.ID)
	assert.Equal(t, domain.MethodPrintedTotal, out.Method)
	assert.Equal(t, "fraction", out.Format)
	assert.GreaterOrEqual(t, out.DurationMs, int64(0))
	require.NotNil(t, out.Patch)
	assert.Equal(t, "base1-4", out.Patch.CatalogID)
}

func TestResolve_NoMatchIsNotAnError(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/resolve", map[string]any{
		"query": map[string]any{"name": "Mewtwo", "printed_number": "150/165"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out service.Identification
	decodeData(t, resp.Body.Bytes(), &out)

	assert.False(t, out.Success)
	assert.Nil(t, out.Card)
	assert.Nil(t, out.Patch)
	assert.Equal(t, domain.MethodNone, out.Method)
	assert.Equal(t, domain.ConfidenceLow, out.Confidence)
	assert.NotEmpty(t, out.Error)
}

func TestResolve_NameRecovery(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/resolve", map[string]any{
		"query": map[string]any{"name": "Charizrd", "printed_number": "4/102"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out service.Identification
	decodeData(t, resp.Body.Bytes(), &out)

	require.True(t, out.Success, out.Error)
	assert.Equal(t, "base1-4", out.Card.ID)

	var fields []string
	for _, c := range out.Corrections {
		fields = append(fields, c.Field+":"+c.Source)
	}
	assert.Contains(t, fields, "card_name:"+domain.SourceIndex)
}

func TestResolve_Validation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/resolve", map[string]any{
		"query": map[string]any{"year": "1999"},
	})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	envelope := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", envelope.Code)
	details, ok := envelope.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "query.name")
}

func TestResolve_MissingQuery(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/resolve", map[string]any{"ocr_breakdown": "position 1: 4"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())

	envelope := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestGetCatalogCard(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/catalog/cards/base1-58")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var card domain.ReferenceCard
	decodeData(t, resp.Body.Bytes(), &card)
	assert.Equal(t, "Pikachu", card.Name)
	assert.Equal(t, "base1", card.Set.ID)

	resp = ts.api.Get("/api/v1/catalog/cards/base1-999")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body.Bytes()).Code)
}

func TestCatalogSets(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/catalog/sets")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var sets []domain.CardSet
	decodeData(t, resp.Body.Bytes(), &sets)
	require.Len(t, sets, 2)
	assert.Equal(t, "base1", sets[0].ID)

	resp = ts.api.Get("/api/v1/catalog/sets/svp")
	require.Equal(t, http.StatusOK, resp.Code)
	var set domain.CardSet
	decodeData(t, resp.Body.Bytes(), &set)
	assert.Equal(t, 210, set.PrintedTotal)

	resp = ts.api.Get("/api/v1/catalog/sets/sv99")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestClassifyNumber(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/numbers/classify?raw=SWSH039&radius=1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out service.NumberClassification
	decodeData(t, resp.Body.Bytes(), &out)
	assert.Equal(t, "promo_a", out.Format)
	assert.Equal(t, []string{"SWSH039", "SWSH39"}, out.Variants)
	assert.Equal(t, "swshp", out.Partition)
	assert.Equal(t, []string{"SWSH038", "SWSH040"}, out.Neighbours)

	resp = ts.api.Get("/api/v1/numbers/classify?raw=4&radius=99")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	decodeData(t, resp.Body.Bytes(), &health)

	assert.Equal(t, statusHealthy, health.Status)
	assert.Equal(t, statusHealthy, health.Components["catalog"].Status)
	assert.Equal(t, "3 cards", health.Components["catalog"].Message)
	assert.Equal(t, statusHealthy, health.Components["index"].Status)
	assert.Equal(t, "disabled", health.Components["remote"].Message)
	assert.Equal(t, statusHealthy, health.Components["cache"].Status)
}

func TestNotFoundRoute(t *testing.T) {
	ts := setupTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRateLimit(t *testing.T) {
	// 60 per minute with burst 10.
	ts := setupTestServerWith(t, config.ServerConfig{RequestsPerMinute: 60})

	limited := 0
	for range 20 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/sets", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		ts.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
		}
	}
	assert.Positive(t, limited)

	// Health checks and other clients are unaffected.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	ts.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/catalog/sets", nil)
	req.RemoteAddr = "192.0.2.2:4000"
	ts.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "ipv6 remote addr", remote: "[2001:db8::1]:1234", want: "2001:db8::1"},
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, remote: "10.0.0.1:1", want: "203.0.113.5"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.9"}, remote: "10.0.0.1:1", want: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestRecoverer(t *testing.T) {
	h := recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := requestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"client supplied", "upstream-42", true},
		{"oversized", strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.True(t, strings.HasPrefix(seen, "req-"), seen)
			}
		})
	}
}
