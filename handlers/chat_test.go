package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	catalogRepo "tably/database/repository/catalog"
	ledgerRepo "tably/database/repository/ledger"
	profileRepo "tably/database/repository/profile"
	"tably/handlers"
	"tably/models"
	"tably/routes"
	"tably/services/availability"
	"tably/services/catalog"
	"tably/services/intelligence"
	"tably/services/ledger"
	"tably/services/orchestrator"
	"tably/services/profile"
	"tably/services/tools"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	holds := availability.NewHoldStore(client)
	cat := catalog.NewService(catalogRepo.NewMemoryCatalogRepo(), logger)
	require.NoError(t, cat.Seed(context.Background()))

	ledRepo := ledgerRepo.NewMemoryLedgerRepo()
	engine := &availability.Engine{
		Catalog: cat.Repo, Ledger: ledRepo, Holds: holds,
		HoldTTL: 5 * time.Minute, Logger: logger,
	}
	ledgerSvc := ledger.NewService(ledRepo, holds, nil, logger)
	profiles := profile.NewResolver(profileRepo.NewMemoryProfileRepo(), logger)

	registry := tools.NewRegistry(3, logger)
	require.NoError(t, tools.RegisterBuiltin(registry, tools.Deps{
		Catalog: cat, Engine: engine, Ledger: ledgerSvc, Profiles: profiles,
	}))

	store := orchestrator.NewSessionStore(client, 30*time.Minute)
	orch := orchestrator.New(store, intelligence.NewRulePlanner(), registry, profiles, logger)

	router := gin.New()
	routes.RegisterAll(router, &handlers.HandlerBundle{
		Orchestrator: orch,
		Catalog:      cat,
		Engine:       engine,
		Ledger:       ledgerSvc,
		Profiles:     profiles,
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatBookingFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// Open a session.
	w := doJSON(t, router, http.MethodPost, "/api/chat/session",
		map[string]string{"contact": "amina@example.com", "name": "Amina"})
	require.Equal(t, http.StatusCreated, w.Code)
	var start models.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &start))
	require.NotEmpty(t, start.SessionID)
	assert.Contains(t, start.Text, "Welcome, Amina")

	// Ask for availability.
	w = doJSON(t, router, http.MethodPost, "/api/chat/session/"+start.SessionID+"/message",
		map[string]string{"message": "a table for 4 at spice-garden on 2026-09-01"})
	require.Equal(t, http.StatusOK, w.Code)
	var avail models.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.Contains(t, avail.Text, "Free slots")
	require.NotEmpty(t, avail.Actions)
	slotKey := avail.Actions[0].SlotKey

	// Propose the booking; it suspends behind confirmation.
	w = doJSON(t, router, http.MethodPost, "/api/chat/session/"+start.SessionID+"/message",
		map[string]string{"message": "book " + slotKey + " for 4"})
	require.Equal(t, http.StatusOK, w.Code)
	var proposed models.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposed))
	assert.Equal(t, models.StateToolProposed, proposed.State)

	// Confirm.
	w = doJSON(t, router, http.MethodPost, "/api/chat/session/"+start.SessionID+"/message",
		map[string]string{"message": "yes"})
	require.Equal(t, http.StatusOK, w.Code)
	var confirmed models.ChatReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmed))
	assert.Contains(t, confirmed.Text, "confirmed")
}

func TestChatSessionValidation(t *testing.T) {
	router := newTestRouter(t)

	// Missing contact is a 400.
	w := doJSON(t, router, http.MethodPost, "/api/chat/session", map[string]string{"name": "Amina"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Messaging an unknown session is a 410.
	w = doJSON(t, router, http.MethodPost, "/api/chat/session/nope/message",
		map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestRestaurantEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/restaurants?cuisine=italian", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "La Bella Italia")

	w = doJSON(t, router, http.MethodGet, "/api/restaurants/sakura-japanese", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/restaurants/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet,
		"/api/restaurants/spice-garden/availability?date=2026-09-01&party_size=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "slots")

	w = doJSON(t, router, http.MethodGet, "/api/restaurants/spice-garden/availability", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "date is required")
}
