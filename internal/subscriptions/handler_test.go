package subscriptions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitsphere/backend/internal/auth"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *repoMock) *mux.Router {
	handler := NewHandler(NewService(repo))
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return router
}

func reqWithSession(req *http.Request, userID int, role string) *http.Request {
	return req.WithContext(auth.ContextWithSession(req.Context(), &auth.Session{
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}))
}

func TestHandler_ListTiers(t *testing.T) {
	router := newTestRouter(newTestCatalog())

	req, err := http.NewRequest("GET", "/subscriptions/tiers", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp TiersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "starter", resp.Tiers[0].Name)
	assert.Equal(t, 5, resp.Tiers[0].MaxClients)
}

func TestHandler_MyTier(t *testing.T) {
	repo := newTestCatalog()
	repo.TrainerTiers[42] = 2
	router := newTestRouter(repo)

	req, err := http.NewRequest("GET", "/subscriptions/tiers/mine", nil)
	require.NoError(t, err)
	req = reqWithSession(req, 42, auth.RoleTrainer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var tier Tier
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tier))
	assert.Equal(t, "pro", tier.Name)
	assert.Equal(t, 25, tier.MaxClients)
}

func TestHandler_MyTier_NoneAssigned(t *testing.T) {
	router := newTestRouter(newTestCatalog())

	req, err := http.NewRequest("GET", "/subscriptions/tiers/mine", nil)
	require.NoError(t, err)
	req = reqWithSession(req, 42, auth.RoleTrainer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_AssignTier(t *testing.T) {
	repo := newTestCatalog()
	router := newTestRouter(repo)

	req, err := http.NewRequest("POST", "/subscriptions/tiers/3/assign", nil)
	require.NoError(t, err)
	req = reqWithSession(req, 42, auth.RoleTrainer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "assigned:3", rr.Body.String())
	assert.Equal(t, 3, repo.TrainerTiers[42])
}

func TestHandler_AssignTier_ClientForbidden(t *testing.T) {
	repo := newTestCatalog()
	router := newTestRouter(repo)

	req, err := http.NewRequest("POST", "/subscriptions/tiers/3/assign", nil)
	require.NoError(t, err)
	req = reqWithSession(req, 7, auth.RoleClient)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, repo.TrainerTiers)
}

func TestHandler_AssignTier_UnknownTier(t *testing.T) {
	router := newTestRouter(newTestCatalog())

	req, err := http.NewRequest("POST", "/subscriptions/tiers/777/assign", nil)
	require.NoError(t, err)
	req = reqWithSession(req, 42, auth.RoleTrainer)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
