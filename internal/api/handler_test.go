package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/redisclient"
	"promoter-dashboard/internal/service"
	"promoter-dashboard/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, store.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	cache := redisclient.Disabled()
	handler := NewHandler(
		service.NewWebhookService(repo, cache, nil),
		service.NewAnalyticsService(repo, cache),
		service.NewRegistryService(repo),
	)

	router := gin.New()
	handler.SetupRoutes(router)
	return router, repo
}

func TestWebhookEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID:        "e1",
		Name:      "Gala",
		StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.EventStatusActive,
	}))

	body := map[string]interface{}{
		"type":         "order.created",
		"order_number": "ORD-1",
		"event_id":     "e1",
		"buyer_name":   "Sam Buyer",
		"buyer_email":  "sam@example.com",
		"items":        []map[string]interface{}{{"item_id": "t1", "name": "GA", "price": 50}},
		"subtotal":     50,
		"total":        55,
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ticketing", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	order, err := repo.GetOrderByNumber(ctx, "ORD-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "e1", order.EventID)

	// Redelivery is acknowledged but ignored.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/ticketing", bytes.NewReader(raw))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate")
}

func TestWebhookEndpointRejectsMissingOrderNumber(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ticketing", bytes.NewBufferString(`{"event_id":"e1"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookEndpointUnknownEvent(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ticketing",
		bytes.NewBufferString(`{"order_number":"ORD-1","event_id":"ghost"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOwnerMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics/owner", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var metrics models.OwnerMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Zero(t, metrics.TotalTicketsSold)
	assert.Zero(t, metrics.RevenueChange)
}

func TestPromoterMetricsEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics/promoters/no-such-link", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterPromoterEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promoters",
		bytes.NewBufferString(`{"name":"Ari","email":"ari@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var promoter models.Promoter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &promoter))
	assert.NotEmpty(t, promoter.TrackingLink)
	assert.Equal(t, models.TierBronze, promoter.Tier)
	assert.Equal(t, 0.20, promoter.CommissionRate)

	stored, err := repo.GetPromoterByTrackingLink(context.Background(), promoter.TrackingLink)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRecalculateRankingsEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPromoter(ctx, &models.Promoter{
		ID: "p1", TrackingLink: "a", TotalTicketsSold: 5,
	}))
	require.NoError(t, repo.AddPromoter(ctx, &models.Promoter{
		ID: "p2", TrackingLink: "b", TotalTicketsSold: 50,
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promoters/recalculate-rankings", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	top, err := repo.GetPromoterByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 1, top.Rank)
}
