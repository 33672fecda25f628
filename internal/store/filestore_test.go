package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promoter-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestFileStoreMissingFilesDegradeToEmpty(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	promoters, err := fs.GetPromoters(ctx)
	require.NoError(t, err)
	assert.Empty(t, promoters)

	orders, err := fs.GetOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	logs, err := fs.GetWebhookLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestFileStoreCorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, promotersFile), []byte("{not json"), 0o644))

	promoters, err := fs.GetPromoters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, promoters)
}

func TestFileStorePromoterRoundTrip(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	promoter := &models.Promoter{
		TrackingLink:   "link-1",
		Name:           "Ari",
		Email:          "ari@example.com",
		Tier:           models.TierBronze,
		CommissionRate: 0.20,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, fs.AddPromoter(ctx, promoter))
	assert.NotEmpty(t, promoter.ID)

	byLink, err := fs.GetPromoterByTrackingLink(ctx, "link-1")
	require.NoError(t, err)
	require.NotNil(t, byLink)
	assert.Equal(t, promoter.ID, byLink.ID)

	byLink.TotalTicketsSold = 42
	require.NoError(t, fs.UpdatePromoter(ctx, byLink))

	byID, err := fs.GetPromoterByID(ctx, promoter.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, 42, byID.TotalTicketsSold)

	missing, err := fs.GetPromoterByID(ctx, "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = fs.UpdatePromoter(ctx, &models.Promoter{ID: "no-such-id"})
	assert.Error(t, err)
}

func TestFileStoreGetOrdersByPromoterFilters(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	orders := []models.Order{
		{OrderNumber: "N-1", PromoterID: "p1"},
		{OrderNumber: "N-2", PromoterID: "p1", Cancelled: true},
		{OrderNumber: "N-3", PromoterID: "p1", Refunded: true},
		{OrderNumber: "N-4", PromoterID: "p2"},
	}
	for i := range orders {
		require.NoError(t, fs.AddOrder(ctx, &orders[i]))
	}

	got, err := fs.GetOrdersByPromoter(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "N-1", got[0].OrderNumber)
}

func TestFileStoreOrderByNumber(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, fs.AddOrder(ctx, &models.Order{OrderNumber: "N-1", Subtotal: 10}))

	order, err := fs.GetOrderByNumber(ctx, "N-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 10.0, order.Subtotal)

	missing, err := fs.GetOrderByNumber(ctx, "N-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFileStoreWebhookLogRetention(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	for i := 0; i < WebhookLogRetention+5; i++ {
		err := fs.AddWebhookLog(ctx, &models.WebhookLog{
			OrderNumber: fmt.Sprintf("N-%d", i),
			Timestamp:   time.Now(),
			Success:     true,
		})
		require.NoError(t, err)
	}

	logs, err := fs.GetWebhookLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, WebhookLogRetention)

	// Most recent first; the oldest five were evicted.
	assert.Equal(t, fmt.Sprintf("N-%d", WebhookLogRetention+4), logs[0].OrderNumber)
	assert.Equal(t, "N-5", logs[len(logs)-1].OrderNumber)
}
