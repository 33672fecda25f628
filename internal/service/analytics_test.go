package service

import (
	"context"
	"testing"
	"time"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/redisclient"
	"promoter-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalytics(t *testing.T) (*AnalyticsService, store.Repository) {
	t.Helper()

	repo, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	return NewAnalyticsService(repo, redisclient.Disabled()), repo
}

func TestCalculateTier(t *testing.T) {
	tests := []struct {
		ticketsSold int
		wantTier    string
		wantRate    float64
	}{
		{0, models.TierBronze, 0.20},
		{1, models.TierBronze, 0.20},
		{24, models.TierBronze, 0.20},
		{25, models.TierSilver, 0.25},
		{49, models.TierSilver, 0.25},
		{50, models.TierGold, 0.30},
		{99, models.TierGold, 0.30},
		{100, models.TierPlatinum, 0.35},
		{250, models.TierPlatinum, 0.35},
	}

	for _, tt := range tests {
		tier, rate := CalculateTier(tt.ticketsSold)
		assert.Equal(t, tt.wantTier, tier, "tickets=%d", tt.ticketsSold)
		assert.Equal(t, tt.wantRate, rate, "tickets=%d", tt.ticketsSold)
	}
}

func TestRecalculateRankings(t *testing.T) {
	analytics, repo := newTestAnalytics(t)
	ctx := context.Background()

	counts := []int{10, 120, 55, 55}
	for i, c := range counts {
		err := repo.AddPromoter(ctx, &models.Promoter{
			Name:             "Promoter",
			TrackingLink:     string(rune('a' + i)),
			TotalTicketsSold: c,
		})
		require.NoError(t, err)
	}

	require.NoError(t, analytics.RecalculateRankings(ctx))

	promoters, err := repo.GetPromoters(ctx)
	require.NoError(t, err)
	require.Len(t, promoters, 4)

	seen := map[int]int{}
	for _, p := range promoters {
		seen[p.Rank] = p.TotalTicketsSold
	}
	assert.Equal(t, map[int]int{1: 120, 2: 55, 3: 55, 4: 10}, seen)
}

func TestGetPromoterMetricsUnknownLink(t *testing.T) {
	analytics, _ := newTestAnalytics(t)

	metrics, err := analytics.GetPromoterMetrics(context.Background(), "no-such-link")
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestGetPromoterMetricsRollup(t *testing.T) {
	analytics, repo := newTestAnalytics(t)
	ctx := context.Background()

	promoter := &models.Promoter{
		ID:                    "p1",
		TrackingLink:          "link-1",
		Name:                  "Ari",
		Tier:                  models.TierSilver,
		CommissionRate:        0.25,
		TotalTicketsSold:      30,
		TotalRevenueGenerated: 900,
		TotalCommissionEarned: 210,
	}
	require.NoError(t, repo.AddPromoter(ctx, promoter))

	older := &models.Event{ID: "e1", Name: "Spring Gala",
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Status: models.EventStatusCompleted}
	newer := &models.Event{ID: "e2", Name: "Summer Fest",
		StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Status: models.EventStatusActive}
	require.NoError(t, repo.AddEvent(ctx, older))
	require.NoError(t, repo.AddEvent(ctx, newer))

	orders := []models.Order{
		{OrderNumber: "A-1", EventID: "e1", PromoterID: "p1", Subtotal: 100,
			Items: []models.OrderItem{{ItemID: "t1"}, {ItemID: "t2"}}},
		{OrderNumber: "A-2", EventID: "e2", PromoterID: "p1", Subtotal: 200,
			Items: []models.OrderItem{{ItemID: "t3"}}},
		{OrderNumber: "A-3", EventID: "e2", PromoterID: "p1", Subtotal: 50,
			Items: []models.OrderItem{{ItemID: "t4"}}, Cancelled: true},
		{OrderNumber: "A-4", EventID: "e1", PromoterID: "p1", Subtotal: 75,
			Items: []models.OrderItem{{ItemID: "t5"}}, Refunded: true},
		// Dangling event reference: skipped from the breakdown.
		{OrderNumber: "A-5", EventID: "ghost", PromoterID: "p1", Subtotal: 500,
			Items: []models.OrderItem{{ItemID: "t6"}}},
	}
	for i := range orders {
		require.NoError(t, repo.AddOrder(ctx, &orders[i]))
	}

	metrics, err := analytics.GetPromoterMetrics(ctx, "link-1")
	require.NoError(t, err)
	require.NotNil(t, metrics)

	// Top-level totals come from the promoter's running counters, not from
	// the order scan.
	assert.Equal(t, 30, metrics.TotalTicketsSold)
	assert.Equal(t, 900.0, metrics.TotalRevenueGenerated)
	assert.Equal(t, 210.0, metrics.TotalCommissionEarned)

	require.NotNil(t, metrics.RecentEvent)
	assert.Equal(t, "e2", metrics.RecentEvent.EventID)
	assert.Equal(t, 1, metrics.RecentEvent.TicketsSold)
	assert.Equal(t, 200.0, metrics.RecentEvent.Revenue)
	assert.InDelta(t, 50.0, metrics.RecentEvent.Payout, 1e-9)

	require.Len(t, metrics.PastEvents, 1)
	assert.Equal(t, "e1", metrics.PastEvents[0].EventID)
	assert.Equal(t, 2, metrics.PastEvents[0].TicketsSold)
	assert.Equal(t, 100.0, metrics.PastEvents[0].Revenue)
	assert.InDelta(t, 25.0, metrics.PastEvents[0].Payout, 1e-9)

	// Tickets across recent+past equal the line items of qualifying orders
	// whose event resolves.
	total := metrics.RecentEvent.TicketsSold
	for _, em := range metrics.PastEvents {
		total += em.TicketsSold
	}
	assert.Equal(t, 3, total)
}

func TestGetOwnerMetricsEmptyStore(t *testing.T) {
	analytics, _ := newTestAnalytics(t)

	metrics, err := analytics.GetOwnerMetrics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Zero(t, metrics.TotalTicketsSold)
	assert.Zero(t, metrics.TotalGrossRevenue)
	assert.Zero(t, metrics.TotalCommissionPaid)
	assert.Zero(t, metrics.ActivePromoters)
	assert.Zero(t, metrics.RevenueChange)
	assert.Nil(t, metrics.RecentEvent)
	assert.Empty(t, metrics.PastEvents)
}

func TestGetOwnerMetricsRevenueChange(t *testing.T) {
	analytics, repo := newTestAnalytics(t)
	ctx := context.Background()

	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e1", Status: models.EventStatusCompleted, TotalRevenue: 200,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e2", Status: models.EventStatusCompleted, TotalRevenue: 300,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	// Upcoming events never participate in the comparison.
	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e3", Status: models.EventStatusUpcoming, TotalRevenue: 999,
		StartDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}))

	metrics, err := analytics.GetOwnerMetrics(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, metrics.RevenueChange, 1e-9)
}

func TestGetOwnerMetricsRevenueChangeZeroBaseline(t *testing.T) {
	analytics, repo := newTestAnalytics(t)
	ctx := context.Background()

	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e1", Status: models.EventStatusCompleted, TotalRevenue: 0,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e2", Status: models.EventStatusCompleted, TotalRevenue: 300,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	metrics, err := analytics.GetOwnerMetrics(ctx)
	require.NoError(t, err)
	assert.Zero(t, metrics.RevenueChange)
}

func TestGetOwnerMetricsRevenueChangeSingleCompletedEvent(t *testing.T) {
	analytics, repo := newTestAnalytics(t)
	ctx := context.Background()

	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e1", Status: models.EventStatusCompleted, TotalRevenue: 300,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	metrics, err := analytics.GetOwnerMetrics(ctx)
	require.NoError(t, err)
	assert.Zero(t, metrics.RevenueChange)
}

func TestGetOwnerMetricsRollup(t *testing.T) {
	analytics, repo := newTestAnalytics(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPromoter(ctx, &models.Promoter{
		ID: "p1", TrackingLink: "link-1", CommissionRate: 0.30, TotalTicketsSold: 60,
	}))
	require.NoError(t, repo.AddPromoter(ctx, &models.Promoter{
		ID: "p2", TrackingLink: "link-2", CommissionRate: 0.20, TotalTicketsSold: 0,
	}))
	require.NoError(t, repo.AddEvent(ctx, &models.Event{
		ID: "e1", Name: "Gala", StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))

	orders := []models.Order{
		{OrderNumber: "B-1", EventID: "e1", PromoterID: "p1", Subtotal: 100,
			Items: []models.OrderItem{{ItemID: "t1"}, {ItemID: "t2"}}},
		// Direct sale: counts toward tickets and revenue, no commission.
		{OrderNumber: "B-2", EventID: "e1", Subtotal: 40,
			Items: []models.OrderItem{{ItemID: "t3"}}},
		// Dangling promoter reference: still counts toward tickets/revenue.
		{OrderNumber: "B-3", EventID: "e1", PromoterID: "ghost", Subtotal: 60,
			Items: []models.OrderItem{{ItemID: "t4"}}},
		// Flagged orders are invisible to every aggregate.
		{OrderNumber: "B-4", EventID: "e1", PromoterID: "p1", Subtotal: 500,
			Items: []models.OrderItem{{ItemID: "t5"}}, Refunded: true},
	}
	for i := range orders {
		require.NoError(t, repo.AddOrder(ctx, &orders[i]))
	}

	metrics, err := analytics.GetOwnerMetrics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, metrics.TotalTicketsSold)
	assert.Equal(t, 200.0, metrics.TotalGrossRevenue)
	assert.InDelta(t, 30.0, metrics.TotalCommissionPaid, 1e-9)
	assert.Equal(t, 1, metrics.ActivePromoters)

	require.NotNil(t, metrics.RecentEvent)
	assert.Equal(t, "e1", metrics.RecentEvent.EventID)
	assert.Equal(t, 4, metrics.RecentEvent.TicketsSold)
	assert.Equal(t, 200.0, metrics.RecentEvent.Revenue)
	assert.Empty(t, metrics.PastEvents)
}
