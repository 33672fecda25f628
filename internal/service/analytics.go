package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/redisclient"
	"promoter-dashboard/internal/store"
	"promoter-dashboard/internal/util"

	"go.uber.org/zap"
)

// Commission tier thresholds, inclusive lower bounds on lifetime tickets sold
const (
	tierPlatinumMin = 100
	tierGoldMin     = 50
	tierSilverMin   = 25
)

// Cache keys for computed rollups
const (
	CacheKeyOwnerMetrics    = "metrics:owner"
	cacheKeyPromoterMetrics = "metrics:promoter:%s"
)

// PromoterCacheKey returns the rollup cache key for a tracking link.
func PromoterCacheKey(trackingLink string) string {
	return fmt.Sprintf(cacheKeyPromoterMetrics, trackingLink)
}

// CalculateTier maps a lifetime ticket count to a commission tier and rate.
// Thresholds are inclusive lower bounds evaluated highest-first.
func CalculateTier(ticketsSold int) (string, float64) {
	switch {
	case ticketsSold >= tierPlatinumMin:
		return models.TierPlatinum, 0.35
	case ticketsSold >= tierGoldMin:
		return models.TierGold, 0.30
	case ticketsSold >= tierSilverMin:
		return models.TierSilver, 0.25
	default:
		return models.TierBronze, 0.20
	}
}

// AnalyticsService computes the dashboard rollups by joining orders against
// promoters and events.
type AnalyticsService struct {
	store  store.Repository
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewAnalyticsService creates a new analytics service. cache may be a
// disabled client.
func NewAnalyticsService(repo store.Repository, cache *redisclient.Client) *AnalyticsService {
	return &AnalyticsService{
		store:  repo,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// RecalculateRankings reads all promoters, sorts them descending by lifetime
// tickets sold and persists rank 1..N in one collection rewrite. The sort is
// stable, so ties keep the order the store returned them in.
func (s *AnalyticsService) RecalculateRankings(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "AnalyticsService.RecalculateRankings")
	defer span.End()

	start := time.Now()
	defer func() {
		util.RankingRecalcDuration.Observe(time.Since(start).Seconds())
	}()

	promoters, err := s.store.GetPromoters(ctx)
	if err != nil {
		return fmt.Errorf("failed to load promoters: %w", err)
	}

	sort.SliceStable(promoters, func(i, j int) bool {
		return promoters[i].TotalTicketsSold > promoters[j].TotalTicketsSold
	})
	for i := range promoters {
		promoters[i].Rank = i + 1
	}

	if err := s.store.ReplacePromoters(ctx, promoters); err != nil {
		return fmt.Errorf("failed to persist rankings: %w", err)
	}

	util.RankingRecalcTotal.Inc()
	s.logger.Info("Rankings recalculated", zap.Int("promoters", len(promoters)))
	return nil
}

// GetPromoterMetrics computes the per-promoter rollup. A nil result means
// the tracking link is unknown; that is not an error.
func (s *AnalyticsService) GetPromoterMetrics(ctx context.Context, trackingLink string) (*models.PromoterMetrics, error) {
	ctx, span := util.StartSpan(ctx, "AnalyticsService.GetPromoterMetrics")
	defer span.End()

	cacheKey := PromoterCacheKey(trackingLink)
	var cached models.PromoterMetrics
	if hit, _ := s.cache.GetJSON(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	promoter, err := s.store.GetPromoterByTrackingLink(ctx, trackingLink)
	if err != nil {
		return nil, fmt.Errorf("failed to look up promoter: %w", err)
	}
	if promoter == nil {
		return nil, nil
	}

	orders, err := s.store.GetOrdersByPromoter(ctx, promoter.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load promoter orders: %w", err)
	}

	eventsByID, err := s.eventsByID(ctx)
	if err != nil {
		return nil, err
	}

	rate := promoter.CommissionRate
	breakdown := s.rollupByEvent(orders, eventsByID, func(models.Order) float64 { return rate })
	recent, past := splitRecent(breakdown)

	// Top-level totals come from the promoter's running counters, not from
	// the order scan; the two can diverge when counters were updated
	// independently of the order history.
	metrics := &models.PromoterMetrics{
		PromoterID:            promoter.ID,
		Name:                  promoter.Name,
		TrackingLink:          promoter.TrackingLink,
		Tier:                  promoter.Tier,
		CommissionRate:        promoter.CommissionRate,
		Rank:                  promoter.Rank,
		TotalTicketsSold:      promoter.TotalTicketsSold,
		TotalRevenueGenerated: promoter.TotalRevenueGenerated,
		TotalCommissionEarned: promoter.TotalCommissionEarned,
		RecentEvent:           recent,
		PastEvents:            past,
	}

	if err := s.cache.SetJSON(ctx, cacheKey, metrics); err != nil {
		s.logger.Warn("Failed to cache promoter metrics", zap.Error(err))
	}
	return metrics, nil
}

// GetOwnerMetrics computes the owner-wide rollup. It is always computable
// and degenerates to zeros when there is no data.
func (s *AnalyticsService) GetOwnerMetrics(ctx context.Context) (*models.OwnerMetrics, error) {
	ctx, span := util.StartSpan(ctx, "AnalyticsService.GetOwnerMetrics")
	defer span.End()

	var cached models.OwnerMetrics
	if hit, _ := s.cache.GetJSON(ctx, CacheKeyOwnerMetrics, &cached); hit {
		return &cached, nil
	}

	allOrders, err := s.store.GetOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	orders := make([]models.Order, 0, len(allOrders))
	for _, o := range allOrders {
		if !o.Cancelled && !o.Refunded {
			orders = append(orders, o)
		}
	}

	promoters, err := s.store.GetPromoters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load promoters: %w", err)
	}
	promotersByID := make(map[string]models.Promoter, len(promoters))
	activePromoters := 0
	for _, p := range promoters {
		promotersByID[p.ID] = p
		if p.TotalTicketsSold > 0 {
			activePromoters++
		}
	}

	events, err := s.store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	eventsByID := make(map[string]models.Event, len(events))
	for _, e := range events {
		eventsByID[e.ID] = e
	}

	metrics := &models.OwnerMetrics{ActivePromoters: activePromoters}
	for _, o := range orders {
		metrics.TotalTicketsSold += len(o.Items)
		metrics.TotalGrossRevenue += o.Subtotal

		// Commission is recomputed at the promoter's current rate. Orders
		// with no resolvable promoter (direct sales or dangling references)
		// contribute zero.
		if p, ok := promotersByID[o.PromoterID]; ok {
			metrics.TotalCommissionPaid += o.Subtotal * p.CommissionRate
		} else if o.PromoterID != "" {
			util.DanglingPromoterRefsTotal.Inc()
		}
	}

	metrics.RevenueChange = revenueChange(events)

	breakdown := s.rollupByEvent(orders, eventsByID, func(o models.Order) float64 {
		if p, ok := promotersByID[o.PromoterID]; ok {
			return p.CommissionRate
		}
		return 0
	})
	metrics.RecentEvent, metrics.PastEvents = splitRecent(breakdown)

	if err := s.cache.SetJSON(ctx, CacheKeyOwnerMetrics, metrics); err != nil {
		s.logger.Warn("Failed to cache owner metrics", zap.Error(err))
	}
	return metrics, nil
}

func (s *AnalyticsService) eventsByID(ctx context.Context) (map[string]models.Event, error) {
	events, err := s.store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	byID := make(map[string]models.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	return byID, nil
}

// rollupByEvent groups orders by event, accumulating ticket count (one per
// line item), revenue and payout. Orders whose event cannot be resolved are
// skipped; the skip is counted but never reported as an error. The result is
// sorted descending by event start date.
func (s *AnalyticsService) rollupByEvent(orders []models.Order, eventsByID map[string]models.Event, rateFor func(models.Order) float64) []models.EventMetrics {
	grouped := make(map[string]*models.EventMetrics)
	for _, o := range orders {
		event, ok := eventsByID[o.EventID]
		if !ok {
			util.DanglingEventRefsTotal.Inc()
			continue
		}

		em, ok := grouped[o.EventID]
		if !ok {
			em = &models.EventMetrics{
				EventID:   event.ID,
				EventName: event.Name,
				StartDate: event.StartDate,
				Status:    event.Status,
			}
			grouped[o.EventID] = em
		}

		em.TicketsSold += len(o.Items)
		em.Revenue += o.Subtotal
		em.Payout += o.Subtotal * rateFor(o)
	}

	breakdown := make([]models.EventMetrics, 0, len(grouped))
	for _, em := range grouped {
		breakdown = append(breakdown, *em)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].StartDate.After(breakdown[j].StartDate)
	})
	return breakdown
}

// splitRecent peels the most recent event off a start-date-descending
// breakdown.
func splitRecent(breakdown []models.EventMetrics) (*models.EventMetrics, []models.EventMetrics) {
	if len(breakdown) == 0 {
		return nil, []models.EventMetrics{}
	}
	return &breakdown[0], breakdown[1:]
}

// revenueChange compares the two most recently started completed events and
// returns the percentage change of the newer over the older. Fewer than two
// completed events, or an older revenue of zero, yields 0.
func revenueChange(events []models.Event) float64 {
	completed := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.Status == models.EventStatusCompleted {
			completed = append(completed, e)
		}
	}
	if len(completed) < 2 {
		return 0
	}

	sort.Slice(completed, func(i, j int) bool {
		return completed[i].StartDate.After(completed[j].StartDate)
	})

	last, prev := completed[0].TotalRevenue, completed[1].TotalRevenue
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}
