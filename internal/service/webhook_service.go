package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/redisclient"
	"promoter-dashboard/internal/store"
	"promoter-dashboard/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Webhook notification types sent by the ticketing platform
const (
	WebhookTypeOrderCreated   = "order.created"
	WebhookTypeOrderCancelled = "order.cancelled"
	WebhookTypeOrderRefunded  = "order.refunded"
)

var (
	ErrDuplicateOrder  = errors.New("duplicate order")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrUnknownOrder    = errors.New("unknown order")
	ErrUnsupportedType = errors.New("unsupported webhook type")
)

// WebhookPayload is a ticket-sale notification from the ticketing platform.
type WebhookPayload struct {
	Type          string             `json:"type"`
	OrderNumber   string             `json:"order_number" binding:"required"`
	EventID       string             `json:"event_id"`
	TrackingLink  string             `json:"tracking_link,omitempty"`
	BuyerName     string             `json:"buyer_name"`
	BuyerEmail    string             `json:"buyer_email"`
	BuyerPhone    string             `json:"buyer_phone,omitempty"`
	Items         []models.OrderItem `json:"items"`
	Subtotal      float64            `json:"subtotal"`
	Total         float64            `json:"total"`
	DatePurchased time.Time          `json:"date_purchased"`
}

// EventPublisher publishes domain events after ingest. A nil publisher
// disables eventing.
type EventPublisher interface {
	PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error
	PublishOrderFlagged(ctx context.Context, event *models.OrderFlaggedEvent) error
}

// WebhookService ingests ticket-sale notifications: it persists orders,
// keeps promoter and event running counters current, appends webhook logs
// and publishes sale events.
type WebhookService struct {
	store     store.Repository
	cache     *redisclient.Client
	publisher EventPublisher
	logger    *zap.Logger
}

// NewWebhookService creates a new webhook ingestion service.
func NewWebhookService(repo store.Repository, cache *redisclient.Client, publisher EventPublisher) *WebhookService {
	return &WebhookService{
		store:     repo,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ProcessWebhook handles one inbound notification. Every attempt, failed or
// not, leaves a webhook log entry; processing failures are returned so the
// handler can answer with a meaningful status.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload *WebhookPayload, raw []byte) error {
	ctx, span := util.StartSpan(ctx, "WebhookService.ProcessWebhook")
	defer span.End()

	if payload.Type == "" {
		payload.Type = WebhookTypeOrderCreated
	}
	util.WebhooksReceivedTotal.WithLabelValues(payload.Type).Inc()

	switch payload.Type {
	case WebhookTypeOrderCreated:
		return s.processSale(ctx, payload, raw)
	case WebhookTypeOrderCancelled:
		return s.processFlag(ctx, payload, raw, "cancelled")
	case WebhookTypeOrderRefunded:
		return s.processFlag(ctx, payload, raw, "refunded")
	default:
		util.WebhooksFailedTotal.WithLabelValues("unsupported_type").Inc()
		s.logWebhook(ctx, payload, raw, "", false, fmt.Sprintf("unsupported webhook type: %s", payload.Type))
		return fmt.Errorf("%w: %s", ErrUnsupportedType, payload.Type)
	}
}

func (s *WebhookService) processSale(ctx context.Context, payload *WebhookPayload, raw []byte) error {
	existing, err := s.store.GetOrderByNumber(ctx, payload.OrderNumber)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate order: %w", err)
	}
	if existing != nil {
		util.WebhooksDuplicateTotal.Inc()
		s.logger.Info("Duplicate sale webhook ignored",
			zap.String("order_number", payload.OrderNumber))
		s.logWebhook(ctx, payload, raw, existing.PromoterID, false, "duplicate order")
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, payload.OrderNumber)
	}

	event, err := s.store.GetEventByID(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("failed to look up event: %w", err)
	}
	if event == nil {
		util.WebhooksFailedTotal.WithLabelValues("unknown_event").Inc()
		s.logWebhook(ctx, payload, raw, "", false, fmt.Sprintf("unknown event: %s", payload.EventID))
		return fmt.Errorf("%w: %s", ErrUnknownEvent, payload.EventID)
	}

	// No promoter match means a direct sale, not an error.
	var promoter *models.Promoter
	if payload.TrackingLink != "" {
		promoter, err = s.store.GetPromoterByTrackingLink(ctx, payload.TrackingLink)
		if err != nil {
			return fmt.Errorf("failed to look up promoter: %w", err)
		}
	}

	order := &models.Order{
		ID:            uuid.New().String(),
		OrderNumber:   payload.OrderNumber,
		EventID:       payload.EventID,
		TrackingLink:  payload.TrackingLink,
		BuyerName:     payload.BuyerName,
		BuyerEmail:    payload.BuyerEmail,
		BuyerPhone:    payload.BuyerPhone,
		Items:         payload.Items,
		Subtotal:      payload.Subtotal,
		Total:         payload.Total,
		DatePurchased: payload.DatePurchased,
	}
	if order.DatePurchased.IsZero() {
		order.DatePurchased = time.Now()
	}

	tickets := len(payload.Items)
	if promoter != nil {
		order.PromoterID = promoter.ID
		// Snapshot commission at today's rate; the rollups recompute it
		// later at whatever the promoter's rate is then.
		order.CommissionEarned = payload.Subtotal * promoter.CommissionRate
	}

	if err := s.store.AddOrder(ctx, order); err != nil {
		util.WebhooksFailedTotal.WithLabelValues("store_error").Inc()
		s.logWebhook(ctx, payload, raw, order.PromoterID, false, err.Error())
		return fmt.Errorf("failed to persist order: %w", err)
	}

	if promoter != nil {
		promoter.TotalTicketsSold += tickets
		promoter.TotalRevenueGenerated += payload.Subtotal
		promoter.TotalCommissionEarned += order.CommissionEarned
		promoter.Tier, promoter.CommissionRate = CalculateTier(promoter.TotalTicketsSold)

		if err := s.store.UpdatePromoter(ctx, promoter); err != nil {
			util.WebhooksFailedTotal.WithLabelValues("store_error").Inc()
			s.logWebhook(ctx, payload, raw, promoter.ID, false, err.Error())
			return fmt.Errorf("failed to update promoter counters: %w", err)
		}
	}

	event.TotalTicketsSold += tickets
	event.TotalRevenue += payload.Subtotal
	if err := s.store.UpdateEvent(ctx, event); err != nil {
		util.WebhooksFailedTotal.WithLabelValues("store_error").Inc()
		s.logWebhook(ctx, payload, raw, order.PromoterID, false, err.Error())
		return fmt.Errorf("failed to update event counters: %w", err)
	}

	s.logWebhook(ctx, payload, raw, order.PromoterID, true, "")
	util.OrdersIngestedTotal.Inc()
	s.logger.Info("Sale ingested",
		zap.String("order_number", order.OrderNumber),
		zap.String("event_id", order.EventID),
		zap.Int("tickets", tickets))

	if s.publisher != nil {
		saleEvent := &models.SaleRecordedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeSaleRecorded,
				Timestamp: time.Now(),
			},
			OrderNumber:   order.OrderNumber,
			PromoterID:    order.PromoterID,
			TicketEventID: order.EventID,
			Tickets:       tickets,
			Subtotal:      order.Subtotal,
		}
		if err := s.publisher.PublishSaleRecorded(ctx, saleEvent); err != nil {
			s.logger.Error("Failed to publish SaleRecorded event", zap.Error(err))
		}
	}

	s.invalidateRollups(ctx, payload.TrackingLink)
	return nil
}

func (s *WebhookService) processFlag(ctx context.Context, payload *WebhookPayload, raw []byte, flag string) error {
	order, err := s.store.GetOrderByNumber(ctx, payload.OrderNumber)
	if err != nil {
		return fmt.Errorf("failed to look up order: %w", err)
	}
	if order == nil {
		util.WebhooksFailedTotal.WithLabelValues("unknown_order").Inc()
		s.logWebhook(ctx, payload, raw, "", false, fmt.Sprintf("unknown order: %s", payload.OrderNumber))
		return fmt.Errorf("%w: %s", ErrUnknownOrder, payload.OrderNumber)
	}

	// Flags only. Running counters are lifetime values and stay untouched;
	// the rollups already exclude flagged orders.
	switch flag {
	case "cancelled":
		order.Cancelled = true
	case "refunded":
		order.Refunded = true
	}

	if err := s.store.UpdateOrder(ctx, order); err != nil {
		util.WebhooksFailedTotal.WithLabelValues("store_error").Inc()
		s.logWebhook(ctx, payload, raw, order.PromoterID, false, err.Error())
		return fmt.Errorf("failed to flag order: %w", err)
	}

	s.logWebhook(ctx, payload, raw, order.PromoterID, true, "")
	util.OrdersFlaggedTotal.WithLabelValues(flag).Inc()
	s.logger.Info("Order flagged",
		zap.String("order_number", order.OrderNumber),
		zap.String("flag", flag))

	if s.publisher != nil {
		flaggedEvent := &models.OrderFlaggedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderFlagged,
				Timestamp: time.Now(),
			},
			OrderNumber: order.OrderNumber,
			Flag:        flag,
		}
		if err := s.publisher.PublishOrderFlagged(ctx, flaggedEvent); err != nil {
			s.logger.Error("Failed to publish OrderFlagged event", zap.Error(err))
		}
	}

	s.invalidateRollups(ctx, order.TrackingLink)
	return nil
}

// logWebhook appends an audit entry for the attempt. Log-write failures are
// reported but never fail the ingest.
func (s *WebhookService) logWebhook(ctx context.Context, payload *WebhookPayload, raw []byte, promoterID string, success bool, errorMessage string) {
	entry := &models.WebhookLog{
		Timestamp:    time.Now(),
		Type:         payload.Type,
		OrderNumber:  payload.OrderNumber,
		PromoterID:   promoterID,
		EventID:      payload.EventID,
		Success:      success,
		ErrorMessage: errorMessage,
		RawData:      string(raw),
	}
	if err := s.store.AddWebhookLog(ctx, entry); err != nil {
		s.logger.Error("Failed to write webhook log", zap.Error(err))
	}
}

func (s *WebhookService) invalidateRollups(ctx context.Context, trackingLink string) {
	keys := []string{CacheKeyOwnerMetrics}
	if trackingLink != "" {
		keys = append(keys, PromoterCacheKey(trackingLink))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate rollup cache", zap.Error(err))
	}
}

// ListOrders returns the raw order collection for admin pages.
func (s *WebhookService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.GetOrders(ctx)
}

// ListWebhookLogs returns the retained webhook logs, most recent first.
func (s *WebhookService) ListWebhookLogs(ctx context.Context) ([]models.WebhookLog, error) {
	return s.store.GetWebhookLogs(ctx)
}
