package store

import (
	"context"
	"fmt"

	"promoter-dashboard/internal/models"
)

// WebhookLogRetention caps the webhook log collection at the most recent
// entries; older ones are evicted on overflow.
const WebhookLogRetention = 100

// Repository is the storage contract the rest of the service depends on.
// Single-entity lookups return (nil, nil) when nothing matches; "not found"
// is a valid outcome, not an error.
type Repository interface {
	GetPromoters(ctx context.Context) ([]models.Promoter, error)
	GetPromoterByID(ctx context.Context, id string) (*models.Promoter, error)
	GetPromoterByTrackingLink(ctx context.Context, trackingLink string) (*models.Promoter, error)
	AddPromoter(ctx context.Context, promoter *models.Promoter) error
	UpdatePromoter(ctx context.Context, promoter *models.Promoter) error
	// ReplacePromoters rewrites the whole collection in one shot; the
	// ranking recomputation uses it to persist all ranks together.
	ReplacePromoters(ctx context.Context, promoters []models.Promoter) error

	GetEvents(ctx context.Context) ([]models.Event, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	AddEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event *models.Event) error

	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	// GetOrdersByPromoter returns the promoter's orders excluding cancelled
	// and refunded ones.
	GetOrdersByPromoter(ctx context.Context, promoterID string) ([]models.Order, error)
	AddOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order) error

	// GetWebhookLogs returns the retained log entries, most recent first.
	GetWebhookLogs(ctx context.Context) ([]models.WebhookLog, error)
	AddWebhookLog(ctx context.Context, entry *models.WebhookLog) error

	Close() error
}

// Store drivers
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Open creates the repository backend selected by driver.
func Open(driver, dataDir, databaseURL string) (Repository, error) {
	switch driver {
	case DriverFile:
		return NewFileStore(dataDir)
	case DriverPostgres:
		return NewPGStore(databaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}
