package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	promotersFile   = "promoters.json"
	eventsFile      = "events.json"
	ordersFile      = "orders.json"
	webhookLogsFile = "webhook-logs.json"
)

// FileStore keeps each collection as a whole-file JSON array under a data
// directory. Every mutation is a full read-modify-write rewrite of the
// collection file. There is no locking: overlapping writers to the same
// collection can lose an update, an accepted limitation at this tool's load.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a file-backed repository rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir, logger: util.GetLogger()}, nil
}

// Close is a no-op; files are opened per operation.
func (s *FileStore) Close() error {
	return nil
}

// readCollection loads a collection file into out. A missing or unreadable
// file degrades to an empty collection instead of an error.
func (s *FileStore) readCollection(name string, out interface{}) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read collection, treating as empty",
				zap.String("collection", name), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("Failed to parse collection, treating as empty",
			zap.String("collection", name), zap.Error(err))
	}
}

func (s *FileStore) writeCollection(name string, in interface{}) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) readPromoters() []models.Promoter {
	promoters := []models.Promoter{}
	s.readCollection(promotersFile, &promoters)
	return promoters
}

// GetPromoters retrieves all promoters
func (s *FileStore) GetPromoters(ctx context.Context) ([]models.Promoter, error) {
	return s.readPromoters(), nil
}

// GetPromoterByID retrieves a promoter by ID
func (s *FileStore) GetPromoterByID(ctx context.Context, id string) (*models.Promoter, error) {
	for _, p := range s.readPromoters() {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

// GetPromoterByTrackingLink retrieves a promoter by tracking link
func (s *FileStore) GetPromoterByTrackingLink(ctx context.Context, trackingLink string) (*models.Promoter, error) {
	for _, p := range s.readPromoters() {
		if p.TrackingLink == trackingLink {
			return &p, nil
		}
	}
	return nil, nil
}

// AddPromoter appends a promoter and rewrites the collection
func (s *FileStore) AddPromoter(ctx context.Context, promoter *models.Promoter) error {
	if promoter.ID == "" {
		promoter.ID = uuid.New().String()
	}
	promoters := append(s.readPromoters(), *promoter)
	return s.writeCollection(promotersFile, promoters)
}

// UpdatePromoter replaces a promoter in place by ID
func (s *FileStore) UpdatePromoter(ctx context.Context, promoter *models.Promoter) error {
	promoters := s.readPromoters()
	for i := range promoters {
		if promoters[i].ID == promoter.ID {
			promoters[i] = *promoter
			return s.writeCollection(promotersFile, promoters)
		}
	}
	return fmt.Errorf("promoter not found: %s", promoter.ID)
}

// ReplacePromoters rewrites the whole promoter collection
func (s *FileStore) ReplacePromoters(ctx context.Context, promoters []models.Promoter) error {
	return s.writeCollection(promotersFile, promoters)
}

func (s *FileStore) readEvents() []models.Event {
	events := []models.Event{}
	s.readCollection(eventsFile, &events)
	return events
}

// GetEvents retrieves all events
func (s *FileStore) GetEvents(ctx context.Context) ([]models.Event, error) {
	return s.readEvents(), nil
}

// GetEventByID retrieves an event by ID
func (s *FileStore) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	for _, e := range s.readEvents() {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, nil
}

// AddEvent appends an event and rewrites the collection
func (s *FileStore) AddEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	events := append(s.readEvents(), *event)
	return s.writeCollection(eventsFile, events)
}

// UpdateEvent replaces an event in place by ID
func (s *FileStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	events := s.readEvents()
	for i := range events {
		if events[i].ID == event.ID {
			events[i] = *event
			return s.writeCollection(eventsFile, events)
		}
	}
	return fmt.Errorf("event not found: %s", event.ID)
}

func (s *FileStore) readOrders() []models.Order {
	orders := []models.Order{}
	s.readCollection(ordersFile, &orders)
	return orders
}

// GetOrders retrieves all orders
func (s *FileStore) GetOrders(ctx context.Context) ([]models.Order, error) {
	return s.readOrders(), nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *FileStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	for _, o := range s.readOrders() {
		if o.OrderNumber == orderNumber {
			return &o, nil
		}
	}
	return nil, nil
}

// GetOrdersByPromoter retrieves a promoter's orders, excluding cancelled
// and refunded ones
func (s *FileStore) GetOrdersByPromoter(ctx context.Context, promoterID string) ([]models.Order, error) {
	orders := []models.Order{}
	for _, o := range s.readOrders() {
		if o.PromoterID == promoterID && !o.Cancelled && !o.Refunded {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// AddOrder appends an order and rewrites the collection
func (s *FileStore) AddOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	orders := append(s.readOrders(), *order)
	return s.writeCollection(ordersFile, orders)
}

// UpdateOrder replaces an order in place by ID
func (s *FileStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	orders := s.readOrders()
	for i := range orders {
		if orders[i].ID == order.ID {
			orders[i] = *order
			return s.writeCollection(ordersFile, orders)
		}
	}
	return fmt.Errorf("order not found: %s", order.ID)
}

func (s *FileStore) readWebhookLogs() []models.WebhookLog {
	logs := []models.WebhookLog{}
	s.readCollection(webhookLogsFile, &logs)
	return logs
}

// GetWebhookLogs retrieves the retained webhook log entries, most recent first
func (s *FileStore) GetWebhookLogs(ctx context.Context) ([]models.WebhookLog, error) {
	return s.readWebhookLogs(), nil
}

// AddWebhookLog prepends a log entry, evicting the oldest beyond the
// retention cap
func (s *FileStore) AddWebhookLog(ctx context.Context, entry *models.WebhookLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	logs := append([]models.WebhookLog{*entry}, s.readWebhookLogs()...)
	if len(logs) > WebhookLogRetention {
		logs = logs[:WebhookLogRetention]
	}
	return s.writeCollection(webhookLogsFile, logs)
}
