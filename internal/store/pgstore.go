package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"promoter-dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PGStore implements Repository over Postgres for deployments that outgrow
// the flat-file backend.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore connects to Postgres and returns a database-backed repository.
func NewPGStore(databaseURL string) (*PGStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PGStore{db: db}, nil
}

// Close closes the database connection
func (s *PGStore) Close() error {
	return s.db.Close()
}

// GetPromoters retrieves all promoters
func (s *PGStore) GetPromoters(ctx context.Context) ([]models.Promoter, error) {
	promoters := []models.Promoter{}
	err := s.db.SelectContext(ctx, &promoters, "SELECT * FROM promoters ORDER BY created_at")
	return promoters, err
}

// GetPromoterByID retrieves a promoter by ID
func (s *PGStore) GetPromoterByID(ctx context.Context, id string) (*models.Promoter, error) {
	var promoter models.Promoter
	err := s.db.GetContext(ctx, &promoter, "SELECT * FROM promoters WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promoter, nil
}

// GetPromoterByTrackingLink retrieves a promoter by tracking link
func (s *PGStore) GetPromoterByTrackingLink(ctx context.Context, trackingLink string) (*models.Promoter, error) {
	var promoter models.Promoter
	err := s.db.GetContext(ctx, &promoter, "SELECT * FROM promoters WHERE tracking_link = $1", trackingLink)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promoter, nil
}

// AddPromoter inserts a new promoter
func (s *PGStore) AddPromoter(ctx context.Context, promoter *models.Promoter) error {
	if promoter.ID == "" {
		promoter.ID = uuid.New().String()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO promoters (id, tracking_link, name, email, phone,
			total_tickets_sold, total_revenue_generated, total_commission_earned,
			tier, commission_rate, rank, created_at)
		VALUES (:id, :tracking_link, :name, :email, :phone,
			:total_tickets_sold, :total_revenue_generated, :total_commission_earned,
			:tier, :commission_rate, :rank, :created_at)`, promoter)
	return err
}

// UpdatePromoter updates a promoter by ID
func (s *PGStore) UpdatePromoter(ctx context.Context, promoter *models.Promoter) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE promoters SET tracking_link = :tracking_link, name = :name,
			email = :email, phone = :phone,
			total_tickets_sold = :total_tickets_sold,
			total_revenue_generated = :total_revenue_generated,
			total_commission_earned = :total_commission_earned,
			tier = :tier, commission_rate = :commission_rate, rank = :rank
		WHERE id = :id`, promoter)
	return err
}

// ReplacePromoters persists the full promoter set in one transaction
func (s *PGStore) ReplacePromoters(ctx context.Context, promoters []models.Promoter) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range promoters {
		_, err := tx.NamedExecContext(ctx, `
			UPDATE promoters SET total_tickets_sold = :total_tickets_sold,
				total_revenue_generated = :total_revenue_generated,
				total_commission_earned = :total_commission_earned,
				tier = :tier, commission_rate = :commission_rate, rank = :rank
			WHERE id = :id`, &promoters[i])
		if err != nil {
			return fmt.Errorf("failed to update promoter %s: %w", promoters[i].ID, err)
		}
	}

	return tx.Commit()
}

// GetEvents retrieves all events
func (s *PGStore) GetEvents(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.SelectContext(ctx, &events, "SELECT * FROM events ORDER BY start_date")
	return events, err
}

// GetEventByID retrieves an event by ID
func (s *PGStore) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := s.db.GetContext(ctx, &event, "SELECT * FROM events WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// AddEvent inserts a new event
func (s *PGStore) AddEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO events (id, name, start_date, end_date, status,
			total_tickets_sold, total_revenue, is_current)
		VALUES (:id, :name, :start_date, :end_date, :status,
			:total_tickets_sold, :total_revenue, :is_current)`, event)
	return err
}

// UpdateEvent updates an event by ID
func (s *PGStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE events SET name = :name, start_date = :start_date,
			end_date = :end_date, status = :status,
			total_tickets_sold = :total_tickets_sold,
			total_revenue = :total_revenue, is_current = :is_current
		WHERE id = :id`, event)
	return err
}

type orderItemRow struct {
	OrderID string  `db:"order_id"`
	ItemID  string  `db:"item_id"`
	Name    string  `db:"name"`
	Price   float64 `db:"price"`
}

func (s *PGStore) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*models.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?)", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var rows []orderItemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}

	for _, row := range rows {
		if o, ok := byID[row.OrderID]; ok {
			o.Items = append(o.Items, models.OrderItem{
				ItemID: row.ItemID,
				Name:   row.Name,
				Price:  row.Price,
			})
		}
	}
	return nil
}

// GetOrders retrieves all orders with their line items
func (s *PGStore) GetOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY date_purchased DESC")
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *PGStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", orderNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	orders := []models.Order{order}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// GetOrdersByPromoter retrieves a promoter's orders, excluding cancelled
// and refunded ones
func (s *PGStore) GetOrdersByPromoter(ctx context.Context, promoterID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE promoter_id = $1 AND cancelled = FALSE AND refunded = FALSE
		ORDER BY date_purchased DESC`, promoterID)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// AddOrder inserts an order and its line items in one transaction
func (s *PGStore) AddOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, order_number, event_id, promoter_id, tracking_link,
			buyer_name, buyer_email, buyer_phone, subtotal, total,
			date_purchased, cancelled, refunded, commission_earned)
		VALUES (:id, :order_number, :event_id, :promoter_id, :tracking_link,
			:buyer_name, :buyer_email, :buyer_phone, :subtotal, :total,
			:date_purchased, :cancelled, :refunded, :commission_earned)`, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, name, price)
			VALUES ($1, $2, $3, $4)`, order.ID, item.ItemID, item.Name, item.Price)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateOrder updates an order's mutable fields by ID
func (s *PGStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE orders SET cancelled = :cancelled, refunded = :refunded,
			buyer_name = :buyer_name, buyer_email = :buyer_email,
			buyer_phone = :buyer_phone
		WHERE id = :id`, order)
	return err
}

// GetWebhookLogs retrieves the retained webhook log entries, most recent first
func (s *PGStore) GetWebhookLogs(ctx context.Context) ([]models.WebhookLog, error) {
	logs := []models.WebhookLog{}
	err := s.db.SelectContext(ctx, &logs,
		"SELECT * FROM webhook_logs ORDER BY timestamp DESC LIMIT $1", WebhookLogRetention)
	return logs, err
}

// AddWebhookLog inserts a log entry and evicts rows beyond the retention cap
func (s *PGStore) AddWebhookLog(ctx context.Context, entry *models.WebhookLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO webhook_logs (id, timestamp, type, order_number,
			promoter_id, event_id, success, error_message, raw_data)
		VALUES (:id, :timestamp, :type, :order_number,
			:promoter_id, :event_id, :success, :error_message, :raw_data)`, entry)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM webhook_logs WHERE id NOT IN (
			SELECT id FROM webhook_logs ORDER BY timestamp DESC LIMIT $1
		)`, WebhookLogRetention)
	return err
}
