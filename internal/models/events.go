package models

import "time"

// Broker event types
const (
	EventTypeSaleRecorded = "SALE_RECORDED"
	EventTypeOrderFlagged = "ORDER_FLAGGED"
)

// BaseEvent contains common fields for all broker events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleRecordedEvent is published after a sale webhook is ingested
type SaleRecordedEvent struct {
	BaseEvent
	OrderNumber   string  `json:"order_number"`
	PromoterID    string  `json:"promoter_id,omitempty"`
	TicketEventID string  `json:"ticket_event_id"`
	Tickets       int     `json:"tickets"`
	Subtotal      float64 `json:"subtotal"`
}

// OrderFlaggedEvent is published when a cancel/refund webhook flags an order
type OrderFlaggedEvent struct {
	BaseEvent
	OrderNumber string `json:"order_number"`
	Flag        string `json:"flag"`
}
