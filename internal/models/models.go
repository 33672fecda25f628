package models

import "time"

// Promoter tiers
const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

// Event statuses, set by the ticketing platform
const (
	EventStatusUpcoming  = "upcoming"
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
)

// Promoter represents an affiliate who drives ticket sales via a tracking link
type Promoter struct {
	ID                    string    `db:"id" json:"id"`
	TrackingLink          string    `db:"tracking_link" json:"tracking_link"`
	Name                  string    `db:"name" json:"name"`
	Email                 string    `db:"email" json:"email"`
	Phone                 string    `db:"phone" json:"phone,omitempty"`
	TotalTicketsSold      int       `db:"total_tickets_sold" json:"total_tickets_sold"`
	TotalRevenueGenerated float64   `db:"total_revenue_generated" json:"total_revenue_generated"`
	TotalCommissionEarned float64   `db:"total_commission_earned" json:"total_commission_earned"`
	Tier                  string    `db:"tier" json:"tier"`
	CommissionRate        float64   `db:"commission_rate" json:"commission_rate"`
	Rank                  int       `db:"rank" json:"rank"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// Event represents a ticketed event
type Event struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	Status           string    `db:"status" json:"status"`
	TotalTicketsSold int       `db:"total_tickets_sold" json:"total_tickets_sold"`
	TotalRevenue     float64   `db:"total_revenue" json:"total_revenue"`
	IsCurrent        bool      `db:"is_current" json:"is_current"`
}

// Order represents a ticket sale delivered by the ticketing platform.
// PromoterID is empty for direct sales. CommissionEarned is a snapshot at
// sale time; the rollups recompute commission at the promoter's current rate.
type Order struct {
	ID               string      `db:"id" json:"id"`
	OrderNumber      string      `db:"order_number" json:"order_number"`
	EventID          string      `db:"event_id" json:"event_id"`
	PromoterID       string      `db:"promoter_id" json:"promoter_id,omitempty"`
	TrackingLink     string      `db:"tracking_link" json:"tracking_link,omitempty"`
	BuyerName        string      `db:"buyer_name" json:"buyer_name"`
	BuyerEmail       string      `db:"buyer_email" json:"buyer_email"`
	BuyerPhone       string      `db:"buyer_phone" json:"buyer_phone,omitempty"`
	Items            []OrderItem `json:"items"`
	Subtotal         float64     `db:"subtotal" json:"subtotal"`
	Total            float64     `db:"total" json:"total"`
	DatePurchased    time.Time   `db:"date_purchased" json:"date_purchased"`
	Cancelled        bool        `db:"cancelled" json:"cancelled"`
	Refunded         bool        `db:"refunded" json:"refunded"`
	CommissionEarned float64     `db:"commission_earned" json:"commission_earned"`
}

// OrderItem is one ticket line on an order. Each item counts as one ticket.
type OrderItem struct {
	ItemID string  `db:"item_id" json:"item_id"`
	Name   string  `db:"name" json:"name"`
	Price  float64 `db:"price" json:"price"`
}

// WebhookLog is an append-only record of an inbound notification attempt.
// The store retains only the 100 most recent entries.
type WebhookLog struct {
	ID           string    `db:"id" json:"id"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	Type         string    `db:"type" json:"type"`
	OrderNumber  string    `db:"order_number" json:"order_number"`
	PromoterID   string    `db:"promoter_id" json:"promoter_id,omitempty"`
	EventID      string    `db:"event_id" json:"event_id"`
	Success      bool      `db:"success" json:"success"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	RawData      string    `db:"raw_data" json:"raw_data,omitempty"`
}

// EventMetrics is one event's slice of a promoter or owner rollup
type EventMetrics struct {
	EventID     string    `json:"event_id"`
	EventName   string    `json:"event_name"`
	StartDate   time.Time `json:"start_date"`
	Status      string    `json:"status"`
	TicketsSold int       `json:"tickets_sold"`
	Revenue     float64   `json:"revenue"`
	Payout      float64   `json:"payout"`
}

// PromoterMetrics is the dashboard view model for a single promoter
type PromoterMetrics struct {
	PromoterID            string         `json:"promoter_id"`
	Name                  string         `json:"name"`
	TrackingLink          string         `json:"tracking_link"`
	Tier                  string         `json:"tier"`
	CommissionRate        float64        `json:"commission_rate"`
	Rank                  int            `json:"rank"`
	TotalTicketsSold      int            `json:"total_tickets_sold"`
	TotalRevenueGenerated float64        `json:"total_revenue_generated"`
	TotalCommissionEarned float64        `json:"total_commission_earned"`
	RecentEvent           *EventMetrics  `json:"recent_event,omitempty"`
	PastEvents            []EventMetrics `json:"past_events"`
}

// OwnerMetrics is the owner-wide dashboard view model
type OwnerMetrics struct {
	TotalTicketsSold    int            `json:"total_tickets_sold"`
	TotalGrossRevenue   float64        `json:"total_gross_revenue"`
	TotalCommissionPaid float64        `json:"total_commission_paid"`
	ActivePromoters     int            `json:"active_promoters"`
	RevenueChange       float64        `json:"revenue_change"`
	RecentEvent         *EventMetrics  `json:"recent_event,omitempty"`
	PastEvents          []EventMetrics `json:"past_events"`
}
