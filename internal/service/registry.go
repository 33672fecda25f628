package service

import (
	"context"
	"fmt"
	"time"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/store"
	"promoter-dashboard/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistryService manages the reference data the rollups join against:
// promoters and events.
type RegistryService struct {
	store  store.Repository
	logger *zap.Logger
}

// NewRegistryService creates a new registry service.
func NewRegistryService(repo store.Repository) *RegistryService {
	return &RegistryService{
		store:  repo,
		logger: util.GetLogger(),
	}
}

// RegisterPromoterRequest is the payload for registering a promoter.
type RegisterPromoterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone,omitempty"`
	TrackingLink string `json:"tracking_link,omitempty"`
}

// RegisterPromoter creates a promoter with a generated tracking link when
// none is supplied. New promoters start at the bottom tier.
func (s *RegistryService) RegisterPromoter(ctx context.Context, req *RegisterPromoterRequest) (*models.Promoter, error) {
	ctx, span := util.StartSpan(ctx, "RegistryService.RegisterPromoter")
	defer span.End()

	trackingLink := req.TrackingLink
	if trackingLink == "" {
		trackingLink = uuid.New().String()
	}

	existing, err := s.store.GetPromoterByTrackingLink(ctx, trackingLink)
	if err != nil {
		return nil, fmt.Errorf("failed to check tracking link: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("tracking link already in use: %s", trackingLink)
	}

	tier, rate := CalculateTier(0)
	promoter := &models.Promoter{
		ID:             uuid.New().String(),
		TrackingLink:   trackingLink,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Tier:           tier,
		CommissionRate: rate,
		CreatedAt:      time.Now(),
	}

	if err := s.store.AddPromoter(ctx, promoter); err != nil {
		return nil, fmt.Errorf("failed to add promoter: %w", err)
	}

	s.logger.Info("Promoter registered",
		zap.String("promoter_id", promoter.ID),
		zap.String("tracking_link", promoter.TrackingLink))
	return promoter, nil
}

// CreateEventRequest is the payload for creating an event.
type CreateEventRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	Status    string    `json:"status,omitempty"`
	IsCurrent bool      `json:"is_current,omitempty"`
}

// CreateEvent creates a ticketed event that sale webhooks can reference.
func (s *RegistryService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*models.Event, error) {
	ctx, span := util.StartSpan(ctx, "RegistryService.CreateEvent")
	defer span.End()

	status := req.Status
	if status == "" {
		status = models.EventStatusUpcoming
	}

	event := &models.Event{
		ID:        uuid.New().String(),
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    status,
		IsCurrent: req.IsCurrent,
	}

	if err := s.store.AddEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to add event: %w", err)
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID),
		zap.String("name", event.Name))
	return event, nil
}

// ListPromoters returns all promoters.
func (s *RegistryService) ListPromoters(ctx context.Context) ([]models.Promoter, error) {
	return s.store.GetPromoters(ctx)
}

// ListEvents returns all events.
func (s *RegistryService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.store.GetEvents(ctx)
}
