package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"promoter-dashboard/internal/service"
	"promoter-dashboard/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	webhookService *service.WebhookService
	analytics      *service.AnalyticsService
	registry       *service.RegistryService
}

// NewHandler creates a new HTTP handler
func NewHandler(webhookService *service.WebhookService, analytics *service.AnalyticsService, registry *service.RegistryService) *Handler {
	return &Handler{
		webhookService: webhookService,
		analytics:      analytics,
		registry:       registry,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/ticketing", h.receiveWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/metrics/owner", h.getOwnerMetrics)
		v1.GET("/metrics/promoters/:tracking_link", h.getPromoterMetrics)

		v1.GET("/promoters", h.listPromoters)
		v1.POST("/promoters", h.registerPromoter)
		v1.POST("/promoters/recalculate-rankings", h.recalculateRankings)

		v1.GET("/events", h.listEvents)
		v1.POST("/events", h.createEvent)

		v1.GET("/orders", h.listOrders)
		v1.GET("/webhook-logs", h.listWebhookLogs)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// receiveWebhook ingests a ticket-sale notification from the ticketing
// platform. The raw body is preserved in the webhook log.
func (h *Handler) receiveWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	var payload service.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if payload.OrderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_number is required"})
		return
	}

	err = h.webhookService.ProcessWebhook(c.Request.Context(), &payload, raw)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	case errors.Is(err, service.ErrDuplicateOrder):
		// Delivery retries are acknowledged so the platform stops resending.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	case errors.Is(err, service.ErrUnknownEvent), errors.Is(err, service.ErrUnknownOrder):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process webhook",
			"details": err.Error(),
		})
	}
}

// getOwnerMetrics returns the owner-wide rollup
func (h *Handler) getOwnerMetrics(c *gin.Context) {
	metrics, err := h.analytics.GetOwnerMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute owner metrics",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// getPromoterMetrics returns one promoter's rollup by tracking link
func (h *Handler) getPromoterMetrics(c *gin.Context) {
	trackingLink := c.Param("tracking_link")

	metrics, err := h.analytics.GetPromoterMetrics(c.Request.Context(), trackingLink)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute promoter metrics",
			"details": err.Error(),
		})
		return
	}
	if metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promoter not found"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// listPromoters returns all promoters
func (h *Handler) listPromoters(c *gin.Context) {
	promoters, err := h.registry.ListPromoters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promoters": promoters})
}

// registerPromoter creates a new promoter
func (h *Handler) registerPromoter(c *gin.Context) {
	var req service.RegisterPromoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	promoter, err := h.registry.RegisterPromoter(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to register promoter",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, promoter)
}

// recalculateRankings triggers a full ranking recomputation
func (h *Handler) recalculateRankings(c *gin.Context) {
	if err := h.analytics.RecalculateRankings(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to recalculate rankings",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recalculated"})
}

// listEvents returns all events
func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.registry.ListEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// createEvent creates a new ticketed event
func (h *Handler) createEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event, err := h.registry.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create event",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, event)
}

// listOrders returns the raw order collection
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.webhookService.ListOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// listWebhookLogs returns the retained webhook logs, most recent first
func (h *Handler) listWebhookLogs(c *gin.Context) {
	logs, err := h.webhookService.ListWebhookLogs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook_logs": logs})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
