package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// DeliveryWorkflow is the delivery operations the handler exposes
type DeliveryWorkflow interface {
	CreateDelivery(ctx context.Context, d *model.Delivery) (*model.Delivery, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*model.Delivery, error)
}

// DeliveryHandler handles delivery API endpoints
type DeliveryHandler struct {
	deliveries DeliveryWorkflow
	logger     *zap.Logger
	timeout    time.Duration
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveries DeliveryWorkflow, timeout time.Duration, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		deliveries: deliveries,
		logger:     logger.Named("deliveries"),
		timeout:    timeout,
	}
}

// RegisterRoutes registers the delivery API routes
func (h *DeliveryHandler) RegisterRoutes(api gin.IRouter) {
	delivery := api.Group("/delivery")
	{
		delivery.POST("", h.CreateDelivery)
		delivery.PATCH("/:id/status", h.UpdateStatus)
	}
}

// CreateDelivery schedules a delivery for a booking
func (h *DeliveryHandler) CreateDelivery(c *gin.Context) {
	var request model.Delivery
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	request.ID = 0

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	d, err := h.deliveries.CreateDelivery(ctx, &request)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create delivery")
		return
	}

	c.JSON(http.StatusCreated, d)
}

// UpdateStatus changes the status of a delivery
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var request struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	d, err := h.deliveries.UpdateStatus(ctx, id, request.Status)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update delivery status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Delivery status updated",
		"deliveryId": d.ID,
		"bookingId":  d.BookingID,
		"status":     d.Status,
	})
}
