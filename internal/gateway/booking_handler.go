package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// BookingWorkflow is the booking operations the handler exposes
type BookingWorkflow interface {
	CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	Get(ctx context.Context, id int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status string) (model.BookingStatus, error)
	Reschedule(ctx context.Context, id int64, date string) (time.Time, error)
	Delete(ctx context.Context, id int64) error
}

// BookingHandler handles booking API endpoints
type BookingHandler struct {
	bookings BookingWorkflow
	logger   *zap.Logger
	timeout  time.Duration
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingWorkflow, timeout time.Duration, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger.Named("bookings"),
		timeout:  timeout,
	}
}

// RegisterRoutes registers the booking API routes
func (h *BookingHandler) RegisterRoutes(api gin.IRouter) {
	bookings := api.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/status", h.UpdateStatus)
		bookings.PATCH("/:id/date", h.Reschedule)
		bookings.DELETE("/:id", h.Delete)
	}
}

// CreateBooking creates a new booking
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var request struct {
		BookingType string              `json:"bookingType"`
		BookingDate time.Time           `json:"bookingDate"`
		TotalAmount float64             `json:"totalAmount"`
		ShopID      int64               `json:"shopId"`
		ServiceID   int64               `json:"serviceId"`
		CustomerID  int64               `json:"customerId"`
		Status      model.BookingStatus `json:"status"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	booking, err := h.bookings.CreateBooking(ctx, &model.Booking{
		BookingType: request.BookingType,
		BookingDate: request.BookingDate,
		TotalAmount: request.TotalAmount,
		ShopID:      request.ShopID,
		ServiceID:   request.ServiceID,
		CustomerID:  request.CustomerID,
		Status:      request.Status,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// UpdateStatus changes the status of a booking
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
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

	next, err := h.bookings.UpdateStatus(ctx, id, request.Status)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update booking status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Booking status updated",
		"bookingId": id,
		"newStatus": next,
	})
}

// Reschedule changes the date of a booking
func (h *BookingHandler) Reschedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var request struct {
		BookingDate string `json:"bookingDate"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	date, err := h.bookings.Reschedule(ctx, id, request.BookingDate)
	if err != nil {
		respondError(c, h.logger, err, "Failed to reschedule booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Booking rescheduled",
		"bookingId":   id,
		"bookingDate": date.UTC().Format(time.RFC3339),
	})
}

// GetBooking returns one booking
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	booking, err := h.bookings.Get(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// Delete removes a booking and its payments
func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	if err := h.bookings.Delete(ctx, id); err != nil {
		respondError(c, h.logger, err, "Failed to delete booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted", "bookingId": id})
}
