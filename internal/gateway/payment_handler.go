package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// PaymentService is the payment operations the handler exposes
type PaymentService interface {
	CreateGCashPayment(ctx context.Context, amount float64, description string, customer model.PaymentCustomer, bookingID *int64) (*model.PaymentIntent, error)
	Status(ctx context.Context, id string) (model.PaymentStatus, error)
}

// PaymentHandler handles GCash payment endpoints
type PaymentHandler struct {
	payments PaymentService
	mode     string
	logger   *zap.Logger
	timeout  time.Duration
}

// NewPaymentHandler creates a new payment handler. mode is reported by GET /payments/mode.
func NewPaymentHandler(payments PaymentService, mode string, timeout time.Duration, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		mode:     mode,
		logger:   logger.Named("payments"),
		timeout:  timeout,
	}
}

// RegisterRoutes registers the payment API routes
func (h *PaymentHandler) RegisterRoutes(api gin.IRouter) {
	payments := api.Group("/payments")
	{
		payments.POST("/gcash", h.CreateGCashPayment)
		payments.GET("/status/:id", h.Status)
		payments.GET("/mode", h.Mode)
	}
}

// CreateGCashPayment starts a GCash payment
func (h *PaymentHandler) CreateGCashPayment(c *gin.Context) {
	var request struct {
		Amount       float64               `json:"amount"`
		Description  string                `json:"description"`
		CustomerInfo model.PaymentCustomer `json:"customerInfo"`
		BookingID    *int64                `json:"bookingId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	intent, err := h.payments.CreateGCashPayment(ctx, request.Amount, request.Description, request.CustomerInfo, request.BookingID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create GCash payment")
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// Status reports the status of a payment
func (h *PaymentHandler) Status(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	st, err := h.payments.Status(ctx, id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to check payment status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"paymentIntentId": id, "status": st})
}

// Mode reports whether payments run against the mock, test or live provider
func (h *PaymentHandler) Mode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": h.mode})
}
