package gateway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// NotificationInbox is the notification and device token operations the handler exposes
type NotificationInbox interface {
	List(ctx context.Context, recipient model.Identity, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error)
	RegisterToken(ctx context.Context, owner model.Identity, shopID *int64, token string) error
	DeactivateToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context, token string) error
	Tokens(ctx context.Context, owner model.Identity) ([]*model.DeviceToken, error)
	SendTest(ctx context.Context, owner model.Identity, bookingID *int64) (*model.Notification, error)
	SendToShop(ctx context.Context, shopID int64, bookingID *int64, title, message string) (*model.Notification, error)
	SendToCustomer(ctx context.Context, customerID int64, bookingID *int64, title, message string) (*model.Notification, error)
}

// NotificationHandler handles notification API endpoints
type NotificationHandler struct {
	inbox   NotificationInbox
	logger  *zap.Logger
	timeout time.Duration
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(inbox NotificationInbox, timeout time.Duration, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		inbox:   inbox,
		logger:  logger.Named("notifications"),
		timeout: timeout,
	}
}

// RegisterRoutes registers the notification API routes
func (h *NotificationHandler) RegisterRoutes(api gin.IRouter) {
	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.PUT("/read-all", h.MarkAllRead)
		notifications.PUT("/:id/read", h.MarkRead)
		notifications.POST("/device-token", h.RegisterToken)
		notifications.POST("/device-token/deactivate", h.DeactivateToken)
		notifications.POST("/device-token/delete", h.DeleteToken)
		notifications.GET("/device-tokens", h.Tokens)
		notifications.POST("/test", h.SendTest)
		notifications.POST("/send-shop", h.SendToShop)
		notifications.POST("/send-customer", h.SendToCustomer)
	}
}

type identityRequest struct {
	AccountID   int64  `json:"accountId" form:"accountId"`
	AccountType string `json:"accountType" form:"accountType"`
}

func (r identityRequest) identity() model.Identity {
	t, err := model.ParseAccountType(r.AccountType)
	if err != nil {
		// left invalid so the service reports it
		t = model.AccountType(r.AccountType)
	}
	return model.NewIdentity(t, r.AccountID)
}

type tokenRequest struct {
	Token string `json:"token"`
}

type sendRequest struct {
	ShopID     int64  `json:"shopId"`
	CustomerID int64  `json:"customerId"`
	BookingID  *int64 `json:"bookingId"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

// List returns the newest notifications of an identity
func (h *NotificationHandler) List(c *gin.Context) {
	var query identityRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	notifications, err := h.inbox.List(ctx, query.identity(), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list notifications")
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	if err := h.inbox.MarkRead(ctx, id); err != nil {
		respondError(c, h.logger, err, "Failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllRead marks every notification of an identity as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	var request identityRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	n, err := h.inbox.MarkAllRead(ctx, request.identity())
	if err != nil {
		respondError(c, h.logger, err, "Failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

// RegisterToken saves a push device token
func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var request struct {
		identityRequest
		ShopID *int64 `json:"shopId"`
		Token  string `json:"token"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	if err := h.inbox.RegisterToken(ctx, request.identity(), request.ShopID, request.Token); err != nil {
		respondError(c, h.logger, err, "Failed to register device token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeactivateToken stops pushes to a device
func (h *NotificationHandler) DeactivateToken(c *gin.Context) {
	var request tokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	if err := h.inbox.DeactivateToken(ctx, request.Token); err != nil {
		respondError(c, h.logger, err, "Failed to deactivate device token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteToken removes a device registration
func (h *NotificationHandler) DeleteToken(c *gin.Context) {
	var request tokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	if err := h.inbox.DeleteToken(ctx, request.Token); err != nil {
		respondError(c, h.logger, err, "Failed to delete device token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendToShop notifies the admin of a shop
func (h *NotificationHandler) SendToShop(c *gin.Context) {
	var request sendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	n, err := h.inbox.SendToShop(ctx, request.ShopID, request.BookingID, request.Title, request.Message)
	if err != nil {
		respondError(c, h.logger, err, "Failed to send notification")
		return
	}

	c.JSON(http.StatusCreated, n)
}

// SendToCustomer notifies a customer
func (h *NotificationHandler) SendToCustomer(c *gin.Context) {
	var request sendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	n, err := h.inbox.SendToCustomer(ctx, request.CustomerID, request.BookingID, request.Title, request.Message)
	if err != nil {
		respondError(c, h.logger, err, "Failed to send notification")
		return
	}

	c.JSON(http.StatusCreated, n)
}

// Tokens lists the device registrations of an identity
func (h *NotificationHandler) Tokens(c *gin.Context) {
	var query identityRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	tokens, err := h.inbox.Tokens(ctx, query.identity())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list device tokens")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// SendTest pushes a test notification to the latest device of an identity
func (h *NotificationHandler) SendTest(c *gin.Context) {
	var request struct {
		identityRequest
		BookingID *int64 `json:"bookingId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	n, err := h.inbox.SendTest(ctx, request.identity(), request.BookingID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to send notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "notification": n})
}
