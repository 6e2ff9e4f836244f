package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// ChatService is the chat operations the handler exposes
type ChatService interface {
	Send(ctx context.Context, msg *model.Message) (*model.Message, error)
	Conversation(ctx context.Context, shopID, customerID, adminID int64) ([]*model.Message, error)
	ShopMessages(ctx context.Context, shopID int64) ([]*model.Message, error)
	MarkRead(ctx context.Context, receipt model.ReadReceipt) (int64, error)
	Conversations(ctx context.Context, user model.Identity) ([]*model.ConversationSummary, error)
}

// MessageHandler handles chat API endpoints
type MessageHandler struct {
	chat    ChatService
	logger  *zap.Logger
	timeout time.Duration
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(chat ChatService, timeout time.Duration, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		chat:    chat,
		logger:  logger.Named("messages"),
		timeout: timeout,
	}
}

// RegisterRoutes registers the chat API routes
func (h *MessageHandler) RegisterRoutes(api gin.IRouter) {
	messages := api.Group("/messages")
	{
		messages.POST("", h.Send)
		messages.GET("/conversation/:customerId/:adminId/:shopId", h.Conversation)
		messages.GET("/conversations/:userType/:userId", h.Conversations)
		messages.GET("/shop/:shopId", h.ShopMessages)
		messages.PUT("/mark-read", h.MarkRead)
	}
}

// Send stores a chat message and relays it to both parties
func (h *MessageHandler) Send(c *gin.Context) {
	var request struct {
		SenderType   string `json:"senderType"`
		SenderID     int64  `json:"senderId"`
		ReceiverType string `json:"receiverType"`
		ReceiverID   int64  `json:"receiverId"`
		ShopID       *int64 `json:"shopId"`
		MessageBody  string `json:"messageBody"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	msg, err := h.chat.Send(ctx, &model.Message{
		SenderType:   model.AccountType(request.SenderType),
		SenderID:     request.SenderID,
		ReceiverType: model.AccountType(request.ReceiverType),
		ReceiverID:   request.ReceiverID,
		ShopID:       request.ShopID,
		Body:         request.MessageBody,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// Conversation returns the messages between a customer and a shop admin
func (h *MessageHandler) Conversation(c *gin.Context) {
	customerID, ok := parseID(c, "customerId")
	if !ok {
		return
	}
	adminID, ok := parseID(c, "adminId")
	if !ok {
		return
	}
	shopID, ok := parseID(c, "shopId")
	if !ok {
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	messages, err := h.chat.Conversation(ctx, shopID, customerID, adminID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Conversations lists the conversations of a customer or admin
func (h *MessageHandler) Conversations(c *gin.Context) {
	userType, err := model.ParseAccountType(c.Param("userType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	summaries, err := h.chat.Conversations(ctx, model.NewIdentity(userType, userID))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get conversations")
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// ShopMessages returns every message about a shop, newest first
func (h *MessageHandler) ShopMessages(c *gin.Context) {
	shopID, ok := parseID(c, "shopId")
	if !ok {
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	messages, err := h.chat.ShopMessages(ctx, shopID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get shop messages")
		return
	}

	c.JSON(http.StatusOK, messages)
}

// MarkRead marks a conversation direction as read when its receiver opens the chat
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var request struct {
		SenderType   string `json:"senderType"`
		SenderID     int64  `json:"senderId"`
		ReceiverType string `json:"receiverType"`
		ReceiverID   int64  `json:"receiverId"`
		ShopID       int64  `json:"shopId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := workflowContext(c, h.timeout)
	defer cancel()

	n, err := h.chat.MarkRead(ctx, model.ReadReceipt{
		SenderType:   accountType(request.SenderType),
		SenderID:     request.SenderID,
		ReceiverType: accountType(request.ReceiverType),
		ReceiverID:   request.ReceiverID,
		ShopID:       request.ShopID,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to mark messages as read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func accountType(s string) model.AccountType {
	return model.AccountType(strings.ToLower(strings.TrimSpace(s)))
}
