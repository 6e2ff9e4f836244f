package service

import (
	"context"
	"strings"

	"github.com/laundry-marketplace/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MessageStore persists chat messages
type MessageStore interface {
	CreateMessage(ctx context.Context, m *model.Message) error
	Conversation(ctx context.Context, shopID, customerID, adminID int64) ([]*model.Message, error)
	ShopMessages(ctx context.Context, shopID int64) ([]*model.Message, error)
	MarkRead(ctx context.Context, receipt model.ReadReceipt) (int64, error)
	Conversations(ctx context.Context, user model.Identity) ([]*model.ConversationSummary, error)
}

// MessageRelay delivers a stored message to both parties in real time
type MessageRelay interface {
	RelayMessage(msg *model.Message)
}

// ChatService stores chat messages and relays them to connected parties
type ChatService struct {
	messages MessageStore
	relay    MessageRelay
}

// NewChatService creates a new chat service
func NewChatService(messages MessageStore, relay MessageRelay) *ChatService {
	return &ChatService{messages: messages, relay: relay}
}

// Send persists a message and relays it to the sender and receiver channels
func (s *ChatService) Send(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if !msg.SenderType.Valid() || !msg.ReceiverType.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "senderType and receiverType must be customer, admin or superadmin")
	}
	if msg.SenderID <= 0 || msg.ReceiverID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "senderId and receiverId are required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "messageBody is required")
	}

	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to save message: %v", err)
	}

	s.relay.RelayMessage(msg)
	return msg, nil
}

// Conversation returns the messages between a customer and a shop admin
func (s *ChatService) Conversation(ctx context.Context, shopID, customerID, adminID int64) ([]*model.Message, error) {
	if shopID <= 0 || customerID <= 0 || adminID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "shopId, customerId and adminId are required")
	}

	messages, err := s.messages.Conversation(ctx, shopID, customerID, adminID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get conversation: %v", err)
	}
	return messages, nil
}

// ShopMessages returns the message history of a shop, newest first
func (s *ChatService) ShopMessages(ctx context.Context, shopID int64) ([]*model.Message, error) {
	if shopID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "shopId is required")
	}

	messages, err := s.messages.ShopMessages(ctx, shopID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get shop messages: %v", err)
	}
	return messages, nil
}

// MarkRead marks what the sender sent the receiver about a shop as read, typically when the
// receiver opens the chat. It returns the number of messages that changed.
func (s *ChatService) MarkRead(ctx context.Context, receipt model.ReadReceipt) (int64, error) {
	if receipt.SenderID <= 0 || receipt.ReceiverID <= 0 || receipt.ShopID <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "senderId, receiverId and shopId are required")
	}
	for _, t := range []model.AccountType{receipt.SenderType, receipt.ReceiverType} {
		if t != "" && !t.Valid() {
			return 0, status.Errorf(codes.InvalidArgument, "invalid account type %q", t)
		}
	}

	n, err := s.messages.MarkRead(ctx, receipt)
	if err != nil {
		return 0, status.Errorf(codes.Internal, "failed to mark messages as read: %v", err)
	}
	return n, nil
}

// Conversations lists the conversations a user takes part in, most recent first
func (s *ChatService) Conversations(ctx context.Context, user model.Identity) ([]*model.ConversationSummary, error) {
	if !user.AccountType.Valid() || user.AccountID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "a valid userType and userId are required")
	}

	summaries, err := s.messages.Conversations(ctx, user)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get conversations: %v", err)
	}
	return summaries, nil
}
