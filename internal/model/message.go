package model

import "time"

// Message is a chat message between a customer and a shop admin
type Message struct {
	ID           string      `json:"id"`
	SenderType   AccountType `json:"senderType"`
	SenderID     int64       `json:"senderId"`
	ReceiverType AccountType `json:"receiverType"`
	ReceiverID   int64       `json:"receiverId"`
	ShopID       *int64      `json:"shopId,omitempty"`
	Body         string      `json:"messageBody"`
	IsRead       bool        `json:"isRead"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Sender returns the sender identity
func (m *Message) Sender() Identity {
	return NewIdentity(m.SenderType, m.SenderID)
}

// Receiver returns the receiver identity
func (m *Message) Receiver() Identity {
	return NewIdentity(m.ReceiverType, m.ReceiverID)
}

// ConversationSummary is the latest message of one conversation as seen by one participant
type ConversationSummary struct {
	ShopID          *int64      `json:"shopId"`
	ContactType     AccountType `json:"contactType"`
	ContactID       int64       `json:"contactId"`
	ContactName     string      `json:"contactName"`
	LastMessage     string      `json:"lastMessage"`
	LastMessageTime time.Time   `json:"lastMessageTime"`
	UnreadCount     int64       `json:"unreadCount"`
}

// ReadReceipt selects the unread messages a sender sent a receiver about a shop.
// An empty account type matches any type.
type ReadReceipt struct {
	SenderType   AccountType `json:"senderType"`
	SenderID     int64       `json:"senderId"`
	ReceiverType AccountType `json:"receiverType"`
	ReceiverID   int64       `json:"receiverId"`
	ShopID       int64       `json:"shopId"`
}
