package model

import "time"

// Notification is a persisted in-app notification
type Notification struct {
	ID          int64       `json:"notificationId"`
	AccountID   int64       `json:"accountId"`
	AccountType AccountType `json:"accountType"`
	BookingID   *int64      `json:"bookingId"`
	Title       string      `json:"title"`
	Message     string      `json:"message"`
	IsRead      bool        `json:"isRead"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Recipient returns the identity the notification is addressed to
func (n *Notification) Recipient() Identity {
	return NewIdentity(n.AccountType, n.AccountID)
}

// DeviceToken is a push registration for an identity
type DeviceToken struct {
	ID          int64       `json:"id"`
	AccountID   int64       `json:"accountId"`
	AccountType AccountType `json:"accountType"`
	ShopID      *int64      `json:"shopId,omitempty"`
	Token       string      `json:"token"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
