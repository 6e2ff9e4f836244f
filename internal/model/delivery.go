package model

import "time"

// DeliveryStatus represents the status of a delivery
type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "pending"
	DeliveryConfirmed      DeliveryStatus = "confirmed"
	DeliveryReady          DeliveryStatus = "ready"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryCompleted      DeliveryStatus = "completed"
	DeliveryCancelled      DeliveryStatus = "cancelled"
)

// Valid reports whether the status belongs to the delivery vocabulary
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryConfirmed, DeliveryReady, DeliveryOutForDelivery, DeliveryCompleted, DeliveryCancelled:
		return true
	}
	return false
}

// BookingStatus returns the booking status a delivery status propagates to.
// The second result is false when the delivery status has no booking counterpart.
func (s DeliveryStatus) BookingStatus() (BookingStatus, bool) {
	switch s {
	case DeliveryReady:
		return BookingReady, true
	case DeliveryOutForDelivery:
		return BookingInTransit, true
	case DeliveryCompleted:
		return BookingCompleted, true
	}
	return "", false
}

// Delivery represents a pickup/delivery leg attached to a booking
type Delivery struct {
	ID              int64          `json:"deliveryId"`
	BookingID       int64          `json:"bookingId"`
	CustomerID      int64          `json:"customerId"`
	ShopID          int64          `json:"shopId"`
	ServiceID       int64          `json:"serviceId"`
	PickupAddress   string         `json:"pickupAddress"`
	DeliveryAddress string         `json:"deliveryAddress"`
	DeliveryTime    time.Time      `json:"deliveryTime"`
	Status          DeliveryStatus `json:"status"`
}
