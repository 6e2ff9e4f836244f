package model

import (
	"strings"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingInTransit BookingStatus = "in_transit"
	BookingReady     BookingStatus = "ready"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// bookingTransitions lists the statuses each status may move to.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted, BookingInTransit, BookingReady},
	BookingInTransit: {BookingReady, BookingCompleted},
	BookingReady:     {BookingInTransit, BookingCompleted},
	BookingCompleted: nil,
	BookingCancelled: nil,
}

// Valid reports whether the status belongs to the booking vocabulary
func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves this status
func (s BookingStatus) Terminal() bool {
	return s.Valid() && len(bookingTransitions[s]) == 0
}

// CanTransitionTo reports whether s may move to next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedFrom returns every status that may transition to target, in a stable order
func AllowedFrom(target BookingStatus) []BookingStatus {
	var from []BookingStatus
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingInTransit, BookingReady, BookingCompleted, BookingCancelled} {
		if s.CanTransitionTo(target) {
			from = append(from, s)
		}
	}
	return from
}

// ReschedulableStatuses are the statuses a booking date may change in
var ReschedulableStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// Booking represents a laundry booking
type Booking struct {
	ID          int64         `json:"bookingId"`
	BookingType string        `json:"bookingType"`
	BookingDate time.Time     `json:"bookingDate"`
	Status      BookingStatus `json:"status"`
	TotalAmount float64       `json:"totalAmount"`
	ShopID      int64         `json:"shopId"`
	ServiceID   int64         `json:"serviceId"`
	CustomerID  int64         `json:"customerId"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// BookingContext is a booking joined with the names and owner needed for fan-out
type BookingContext struct {
	Booking
	AdminID           int64  `json:"adminId"`
	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	ServiceName       string `json:"serviceName"`
}

// CustomerName returns the customer's display name, empty when unknown
func (c *BookingContext) CustomerName() string {
	return strings.TrimSpace(c.CustomerFirstName + " " + c.CustomerLastName)
}

// IsWalkIn reports whether a booking type denotes a walk-in booking.
// Matching is case-insensitive and tolerates "walk-in", "walk_in", "walk in" and "walkin".
func IsWalkIn(bookingType string) bool {
	t := strings.ToLower(strings.TrimSpace(bookingType))
	t = strings.NewReplacer("-", "", "_", "", " ", "").Replace(t)
	return t == "walkin"
}
