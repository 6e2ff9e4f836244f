package model

import "time"

// PaymentStatus is the provider-side state of a payment intent
type PaymentStatus string

const (
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentCanceled   PaymentStatus = "canceled"
	PaymentFailed     PaymentStatus = "failed"
)

// PaymentCustomer carries the billing details sent to the provider
type PaymentCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentIntent is the result of creating a GCash payment
type PaymentIntent struct {
	ID          string        `json:"paymentIntentId"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
	Status      PaymentStatus `json:"status"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	BookingID   *int64        `json:"bookingId,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}
