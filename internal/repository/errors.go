package repository

import "errors"

var (
	// ErrBookingNotFound is returned when a booking is not found
	ErrBookingNotFound = errors.New("booking not found")

	// ErrDeliveryNotFound is returned when a delivery is not found
	ErrDeliveryNotFound = errors.New("delivery not found")

	// ErrNotificationNotFound is returned when a notification is not found
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrShopNotFound is returned when a shop is not found
	ErrShopNotFound = errors.New("shop not found")

	// ErrDeviceTokenNotFound is returned when no device token matches
	ErrDeviceTokenNotFound = errors.New("device token not found")

	// ErrStatusConflict is returned when a guarded update finds the row in a status it may not leave
	ErrStatusConflict = errors.New("status does not allow this change")
)
