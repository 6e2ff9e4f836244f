package service

import (
	"fmt"
	"time"

	"github.com/laundry-marketplace/internal/model"
)

// bookingDateLayout renders dates like "March 5, 2024"
const bookingDateLayout = "January 2, 2006"

// notice is a title and message pair for one notification
type notice struct {
	Title   string
	Message string
}

func cancellationNotice(bc *model.BookingContext) notice {
	customer := bc.CustomerName()
	if customer == "" || bc.ServiceName == "" {
		return notice{
			Title:   "Booking Cancelled",
			Message: fmt.Sprintf("Booking #%d has been cancelled.", bc.ID),
		}
	}
	return notice{
		Title:   "Booking Cancelled",
		Message: fmt.Sprintf("%s cancelled their %s booking (#%d).", customer, bc.ServiceName, bc.ID),
	}
}

func confirmationNotice(bc *model.BookingContext, loc *time.Location) notice {
	if model.IsWalkIn(bc.BookingType) {
		return notice{
			Title: "Booking Confirmed",
			Message: fmt.Sprintf("Your walk-in booking #%d is confirmed. Please drop off your laundry on %s.",
				bc.ID, bc.BookingDate.In(loc).Format(bookingDateLayout)),
		}
	}
	return notice{
		Title:   "Booking Confirmed",
		Message: fmt.Sprintf("Your booking #%d has been confirmed by the shop.", bc.ID),
	}
}

func rescheduleNotice(bc *model.BookingContext, loc *time.Location) notice {
	date := bc.BookingDate.In(loc).Format(bookingDateLayout)
	customer := bc.CustomerName()
	if customer == "" {
		return notice{
			Title:   "Booking Rescheduled",
			Message: fmt.Sprintf("Booking #%d has been rescheduled to %s.", bc.ID, date),
		}
	}
	service := bc.ServiceName
	if service == "" {
		service = "laundry"
	}
	return notice{
		Title:   "Booking Rescheduled",
		Message: fmt.Sprintf("%s rescheduled their %s booking (#%d) to %s.", customer, service, bc.ID, date),
	}
}

func newBookingNotice(b *model.Booking, loc *time.Location) notice {
	return notice{
		Title: "New Booking",
		Message: fmt.Sprintf("You have a new %s booking (#%d) for %s.",
			b.BookingType, b.ID, b.BookingDate.In(loc).Format(bookingDateLayout)),
	}
}

func deliveryNotice(d *model.Delivery) notice {
	switch d.Status {
	case model.DeliveryReady:
		return notice{
			Title:   "Ready for Pickup",
			Message: fmt.Sprintf("Your laundry for booking #%d is ready for pickup.", d.BookingID),
		}
	case model.DeliveryOutForDelivery:
		return notice{
			Title:   "Out for Delivery",
			Message: fmt.Sprintf("Your laundry for booking #%d is on its way to %s.", d.BookingID, d.DeliveryAddress),
		}
	case model.DeliveryCompleted:
		return notice{
			Title:   "Delivery Completed",
			Message: fmt.Sprintf("Your laundry for booking #%d has been delivered.", d.BookingID),
		}
	default:
		return notice{
			Title:   "Delivery Update",
			Message: fmt.Sprintf("Your delivery for booking #%d is now %s.", d.BookingID, d.Status),
		}
	}
}
