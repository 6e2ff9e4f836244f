package service

import (
	"context"
	"time"

	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

const (
	EventBookingCreated  = "bookingCreated"
	EventBookingUpdated  = "bookingUpdated"
	EventBookingDeleted  = "bookingDeleted"
	EventDeliveryCreated = "deliveryCreated"
	EventDeliveryUpdated = "deliveryUpdated"
	EventNewNotification = "newNotification"
)

// Emitter delivers an event to every member of a channel
type Emitter interface {
	Emit(channel, event string, payload any) int
}

// ShopDirectory resolves the admin account owning a shop
type ShopDirectory interface {
	ShopAdminID(ctx context.Context, shopID int64) (int64, error)
}

// ShopRef identifies a shop and, when already known, its admin
type ShopRef struct {
	ShopID  int64
	AdminID int64
}

// BookingEvent is the payload of the booking events
type BookingEvent struct {
	ShopID      int64               `json:"shopId"`
	BookingID   int64               `json:"bookingId"`
	Status      model.BookingStatus `json:"status,omitempty"`
	NewStatus   model.BookingStatus `json:"newStatus,omitempty"`
	BookingDate string              `json:"bookingDate,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

// DeliveryEvent is the payload of the delivery events
type DeliveryEvent struct {
	DeliveryID int64                `json:"deliveryId"`
	BookingID  int64                `json:"bookingId"`
	Status     model.DeliveryStatus `json:"status"`
	ShopID     int64                `json:"shopId"`
}

// EventBroadcaster turns domain changes into channel events
type EventBroadcaster struct {
	emitter Emitter
	shops   ShopDirectory
	logger  *zap.Logger
	now     func() time.Time
}

// NewEventBroadcaster creates a new event broadcaster
func NewEventBroadcaster(emitter Emitter, shops ShopDirectory, logger *zap.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		emitter: emitter,
		shops:   shops,
		logger:  logger.Named("broadcaster"),
		now:     time.Now,
	}
}

// BookingCreated tells the shop admin and superadmins about a new booking
func (b *EventBroadcaster) BookingCreated(ctx context.Context, shop ShopRef, booking *model.Booking) {
	b.toShopAndSuperadmins(ctx, shop, EventBookingCreated, BookingEvent{
		ShopID:      booking.ShopID,
		BookingID:   booking.ID,
		Status:      booking.Status,
		BookingDate: formatTime(booking.BookingDate),
		Timestamp:   b.timestamp(),
	})
}

// BookingStatusChanged announces a new booking status
func (b *EventBroadcaster) BookingStatusChanged(ctx context.Context, shop ShopRef, bookingID int64, status model.BookingStatus) {
	b.toShopAndSuperadmins(ctx, shop, EventBookingUpdated, BookingEvent{
		ShopID:    shop.ShopID,
		BookingID: bookingID,
		Status:    status,
		NewStatus: status,
		Timestamp: b.timestamp(),
	})
}

// BookingRescheduled announces a new booking date
func (b *EventBroadcaster) BookingRescheduled(ctx context.Context, shop ShopRef, bookingID int64, date time.Time) {
	b.toShopAndSuperadmins(ctx, shop, EventBookingUpdated, BookingEvent{
		ShopID:      shop.ShopID,
		BookingID:   bookingID,
		BookingDate: formatTime(date),
		Timestamp:   b.timestamp(),
	})
}

// BookingDeleted announces a removed booking
func (b *EventBroadcaster) BookingDeleted(ctx context.Context, shop ShopRef, bookingID int64) {
	b.toShopAndSuperadmins(ctx, shop, EventBookingDeleted, BookingEvent{
		ShopID:    shop.ShopID,
		BookingID: bookingID,
		Timestamp: b.timestamp(),
	})
}

// DeliveryCreated tells the shop admin and the customer about a new delivery
func (b *EventBroadcaster) DeliveryCreated(ctx context.Context, d *model.Delivery) {
	b.toShopAndCustomer(ctx, d, EventDeliveryCreated)
}

// DeliveryUpdated tells the shop admin and the customer about a delivery status change
func (b *EventBroadcaster) DeliveryUpdated(ctx context.Context, d *model.Delivery) {
	b.toShopAndCustomer(ctx, d, EventDeliveryUpdated)
}

// NotificationCreated pushes the stored notification to its recipient's channel
func (b *EventBroadcaster) NotificationCreated(n *model.Notification) {
	b.emitter.Emit(n.Recipient().Channel(), EventNewNotification, n)
}

func (b *EventBroadcaster) toShopAndSuperadmins(ctx context.Context, shop ShopRef, event string, payload BookingEvent) {
	if admin, ok := b.shopAdmin(ctx, shop); ok {
		b.emitter.Emit(admin.Channel(), event, payload)
	}
	b.emitter.Emit(model.RoleChannel(model.AccountSuperadmin), event, payload)
}

func (b *EventBroadcaster) toShopAndCustomer(ctx context.Context, d *model.Delivery, event string) {
	payload := DeliveryEvent{
		DeliveryID: d.ID,
		BookingID:  d.BookingID,
		Status:     d.Status,
		ShopID:     d.ShopID,
	}
	if admin, ok := b.shopAdmin(ctx, ShopRef{ShopID: d.ShopID}); ok {
		b.emitter.Emit(admin.Channel(), event, payload)
	}
	b.emitter.Emit(model.NewIdentity(model.AccountCustomer, d.CustomerID).Channel(), event, payload)
}

// shopAdmin returns the admin identity for a shop; lookup failures are logged and skip the admin target.
func (b *EventBroadcaster) shopAdmin(ctx context.Context, shop ShopRef) (model.Identity, bool) {
	if shop.AdminID != 0 {
		return model.NewIdentity(model.AccountAdmin, shop.AdminID), true
	}

	adminID, err := b.shops.ShopAdminID(ctx, shop.ShopID)
	if err != nil {
		b.logger.Warn("Failed to resolve shop admin",
			zap.Int64("shopId", shop.ShopID),
			zap.Error(err),
		)
		return model.Identity{}, false
	}
	return model.NewIdentity(model.AccountAdmin, adminID), true
}

func (b *EventBroadcaster) timestamp() string {
	return formatTime(b.now())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
