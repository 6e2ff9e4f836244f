package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBookingCreatedUsesKnownAdmin(t *testing.T) {
	h := newHarness(t)
	booking := &model.Booking{
		ID:          42,
		ShopID:      11,
		Status:      model.BookingPending,
		BookingDate: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC),
	}

	h.broadcaster.BookingCreated(context.Background(), ShopRef{ShopID: 11, AdminID: 5}, booking)

	require.Len(t, h.emitter.events, 2)
	assert.Equal(t, "user_admin_5", h.emitter.events[0].Channel)
	assert.Equal(t, "role_superadmin", h.emitter.events[1].Channel)
	assert.Equal(t, BookingEvent{
		ShopID:      11,
		BookingID:   42,
		Status:      model.BookingPending,
		BookingDate: "2024-03-04T20:00:00Z",
		Timestamp:   "2024-03-01T12:00:00Z",
	}, h.emitter.events[0].Payload)
	h.shops.AssertNotCalled(t, "ShopAdminID", mock.Anything, mock.Anything)
}

func TestBookingStatusChangedCarriesBothStatusFields(t *testing.T) {
	h := newHarness(t)
	h.shops.On("ShopAdminID", mock.Anything, int64(11)).Return(int64(5), nil)

	h.broadcaster.BookingStatusChanged(context.Background(), ShopRef{ShopID: 11}, 42, model.BookingReady)

	updates := h.emitter.to("user_admin_5")
	require.Len(t, updates, 1)
	evt := updates[0].Payload.(BookingEvent)
	assert.Equal(t, model.BookingReady, evt.Status)
	assert.Equal(t, model.BookingReady, evt.NewStatus)
	h.shops.AssertExpectations(t)
}

func TestAdminLookupFailureStillReachesSuperadmins(t *testing.T) {
	h := newHarness(t)
	h.shops.On("ShopAdminID", mock.Anything, int64(11)).Return(int64(0), errors.New("no rows"))

	h.broadcaster.BookingDeleted(context.Background(), ShopRef{ShopID: 11}, 42)

	require.Len(t, h.emitter.events, 1)
	assert.Equal(t, "role_superadmin", h.emitter.events[0].Channel)
	assert.Equal(t, EventBookingDeleted, h.emitter.events[0].Event)
}

func TestDeliveryCreatedTargetsAdminAndCustomer(t *testing.T) {
	h := newHarness(t)
	h.shops.On("ShopAdminID", mock.Anything, int64(11)).Return(int64(5), nil)

	h.broadcaster.DeliveryCreated(context.Background(), delivery(7, 42, model.DeliveryPending))

	require.Len(t, h.emitter.events, 2)
	assert.Equal(t, "user_admin_5", h.emitter.events[0].Channel)
	assert.Equal(t, "user_customer_3", h.emitter.events[1].Channel)
	assert.Empty(t, h.emitter.to("role_superadmin"))
}

func TestNotificationCreatedGoesToRecipientOnly(t *testing.T) {
	h := newHarness(t)
	n := &model.Notification{ID: 1, AccountID: 5, AccountType: model.AccountAdmin}

	h.broadcaster.NotificationCreated(n)

	require.Len(t, h.emitter.events, 1)
	assert.Equal(t, emitted{Channel: "user_admin_5", Event: EventNewNotification, Payload: n}, h.emitter.events[0])
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "", formatTime(time.Time{}))
	loc := time.FixedZone("PHT", 8*60*60)
	assert.Equal(t, "2024-03-04T20:00:00Z", formatTime(time.Date(2024, 3, 5, 4, 0, 0, 0, loc)))
}
