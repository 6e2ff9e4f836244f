package gateway

import (
	"net/http"
	"testing"
	"time"

	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newNotificationRouter(inbox *mockInbox) http.Handler {
	return newTestRouter(NewNotificationHandler(inbox, time.Second, zap.NewNop()))
}

func TestListNotifications(t *testing.T) {
	inbox := new(mockInbox)
	admin := model.NewIdentity(model.AccountAdmin, 5)
	inbox.On("List", mock.Anything, admin, 20).Return([]*model.Notification{{ID: 1, AccountID: 5, AccountType: model.AccountAdmin, Title: "New Booking"}}, nil)
	r := newNotificationRouter(inbox)

	w := perform(r, http.MethodGet, "/api/notifications?accountId=5&accountType=Admin&limit=20", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"notificationId":1`)
	inbox.AssertExpectations(t)
}

func TestListNotificationsBadLimit(t *testing.T) {
	r := newNotificationRouter(new(mockInbox))

	w := perform(r, http.MethodGet, "/api/notifications?accountId=5&accountType=admin&limit=lots", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkReadRoutes(t *testing.T) {
	inbox := new(mockInbox)
	customer := model.NewIdentity(model.AccountCustomer, 3)
	inbox.On("MarkRead", mock.Anything, int64(1)).Return(nil)
	inbox.On("MarkRead", mock.Anything, int64(2)).Return(status.Errorf(codes.NotFound, "notification not found"))
	inbox.On("MarkAllRead", mock.Anything, customer).Return(int64(4), nil)
	r := newNotificationRouter(inbox)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPut, "/api/notifications/1/read", nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodPut, "/api/notifications/2/read", nil).Code)

	w := perform(r, http.MethodPut, "/api/notifications/read-all", map[string]any{"accountId": 3, "accountType": "customer"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["updated"])
}

func TestDeviceTokenRoutes(t *testing.T) {
	inbox := new(mockInbox)
	shopID := int64(11)
	admin := model.NewIdentity(model.AccountAdmin, 5)
	inbox.On("RegisterToken", mock.Anything, admin, &shopID, "fcm-1").Return(nil)
	inbox.On("DeactivateToken", mock.Anything, "fcm-1").Return(nil)
	inbox.On("DeleteToken", mock.Anything, "").Return(status.Errorf(codes.InvalidArgument, "token is required"))
	r := newNotificationRouter(inbox)

	w := perform(r, http.MethodPost, "/api/notifications/device-token", map[string]any{
		"accountId": 5, "accountType": "admin", "shopId": 11, "token": "fcm-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/api/notifications/device-token/deactivate", map[string]any{"token": "fcm-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/api/notifications/device-token/delete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "token is required", decode(t, w)["error"])

	inbox.AssertExpectations(t)
}

func TestSendRoutes(t *testing.T) {
	inbox := new(mockInbox)
	bookingID := int64(42)
	inbox.On("SendToShop", mock.Anything, int64(11), &bookingID, "Heads up", "Hi").
		Return(&model.Notification{ID: 9, AccountID: 5, AccountType: model.AccountAdmin}, nil)
	inbox.On("SendToCustomer", mock.Anything, int64(3), (*int64)(nil), "Hi", "There").
		Return(&model.Notification{ID: 10, AccountID: 3, AccountType: model.AccountCustomer}, nil)
	r := newNotificationRouter(inbox)

	w := perform(r, http.MethodPost, "/api/notifications/send-shop", map[string]any{
		"shopId": 11, "bookingId": 42, "title": "Heads up", "message": "Hi",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodPost, "/api/notifications/send-customer", map[string]any{
		"customerId": 3, "title": "Hi", "message": "There",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(10), decode(t, w)["notificationId"])
}

func TestListDeviceTokensRoute(t *testing.T) {
	inbox := new(mockInbox)
	admin := model.NewIdentity(model.AccountAdmin, 5)
	inbox.On("Tokens", mock.Anything, admin).
		Return([]*model.DeviceToken{{ID: 2, AccountID: 5, AccountType: model.AccountAdmin, Token: "tablet", IsActive: true}}, nil)
	r := newNotificationRouter(inbox)

	w := perform(r, http.MethodGet, "/api/notifications/device-tokens?accountId=5&accountType=Admin", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tablet"`)
	assert.Contains(t, w.Body.String(), `"isActive":true`)
}

func TestSendTestNotificationRoute(t *testing.T) {
	inbox := new(mockInbox)
	customer := model.NewIdentity(model.AccountCustomer, 3)
	bookingID := int64(42)
	inbox.On("SendTest", mock.Anything, customer, &bookingID).
		Return(&model.Notification{ID: 9, AccountID: 3, AccountType: model.AccountCustomer, Title: "Test Notification"}, nil)
	inbox.On("SendTest", mock.Anything, model.NewIdentity(model.AccountCustomer, 4), (*int64)(nil)).
		Return(nil, status.Errorf(codes.NotFound, "no device token found"))
	r := newNotificationRouter(inbox)

	w := perform(r, http.MethodPost, "/api/notifications/test", map[string]any{
		"accountId": 3, "accountType": "customer", "bookingId": 42,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = perform(r, http.MethodPost, "/api/notifications/test", map[string]any{"accountId": 4, "accountType": "customer"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no device token found", decode(t, w)["error"])
}
