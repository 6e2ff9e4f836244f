package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(handlers ...RouteRegistrar) *gin.Engine {
	return NewRouter(RouterConfig{
		Logger:         zap.NewNop(),
		AllowedOrigins: []string{"*"},
		Handlers:       handlers,
	})
}

func perform(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	args := m.Called(ctx, booking)
	if b := args.Get(0); b != nil {
		return b.(*model.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if out := args.Get(0); out != nil {
		return out.(*model.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) UpdateStatus(ctx context.Context, id int64, status string) (model.BookingStatus, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(model.BookingStatus), args.Error(1)
}

func (m *mockBookings) Reschedule(ctx context.Context, id int64, date string) (time.Time, error) {
	args := m.Called(ctx, id, date)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockBookings) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockDeliveries struct {
	mock.Mock
}

func (m *mockDeliveries) CreateDelivery(ctx context.Context, d *model.Delivery) (*model.Delivery, error) {
	args := m.Called(ctx, d)
	if out := args.Get(0); out != nil {
		return out.(*model.Delivery), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeliveries) UpdateStatus(ctx context.Context, id int64, status string) (*model.Delivery, error) {
	args := m.Called(ctx, id, status)
	if out := args.Get(0); out != nil {
		return out.(*model.Delivery), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockInbox struct {
	mock.Mock
}

func (m *mockInbox) List(ctx context.Context, recipient model.Identity, limit int) ([]*model.Notification, error) {
	args := m.Called(ctx, recipient, limit)
	if out := args.Get(0); out != nil {
		return out.([]*model.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInbox) MarkRead(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInbox) MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInbox) RegisterToken(ctx context.Context, owner model.Identity, shopID *int64, token string) error {
	return m.Called(ctx, owner, shopID, token).Error(0)
}

func (m *mockInbox) DeactivateToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockInbox) DeleteToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockInbox) Tokens(ctx context.Context, owner model.Identity) ([]*model.DeviceToken, error) {
	args := m.Called(ctx, owner)
	if out := args.Get(0); out != nil {
		return out.([]*model.DeviceToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInbox) SendTest(ctx context.Context, owner model.Identity, bookingID *int64) (*model.Notification, error) {
	args := m.Called(ctx, owner, bookingID)
	if out := args.Get(0); out != nil {
		return out.(*model.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInbox) SendToShop(ctx context.Context, shopID int64, bookingID *int64, title, message string) (*model.Notification, error) {
	args := m.Called(ctx, shopID, bookingID, title, message)
	if out := args.Get(0); out != nil {
		return out.(*model.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInbox) SendToCustomer(ctx context.Context, customerID int64, bookingID *int64, title, message string) (*model.Notification, error) {
	args := m.Called(ctx, customerID, bookingID, title, message)
	if out := args.Get(0); out != nil {
		return out.(*model.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubPresence []model.Identity

func (s stubPresence) Online() []model.Identity {
	return s
}
