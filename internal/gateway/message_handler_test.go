package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mockChat struct {
	mock.Mock
}

func (m *mockChat) Send(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if out := args.Get(0); out != nil {
		return out.(*model.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockChat) Conversation(ctx context.Context, shopID, customerID, adminID int64) ([]*model.Message, error) {
	args := m.Called(ctx, shopID, customerID, adminID)
	if out := args.Get(0); out != nil {
		return out.([]*model.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockChat) ShopMessages(ctx context.Context, shopID int64) ([]*model.Message, error) {
	args := m.Called(ctx, shopID)
	if out := args.Get(0); out != nil {
		return out.([]*model.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockChat) MarkRead(ctx context.Context, receipt model.ReadReceipt) (int64, error) {
	args := m.Called(ctx, receipt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChat) Conversations(ctx context.Context, user model.Identity) ([]*model.ConversationSummary, error) {
	args := m.Called(ctx, user)
	if out := args.Get(0); out != nil {
		return out.([]*model.ConversationSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) CreateGCashPayment(ctx context.Context, amount float64, description string, customer model.PaymentCustomer, bookingID *int64) (*model.PaymentIntent, error) {
	args := m.Called(ctx, amount, description, customer, bookingID)
	if out := args.Get(0); out != nil {
		return out.(*model.PaymentIntent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPayments) Status(ctx context.Context, id string) (model.PaymentStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PaymentStatus), args.Error(1)
}

func TestSendMessage(t *testing.T) {
	chat := new(mockChat)
	chat.On("Send", mock.Anything, mock.MatchedBy(func(m *model.Message) bool {
		return m.Sender() == model.NewIdentity(model.AccountCustomer, 3) && m.Body == "Is my order ready?" && m.ShopID != nil && *m.ShopID == 11
	})).Return(&model.Message{ID: "msg-1", Body: "Is my order ready?"}, nil)
	r := newTestRouter(NewMessageHandler(chat, time.Second, zap.NewNop()))

	w := perform(r, http.MethodPost, "/api/messages", map[string]any{
		"senderType": "customer", "senderId": 3,
		"receiverType": "admin", "receiverId": 5,
		"shopId": 11, "messageBody": "Is my order ready?",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "msg-1", decode(t, w)["id"])
}

func TestConversationRoute(t *testing.T) {
	chat := new(mockChat)
	chat.On("Conversation", mock.Anything, int64(11), int64(3), int64(5)).Return([]*model.Message{{ID: "m1"}}, nil)
	r := newTestRouter(NewMessageHandler(chat, time.Second, zap.NewNop()))

	w := perform(r, http.MethodGet, "/api/messages/conversation/3/5/11", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"m1"`)

	w = perform(r, http.MethodGet, "/api/messages/conversation/3/x/11", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid adminId", decode(t, w)["error"])
}

func TestConversationsRoute(t *testing.T) {
	chat := new(mockChat)
	chat.On("Conversations", mock.Anything, model.NewIdentity(model.AccountCustomer, 3)).
		Return([]*model.ConversationSummary{{ContactType: model.AccountAdmin, ContactID: 5, ContactName: "Fresh Fold", UnreadCount: 2}}, nil)
	r := newTestRouter(NewMessageHandler(chat, time.Second, zap.NewNop()))

	w := perform(r, http.MethodGet, "/api/messages/conversations/Customer/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"contactName":"Fresh Fold"`)
	assert.Contains(t, w.Body.String(), `"unreadCount":2`)

	w = perform(r, http.MethodGet, "/api/messages/conversations/robot/3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodGet, "/api/messages/conversations/admin/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid userId", decode(t, w)["error"])
}

func TestShopMessagesRoute(t *testing.T) {
	chat := new(mockChat)
	chat.On("ShopMessages", mock.Anything, int64(11)).Return([]*model.Message{{ID: "m2"}, {ID: "m1"}}, nil)
	r := newTestRouter(NewMessageHandler(chat, time.Second, zap.NewNop()))

	w := perform(r, http.MethodGet, "/api/messages/shop/11", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"m2"`)
}

func TestMarkReadRoute(t *testing.T) {
	chat := new(mockChat)
	chat.On("MarkRead", mock.Anything, model.ReadReceipt{
		SenderType: model.AccountCustomer, SenderID: 3, ReceiverID: 5, ShopID: 11,
	}).Return(int64(3), nil)
	r := newTestRouter(NewMessageHandler(chat, time.Second, zap.NewNop()))

	w := perform(r, http.MethodPut, "/api/messages/mark-read", map[string]any{
		"senderType": " Customer", "senderId": 3, "receiverId": 5, "shopId": 11,
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["updated"])
}

func TestMarkReadRouteErrors(t *testing.T) {
	chat := new(mockChat)
	chat.On("MarkRead", mock.Anything, mock.Anything).
		Return(int64(0), status.Error(codes.InvalidArgument, "senderId, receiverId and shopId are required"))
	r := newTestRouter(NewMessageHandler(chat, time.Second, zap.NewNop()))

	w := perform(r, http.MethodPut, "/api/messages/mark-read", map[string]any{"senderId": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "senderId, receiverId and shopId are required", decode(t, w)["error"])

	w = perform(r, http.MethodPut, "/api/messages/mark-read", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentRoutes(t *testing.T) {
	payments := new(mockPayments)
	payer := model.PaymentCustomer{Name: "Maria Santos", Email: "maria@example.com", Phone: "09171234567"}
	payments.On("CreateGCashPayment", mock.Anything, 250.0, "Wash & Fold", payer, (*int64)(nil)).
		Return(&model.PaymentIntent{ID: "pi_mock_1", Status: model.PaymentProcessing, Amount: 25000}, nil)
	payments.On("Status", mock.Anything, "pi_mock_1").Return(model.PaymentSucceeded, nil)
	payments.On("Status", mock.Anything, "pi_down").Return(model.PaymentStatus(""), status.Errorf(codes.Unavailable, "provider down"))
	r := newTestRouter(NewPaymentHandler(payments, "mock", time.Second, zap.NewNop()))

	w := perform(r, http.MethodPost, "/api/payments/gcash", map[string]any{
		"amount": 250, "description": "Wash & Fold", "customerInfo": payer,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pi_mock_1", decode(t, w)["paymentIntentId"])

	w = perform(r, http.MethodGet, "/api/payments/status/pi_mock_1", nil)
	assert.Equal(t, "succeeded", decode(t, w)["status"])

	w = perform(r, http.MethodGet, "/api/payments/status/pi_down", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = perform(r, http.MethodGet, "/api/payments/mode", nil)
	assert.Equal(t, "mock", decode(t, w)["mode"])
}
