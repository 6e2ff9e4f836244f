package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/laundry-marketplace/internal/clients"
	"github.com/laundry-marketplace/internal/model"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type emitted struct {
	Channel string
	Event   string
	Payload any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) Emit(channel, event string, payload any) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{Channel: channel, Event: event, Payload: payload})
	return 1
}

func (e *recordingEmitter) to(channel string) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, ev := range e.events {
		if ev.Channel == channel {
			out = append(out, ev)
		}
	}
	return out
}

func (e *recordingEmitter) named(event string) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, ev := range e.events {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

type mockShops struct {
	mock.Mock
}

func (m *mockShops) ShopAdminID(ctx context.Context, shopID int64) (int64, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).(int64), args.Error(1)
}

type fakeNotificationStore struct {
	mu      sync.Mutex
	nextID  int64
	created []*model.Notification
	err     error
}

func (s *fakeNotificationStore) CreateNotification(_ context.Context, recipient model.Identity, bookingID *int64, title, message string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	n := &model.Notification{
		ID:          s.nextID,
		AccountID:   recipient.AccountID,
		AccountType: recipient.AccountType,
		BookingID:   bookingID,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s.created = append(s.created, n)
	return n, nil
}

func (s *fakeNotificationStore) forRecipient(id model.Identity) []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Notification
	for _, n := range s.created {
		if n.Recipient() == id {
			out = append(out, n)
		}
	}
	return out
}

type fakeTokenStore struct {
	mu      sync.Mutex
	tokens  map[model.Identity][]string
	deleted []string
	listErr error
}

func (s *fakeTokenStore) ActiveTokens(_ context.Context, owner model.Identity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]string(nil), s.tokens[owner]...), nil
}

func (s *fakeTokenStore) DeleteToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, token)
	return nil
}

type fakePusher struct {
	mu     sync.Mutex
	errs   map[string]error
	pushed []clients.PushMessage
}

func (p *fakePusher) Push(_ context.Context, msg clients.PushMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, msg)
	return p.errs[msg.Token]
}

type mockBookingStore struct {
	mock.Mock
}

func (m *mockBookingStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockBookingStore) GetBookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*model.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingStore) GetBookingContext(ctx context.Context, id int64) (*model.BookingContext, error) {
	args := m.Called(ctx, id)
	if bc := args.Get(0); bc != nil {
		return bc.(*model.BookingContext), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingStore) GetShopID(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBookingStore) UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus, from []model.BookingStatus) error {
	args := m.Called(ctx, id, status, from)
	return args.Error(0)
}

func (m *mockBookingStore) RescheduleBooking(ctx context.Context, id int64, date time.Time) error {
	args := m.Called(ctx, id, date)
	return args.Error(0)
}

func (m *mockBookingStore) DeleteBooking(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBookingStore) SyncBookingStatus(ctx context.Context, id int64, status model.BookingStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

type mockDeliveryStore struct {
	mock.Mock
}

func (m *mockDeliveryStore) CreateDelivery(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDeliveryStore) GetDeliveryByID(ctx context.Context, id int64) (*model.Delivery, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*model.Delivery), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeliveryStore) UpdateDeliveryStatus(ctx context.Context, id int64, status model.DeliveryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// harness wires the notification path with in-memory fakes
type harness struct {
	emitter     *recordingEmitter
	shops       *mockShops
	notes       *fakeNotificationStore
	tokens      *fakeTokenStore
	pusher      *fakePusher
	dispatcher  *NotificationDispatcher
	broadcaster *EventBroadcaster
	notifier    *Notifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		emitter: &recordingEmitter{},
		shops:   new(mockShops),
		notes:   &fakeNotificationStore{},
		tokens:  &fakeTokenStore{tokens: make(map[model.Identity][]string)},
		pusher:  &fakePusher{errs: make(map[string]error)},
	}
	logger := zap.NewNop()
	h.dispatcher = NewNotificationDispatcher(h.notes, h.tokens, h.pusher, time.Second, logger, nil)
	h.broadcaster = NewEventBroadcaster(h.emitter, h.shops, logger)
	h.broadcaster.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	h.notifier = NewNotifier(h.dispatcher, h.broadcaster, logger)
	return h
}

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		return time.FixedZone("PHT", 8*60*60)
	}
	return loc
}
