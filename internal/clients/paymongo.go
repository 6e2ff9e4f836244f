package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

const (
	payMongoBaseURL     = "https://api.paymongo.com/v1"
	statementDescriptor = "ELABA"
	defaultPaymentName  = "eLaba GCash Payment"
	mockSettleAfter     = 3 * time.Second
	payMongoCurrency    = "PHP"
)

// ErrPaymentNotFound is returned when a payment id is unknown to the provider
var ErrPaymentNotFound = errors.New("payment intent not found")

// PayMongoConfig configures the PayMongo client
type PayMongoConfig struct {
	Mode       string // mock, test or live
	SecretKey  string
	SuccessURL string
	CancelURL  string
	BaseURL    string
	Timeout    time.Duration
}

type mockIntent struct {
	intent    model.PaymentIntent
	settlesAt time.Time
}

// PayMongoClient creates GCash payments through PayMongo checkout sessions,
// or in memory when running in mock mode.
type PayMongoClient struct {
	cfg    PayMongoConfig
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	mocks map[string]*mockIntent
}

// NewPayMongoClient creates a new PayMongo client. Modes other than mock require a secret key.
func NewPayMongoClient(cfg PayMongoConfig, logger *zap.Logger) (*PayMongoClient, error) {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch cfg.Mode {
	case "", "mock":
		cfg.Mode = "mock"
	case "sandbox":
		cfg.Mode = "test"
	case "test", "live":
	default:
		return nil, fmt.Errorf("unknown paymongo mode %q", cfg.Mode)
	}
	if cfg.Mode != "mock" && cfg.SecretKey == "" {
		return nil, fmt.Errorf("paymongo %s mode requires a secret key", cfg.Mode)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = payMongoBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.SuccessURL == "" {
		cfg.SuccessURL = "https://example.com/success"
	}
	if cfg.CancelURL == "" {
		cfg.CancelURL = "https://example.com/cancel"
	}

	return &PayMongoClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("paymongo"),
		now:    time.Now,
		mocks:  make(map[string]*mockIntent),
	}, nil
}

// Mode returns the active mode
func (c *PayMongoClient) Mode() string {
	return c.cfg.Mode
}

// CreateGCashPayment starts a GCash payment for amount pesos
func (c *PayMongoClient) CreateGCashPayment(ctx context.Context, amount float64, description string, customer model.PaymentCustomer, bookingID *int64) (*model.PaymentIntent, error) {
	centavos := int64(math.Round(amount * 100))
	if description == "" {
		description = defaultPaymentName
	}

	if c.cfg.Mode == "mock" {
		return c.createMock(centavos, bookingID), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"payment_method_types": []string{"gcash"},
				"line_items": []map[string]any{{
					"amount":   centavos,
					"currency": payMongoCurrency,
					"name":     description,
					"quantity": 1,
				}},
				"description":          description,
				"send_email_receipt":   false,
				"customer_email":       customer.Email,
				"customer_name":        customer.Name,
				"statement_descriptor": statementDescriptor,
				"success_url":          c.cfg.SuccessURL,
				"cancel_url":           c.cfg.CancelURL,
			},
		},
	}

	var resp checkoutSessionResponse
	if err := c.do(ctx, http.MethodPost, "/checkout_sessions", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &model.PaymentIntent{
		ID:          resp.Data.ID,
		RedirectURL: resp.Data.Attributes.CheckoutURL,
		Status:      model.PaymentProcessing,
		Amount:      centavos,
		Currency:    payMongoCurrency,
		BookingID:   bookingID,
		CreatedAt:   c.now().UTC(),
	}, nil
}

// PaymentStatus returns the current status of a payment created by CreateGCashPayment
func (c *PayMongoClient) PaymentStatus(ctx context.Context, id string) (model.PaymentStatus, error) {
	if c.cfg.Mode == "mock" {
		return c.mockStatus(id)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var resp checkoutSessionResponse
	if err := c.do(ctx, http.MethodGet, "/checkout_sessions/"+id, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get checkout session: %w", err)
	}
	return resp.Data.Attributes.status(), nil
}

func (c *PayMongoClient) createMock(centavos int64, bookingID *int64) *model.PaymentIntent {
	now := c.now()
	intent := model.PaymentIntent{
		ID:        "pi_mock_" + uuid.NewString(),
		Status:    model.PaymentProcessing,
		Amount:    centavos,
		Currency:  payMongoCurrency,
		BookingID: bookingID,
		CreatedAt: now.UTC(),
	}

	c.mu.Lock()
	c.mocks[intent.ID] = &mockIntent{intent: intent, settlesAt: now.Add(mockSettleAfter)}
	c.mu.Unlock()

	return &intent
}

func (c *PayMongoClient) mockStatus(id string) (model.PaymentStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mocks[id]
	if !ok {
		return "", ErrPaymentNotFound
	}
	if m.intent.Status == model.PaymentProcessing && !c.now().Before(m.settlesAt) {
		m.intent.Status = model.PaymentSucceeded
	}
	return m.intent.Status, nil
}

func (c *PayMongoClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.SecretKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrPaymentNotFound
	}
	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if len(apiErr.Errors) > 0 {
			return fmt.Errorf("paymongo returned %d: %s", resp.StatusCode, apiErr.Errors[0].Detail)
		}
		return fmt.Errorf("paymongo returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type checkoutSessionResponse struct {
	Data struct {
		ID         string                    `json:"id"`
		Attributes checkoutSessionAttributes `json:"attributes"`
	} `json:"data"`
}

type checkoutSessionAttributes struct {
	CheckoutURL   string `json:"checkout_url"`
	Status        string `json:"status"`
	PaymentIntent *struct {
		Attributes struct {
			Status string `json:"status"`
		} `json:"attributes"`
	} `json:"payment_intent"`
}

// status folds the session and payment intent states into one payment status
func (a checkoutSessionAttributes) status() model.PaymentStatus {
	if a.PaymentIntent != nil {
		switch a.PaymentIntent.Attributes.Status {
		case "succeeded":
			return model.PaymentSucceeded
		case "canceled", "cancelled":
			return model.PaymentCanceled
		}
	}
	switch a.Status {
	case "paid":
		return model.PaymentSucceeded
	case "expired", "canceled", "cancelled":
		return model.PaymentCanceled
	}
	return model.PaymentProcessing
}

type errorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}
