package service

import (
	"context"
	"errors"
	"strings"

	"github.com/laundry-marketplace/internal/clients"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PaymentProvider creates and polls GCash payments
type PaymentProvider interface {
	CreateGCashPayment(ctx context.Context, amount float64, description string, customer model.PaymentCustomer, bookingID *int64) (*model.PaymentIntent, error)
	PaymentStatus(ctx context.Context, id string) (model.PaymentStatus, error)
}

// PaymentService validates payment requests before handing them to the provider
type PaymentService struct {
	provider PaymentProvider
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(provider PaymentProvider, logger *zap.Logger) *PaymentService {
	return &PaymentService{provider: provider, logger: logger.Named("payment")}
}

// CreateGCashPayment starts a GCash payment
func (s *PaymentService) CreateGCashPayment(ctx context.Context, amount float64, description string, customer model.PaymentCustomer, bookingID *int64) (*model.PaymentIntent, error) {
	if amount <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "amount must be positive")
	}
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Email) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "customer name, email and phone are required")
	}

	intent, err := s.provider.CreateGCashPayment(ctx, amount, description, customer, bookingID)
	if err != nil {
		s.logger.Error("Failed to create GCash payment", zap.Float64("amount", amount), zap.Error(err))
		return nil, status.Errorf(codes.Unavailable, "failed to create GCash payment: %v", err)
	}
	return intent, nil
}

// Status returns the current status of a payment
func (s *PaymentService) Status(ctx context.Context, id string) (model.PaymentStatus, error) {
	if strings.TrimSpace(id) == "" {
		return "", status.Errorf(codes.InvalidArgument, "payment id is required")
	}

	st, err := s.provider.PaymentStatus(ctx, id)
	if err != nil {
		if errors.Is(err, clients.ErrPaymentNotFound) {
			return "", status.Errorf(codes.NotFound, "payment not found")
		}
		return "", status.Errorf(codes.Unavailable, "failed to check payment status: %v", err)
	}
	return st, nil
}
