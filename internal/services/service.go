package services

import (
	"context"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/shopspring/decimal"
)

// PaymentService defines the payment request workflow
type PaymentService interface {
	// Submit files a pending payment request and raises the user's pending balance
	Submit(ctx context.Context, input SubmitPaymentInput) (*PaymentResult, error)

	// Approve moves the request amount from pending to available
	Approve(ctx context.Context, paymentID string, actor *models.Actor) (*PaymentResult, error)

	// Reject drops the request amount from pending
	Reject(ctx context.Context, paymentID string, actor *models.Actor, reason string) (*PaymentResult, error)

	// GetBalance returns the user's balance record, creating it on first access
	GetBalance(ctx context.Context, userID string, profile models.UserProfile) (*models.BalanceRecord, error)

	ListByUser(ctx context.Context, userID string) ([]*models.PaymentRequest, error)
	ListPending(ctx context.Context) ([]*models.PaymentRequest, error)
	ListByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.PaymentRequest, error)
	ListUsers(ctx context.Context) ([]*models.BalanceRecord, error)

	// Stats summarizes the whole ledger for the admin dashboard
	Stats(ctx context.Context) (*models.LedgerSummary, error)
}

// PurchaseService defines the balance-funded purchase workflow
type PurchaseService interface {
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
}

// OrderService defines read access to a user's order history
type OrderService interface {
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Purchase, models.Pagination, error)
	Stats(ctx context.Context, userID string) (*models.OrderStats, error)
}

// PurchaseNotifier is told about every committed purchase.
type PurchaseNotifier interface {
	PurchaseCompleted(purchase *models.Purchase, previousBalance, newBalance decimal.Decimal)
}
