package repositories

import (
	"context"
	"errors"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInsufficientFunds is returned by Debit when available balance is too low
	// or the balance record does not exist.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrStatusConflict is returned when a conditional status transition finds
	// the document in another state.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrInvalidAmount guards the ledger against zero or negative movements.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Transactor runs fn as one atomic unit of work. Repository calls made with
// the ctx handed to fn take part in the same transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BalanceRepository is the Balance Record Store. Every mutating method is a
// single atomic per-document update; none of them read-modify-write.
type BalanceRepository interface {
	// GetOrCreate upserts the record for userID. signupCredit is only applied
	// when the record is created.
	GetOrCreate(ctx context.Context, userID string, profile models.UserProfile, signupCredit decimal.Decimal) (*models.BalanceRecord, error)
	FindByUserID(ctx context.Context, userID string) (*models.BalanceRecord, error)
	// AdjustPending adds delta to pendingBalance, clamped at zero.
	AdjustPending(ctx context.Context, userID string, delta decimal.Decimal) (*models.BalanceRecord, error)
	// TransferPendingToAvailable moves amount from pending to available and
	// counts it in totalAdded.
	TransferPendingToAvailable(ctx context.Context, userID string, amount decimal.Decimal) (*models.BalanceRecord, error)
	// Debit requires availableBalance >= amount, otherwise ErrInsufficientFunds.
	Debit(ctx context.Context, userID string, amount decimal.Decimal) (*models.BalanceRecord, error)
	FindAll(ctx context.Context) ([]*models.BalanceRecord, error)
	Summary(ctx context.Context) (*models.LedgerSummary, error)
}

// PaymentRepository stores payment requests.
type PaymentRepository interface {
	// Create fails with ErrDuplicateKey when the transaction id is taken.
	Create(ctx context.Context, payment *models.PaymentRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PaymentRequest, error)
	// FindByTransactionID matches case-insensitively.
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentRequest, error)
	FindByUserID(ctx context.Context, userID string) ([]*models.PaymentRequest, error)
	FindByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.PaymentRequest, error)
	// Settle moves a pending request to decision.Status. ErrStatusConflict when
	// the request is no longer pending.
	Settle(ctx context.Context, id primitive.ObjectID, decision models.PaymentDecision) (*models.PaymentRequest, error)
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, decimal.Decimal, error)
}

// PurchaseRepository stores orders.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Purchase, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]*models.Purchase, int64, error)
	StatsByUserID(ctx context.Context, userID string) (*models.OrderStats, error)
}
