package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"github.com/metagameshop/shop-backend/internal/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PaymentServiceImpl implements PaymentService
var _ PaymentService = (*PaymentServiceImpl)(nil)

// SubmitPaymentInput is a user's claim that money was sent over bKash.
type SubmitPaymentInput struct {
	UserID          string
	UserEmail       string
	UserName        string
	Amount          decimal.Decimal
	TransactionID   string
	SenderNumber    string
	UserBkashNumber string
}

// PaymentResult pairs a request with the balance it produced.
// Balance is nil when a rejected request's user had no record.
type PaymentResult struct {
	Payment *models.PaymentRequest
	Balance *models.BalanceRecord
}

type PaymentServiceImpl struct {
	tx           repositories.Transactor
	balanceRepo  repositories.BalanceRepository
	paymentRepo  repositories.PaymentRepository
	authorizer   Authorizer
	signupCredit decimal.Decimal
}

func NewPaymentService(tx repositories.Transactor, balanceRepo repositories.BalanceRepository, paymentRepo repositories.PaymentRepository, authorizer Authorizer, signupCredit decimal.Decimal) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		tx:           tx,
		balanceRepo:  balanceRepo,
		paymentRepo:  paymentRepo,
		authorizer:   authorizer,
		signupCredit: signupCredit,
	}
}

// Submit records a pending payment request. The duplicate check runs before
// validation so a replayed id is always reported as a duplicate.
func (s *PaymentServiceImpl) Submit(ctx context.Context, input SubmitPaymentInput) (*PaymentResult, error) {
	txID := NormalizeTransactionID(input.TransactionID)

	if txID != "" {
		_, err := s.paymentRepo.FindByTransactionID(ctx, txID)
		if err == nil {
			slog.Warn("Duplicate payment submission", "transactionId", txID, "userId", input.UserID)
			return nil, ErrDuplicateTransaction
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to check transaction id: %w", err)
		}
	}

	if err := validateSubmission(input, txID); err != nil {
		return nil, err
	}

	payment := &models.PaymentRequest{
		TransactionID:   txID,
		Amount:          input.Amount,
		SenderNumber:    strings.TrimSpace(input.SenderNumber),
		UserBkashNumber: strings.TrimSpace(input.UserBkashNumber),
		PaymentMethod:   models.PaymentMethodBkash,
		UserID:          input.UserID,
		UserEmail:       input.UserEmail,
		UserName:        input.UserName,
		Status:          models.PaymentStatusPending,
	}
	profile := models.UserProfile{Email: input.UserEmail, DisplayName: input.UserName}

	var balance *models.BalanceRecord
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return ErrDuplicateTransaction
			}
			return fmt.Errorf("failed to create payment request: %w", err)
		}
		if _, err := s.balanceRepo.GetOrCreate(ctx, input.UserID, profile, s.signupCredit); err != nil {
			return fmt.Errorf("failed to load balance: %w", err)
		}
		updated, err := s.balanceRepo.AdjustPending(ctx, input.UserID, payment.Amount)
		if err != nil {
			return fmt.Errorf("failed to raise pending balance: %w", err)
		}
		balance = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Payment request submitted", "paymentId", payment.ID.Hex(), "transactionId", txID, "userId", input.UserID, "amount", payment.Amount.String(), "sender", utils.MaskNumber(payment.SenderNumber))
	return &PaymentResult{Payment: payment, Balance: balance}, nil
}

func validateSubmission(input SubmitPaymentInput, txID string) error {
	if strings.TrimSpace(input.UserID) == "" {
		return invalid("userId", "user ID is required")
	}
	if err := checkMoney("amount", input.Amount); err != nil {
		return err
	}
	if txID == "" {
		return invalid("transactionId", "transaction ID is required")
	}
	if !IsValidTransactionID(txID) {
		return invalid("transactionId", "invalid transaction ID format")
	}
	if strings.TrimSpace(input.SenderNumber) == "" {
		return invalid("senderNumber", "sender number is required")
	}
	if !IsValidMobileNumber(input.SenderNumber) {
		return invalid("senderNumber", "invalid sender number, expected 01XXXXXXXXX or 8801XXXXXXXXX")
	}
	if input.UserBkashNumber != "" && !IsValidMobileNumber(input.UserBkashNumber) {
		return invalid("userBkashNumber", "invalid bKash number, expected 01XXXXXXXXX or 8801XXXXXXXXX")
	}
	return nil
}

// Approve credits the request amount to the user's available balance.
// The status guard and the transfer commit together, so a retried approval
// cannot credit twice.
func (s *PaymentServiceImpl) Approve(ctx context.Context, paymentID string, actor *models.Actor) (*PaymentResult, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionApprovePayment); err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return nil, ErrNotFound
	}

	var result PaymentResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.loadPending(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.balanceRepo.FindByUserID(ctx, payment.UserID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("failed to load balance: %w", err)
		}

		settled, err := s.settle(ctx, id, models.PaymentDecision{
			Status:  models.PaymentStatusApproved,
			ActorID: actorID(actor),
			Actor:   actorName(actor),
			At:      time.Now(),
		})
		if err != nil {
			return err
		}
		balance, err := s.balanceRepo.TransferPendingToAvailable(ctx, payment.UserID, payment.Amount)
		if err != nil {
			return fmt.Errorf("failed to transfer pending balance: %w", err)
		}
		result = PaymentResult{Payment: settled, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Payment approved", "paymentId", paymentID, "userId", result.Payment.UserID, "amount", result.Payment.Amount.String(), "approvedBy", actorID(actor))
	return &result, nil
}

// Reject removes the request amount from pending; nothing reaches available.
func (s *PaymentServiceImpl) Reject(ctx context.Context, paymentID string, actor *models.Actor, reason string) (*PaymentResult, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionRejectPayment); err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return nil, ErrNotFound
	}

	var result PaymentResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.loadPending(ctx, id)
		if err != nil {
			return err
		}
		settled, err := s.settle(ctx, id, models.PaymentDecision{
			Status:  models.PaymentStatusRejected,
			ActorID: actorID(actor),
			Actor:   actorName(actor),
			Reason:  strings.TrimSpace(reason),
			At:      time.Now(),
		})
		if err != nil {
			return err
		}

		result = PaymentResult{Payment: settled}
		balance, err := s.balanceRepo.AdjustPending(ctx, payment.UserID, payment.Amount.Neg())
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			slog.Warn("Rejected payment has no balance record", "paymentId", paymentID, "userId", payment.UserID)
		case err != nil:
			return fmt.Errorf("failed to lower pending balance: %w", err)
		default:
			result.Balance = balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Payment rejected", "paymentId", paymentID, "userId", result.Payment.UserID, "reason", result.Payment.RejectionReason, "rejectedBy", actorID(actor))
	return &result, nil
}

func (s *PaymentServiceImpl) loadPending(ctx context.Context, id primitive.ObjectID) (*models.PaymentRequest, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load payment request: %w", err)
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, ErrAlreadyProcessed
	}
	return payment, nil
}

func (s *PaymentServiceImpl) settle(ctx context.Context, id primitive.ObjectID, decision models.PaymentDecision) (*models.PaymentRequest, error) {
	settled, err := s.paymentRepo.Settle(ctx, id, decision)
	switch {
	case errors.Is(err, repositories.ErrStatusConflict):
		return nil, ErrAlreadyProcessed
	case errors.Is(err, repositories.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	return settled, nil
}

// GetBalance returns the user's balance. A user without a record gets an
// all-zero snapshot that is not stored; records are only created by a payment
// request or a purchase.
func (s *PaymentServiceImpl) GetBalance(ctx context.Context, userID string, profile models.UserProfile) (*models.BalanceRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId", "user ID is required")
	}
	balance, err := s.balanceRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.BalanceRecord{
			UserID:           userID,
			Email:            profile.Email,
			DisplayName:      profile.DisplayName,
			AvailableBalance: decimal.Zero,
			PendingBalance:   decimal.Zero,
			TotalAdded:       decimal.Zero,
			TotalSpent:       decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return balance, nil
}

func (s *PaymentServiceImpl) ListByUser(ctx context.Context, userID string) ([]*models.PaymentRequest, error) {
	return s.paymentRepo.FindByUserID(ctx, userID)
}

// ListPending returns the approval queue, oldest first.
func (s *PaymentServiceImpl) ListPending(ctx context.Context) ([]*models.PaymentRequest, error) {
	return s.paymentRepo.FindByStatus(ctx, models.PaymentStatusPending)
}

func (s *PaymentServiceImpl) ListByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.PaymentRequest, error) {
	if !status.Valid() {
		return nil, invalid("status", "status must be pending, approved or rejected")
	}
	return s.paymentRepo.FindByStatus(ctx, status)
}

func (s *PaymentServiceImpl) ListUsers(ctx context.Context) ([]*models.BalanceRecord, error) {
	return s.balanceRepo.FindAll(ctx)
}

// Stats totals every balance record and counts the approval queue.
func (s *PaymentServiceImpl) Stats(ctx context.Context) (*models.LedgerSummary, error) {
	summary, err := s.balanceRepo.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize balances: %w", err)
	}
	pending, _, err := s.paymentRepo.CountByStatus(ctx, models.PaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending payments: %w", err)
	}
	summary.PendingCount = pending
	return summary, nil
}

func actorID(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}

func actorName(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	if actor.Name != "" {
		return actor.Name
	}
	return actor.ID
}
