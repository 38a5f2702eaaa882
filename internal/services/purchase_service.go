package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"github.com/metagameshop/shop-backend/internal/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PurchaseServiceImpl implements PurchaseService
var _ PurchaseService = (*PurchaseServiceImpl)(nil)

// PurchaseInput is a buy order paid from available balance. TotalAmount is
// the client's own total; when set it must match UnitPrice x Quantity.
type PurchaseInput struct {
	UserID      string
	UserEmail   string
	UserName    string
	ProductID   string
	ProductName string
	Category    string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalAmount *decimal.Decimal
	Fulfillment models.FulfillmentInfo
}

// PurchaseResult is a committed order with the balance around the debit.
type PurchaseResult struct {
	Purchase        *models.Purchase
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

type PurchaseServiceImpl struct {
	tx           repositories.Transactor
	balanceRepo  repositories.BalanceRepository
	purchaseRepo repositories.PurchaseRepository
	notifier     PurchaseNotifier
	signupCredit decimal.Decimal
}

// NewPurchaseService wires the purchase workflow. notifier may be nil.
func NewPurchaseService(tx repositories.Transactor, balanceRepo repositories.BalanceRepository, purchaseRepo repositories.PurchaseRepository, notifier PurchaseNotifier, signupCredit decimal.Decimal) *PurchaseServiceImpl {
	return &PurchaseServiceImpl{
		tx:           tx,
		balanceRepo:  balanceRepo,
		purchaseRepo: purchaseRepo,
		notifier:     notifier,
		signupCredit: signupCredit,
	}
}

// Purchase debits the order total and records a completed order in one unit
// of work. No order is written when the balance is short.
func (s *PurchaseServiceImpl) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	total, err := validatePurchase(input)
	if err != nil {
		return nil, err
	}

	profile := models.UserProfile{Email: input.UserEmail, DisplayName: input.UserName}
	var result PurchaseResult

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		balance, err := s.balanceRepo.GetOrCreate(ctx, input.UserID, profile, s.signupCredit)
		if err != nil {
			return fmt.Errorf("failed to load balance: %w", err)
		}
		if balance.AvailableBalance.LessThan(total) {
			return &InsufficientBalanceError{Available: balance.AvailableBalance, Required: total}
		}

		debited, err := s.balanceRepo.Debit(ctx, input.UserID, total)
		if errors.Is(err, repositories.ErrInsufficientFunds) {
			// Lost a race with another debit since the read above.
			available := decimal.Zero
			if current, findErr := s.balanceRepo.FindByUserID(ctx, input.UserID); findErr == nil {
				available = current.AvailableBalance
			}
			return &InsufficientBalanceError{Available: available, Required: total}
		}
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}

		purchase := &models.Purchase{
			OrderID:         utils.GenerateOrderID(),
			UserID:          input.UserID,
			UserEmail:       input.UserEmail,
			ProductID:       strings.TrimSpace(input.ProductID),
			ProductName:     strings.TrimSpace(input.ProductName),
			Category:        strings.TrimSpace(input.Category),
			Quantity:        input.Quantity,
			UnitPrice:       input.UnitPrice,
			TotalAmount:     total,
			FulfillmentInfo: input.Fulfillment,
			Status:          models.PurchaseStatusCompleted,
			PaymentMethod:   models.PaymentMethodBalance,
			PreviousBalance: debited.AvailableBalance.Add(total),
			NewBalance:      debited.AvailableBalance,
		}
		if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		result = PurchaseResult{
			Purchase:        purchase,
			PreviousBalance: purchase.PreviousBalance,
			NewBalance:      purchase.NewBalance,
		}
		return nil
	})
	if err != nil {
		var short *InsufficientBalanceError
		if errors.As(err, &short) {
			slog.Info("Purchase declined", "userId", input.UserID, "required", short.Required.String(), "available", short.Available.String())
		}
		return nil, err
	}

	slog.Info("Purchase completed", "orderId", result.Purchase.OrderID, "userId", input.UserID, "amount", total.String(), "newBalance", result.NewBalance.String())

	if s.notifier != nil {
		s.notifier.PurchaseCompleted(result.Purchase, result.PreviousBalance, result.NewBalance)
	}
	return &result, nil
}

func validatePurchase(input PurchaseInput) (decimal.Decimal, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return decimal.Zero, invalid("userId", "user ID is required")
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return decimal.Zero, invalid("productName", "product name is required")
	}
	if input.Quantity < 1 {
		return decimal.Zero, invalid("quantity", "quantity must be at least 1")
	}
	if err := checkMoney("unitPrice", input.UnitPrice); err != nil {
		return decimal.Zero, err
	}
	if strings.TrimSpace(input.Fulfillment.PlayerID) == "" {
		return decimal.Zero, invalid("playerId", "player ID is required")
	}
	if n := input.Fulfillment.ContactNumber; n != "" && !IsValidMobileNumber(n) {
		return decimal.Zero, invalid("contactNumber", "invalid contact number")
	}

	total := input.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
	if err := checkMoney("totalAmount", total); err != nil {
		return decimal.Zero, err
	}
	if input.TotalAmount != nil && !input.TotalAmount.Equal(total) {
		return decimal.Zero, invalid("totalAmount", "total amount %s does not match unit price x quantity (%s)",
			input.TotalAmount.String(), total.String())
	}
	return total, nil
}
