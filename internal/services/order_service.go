package services

import (
	"context"
	"fmt"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories"
)

const (
	DefaultOrderPageLimit = 10
	MaxOrderPageLimit     = 100

	// MaxOrderPage keeps the skip offset (page-1)*limit well inside int range.
	MaxOrderPage = 100000
)

// Compile-time check to ensure OrderServiceImpl implements OrderService
var _ OrderService = (*OrderServiceImpl)(nil)

type OrderServiceImpl struct {
	purchaseRepo repositories.PurchaseRepository
}

func NewOrderService(purchaseRepo repositories.PurchaseRepository) *OrderServiceImpl {
	return &OrderServiceImpl{purchaseRepo: purchaseRepo}
}

// ListByUser returns one page of the user's orders, newest first.
func (s *OrderServiceImpl) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Purchase, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxOrderPage {
		page = MaxOrderPage
	}
	if limit < 1 {
		limit = DefaultOrderPageLimit
	}
	if limit > MaxOrderPageLimit {
		limit = MaxOrderPageLimit
	}

	orders, total, err := s.purchaseRepo.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, models.NewPagination(page, limit, total), nil
}

func (s *OrderServiceImpl) Stats(ctx context.Context, userID string) (*models.OrderStats, error) {
	stats, err := s.purchaseRepo.StatsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}
	return stats, nil
}
