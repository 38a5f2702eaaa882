package services

import (
	"context"
	"math"
	"testing"

	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_ListByUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fund(t, store, "u1", "1000")
	purchases := NewPurchaseService(store, store.Balances(), store.Purchases(), nil, decimal.Zero)
	for i := 0; i < 12; i++ {
		_, err := purchases.Purchase(ctx, purchaseInput("u1", 1, "10"))
		require.NoError(t, err)
	}

	svc := NewOrderService(store.Purchases())

	orders, page, err := svc.ListByUser(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, orders, DefaultOrderPageLimit)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 10, Total: 12, TotalPages: 2, HasNext: true, HasPrev: false}, page)

	orders, page, err = svc.ListByUser(ctx, "u1", 2, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)

	_, page, err = svc.ListByUser(ctx, "u1", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxOrderPageLimit, page.Limit)

	orders, page, err = svc.ListByUser(ctx, "u1", math.MaxInt, MaxOrderPageLimit)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, MaxOrderPage, page.Page)
	assert.Equal(t, int64(12), page.Total)
	assert.False(t, page.HasNext)

	orders, page, err = svc.ListByUser(ctx, "nobody", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
	assert.Equal(t, int64(0), page.TotalPages)
}

func TestOrderService_Stats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fund(t, store, "u1", "100")
	purchases := NewPurchaseService(store, store.Balances(), store.Purchases(), nil, decimal.Zero)

	_, err := purchases.Purchase(ctx, purchaseInput("u1", 2, "15.50"))
	require.NoError(t, err)
	_, err = purchases.Purchase(ctx, purchaseInput("u1", 1, "20"))
	require.NoError(t, err)

	stats, err := NewOrderService(store.Purchases()).Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.CompletedOrders)
	assert.True(t, stats.TotalSpent.Equal(dec("51")))
	require.NotNil(t, stats.LastOrderAt)

	empty, err := NewOrderService(store.Purchases()).Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalOrders)
	assert.Nil(t, empty.LastOrderAt)
}
