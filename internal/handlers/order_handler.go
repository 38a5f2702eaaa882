package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/services"
)

// OrderHandler handles order history endpoints
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// GetUserOrders handles GET /orders/user/:userId
func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultOrderPageLimit)))
	if err != nil || limit < 1 {
		limit = services.DefaultOrderPageLimit
	}

	orders, pagination, err := h.orderService.ListByUser(c.Request.Context(), c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"orders":     orders,
		"pagination": pagination,
	})
}

// GetUserOrderStats handles GET /orders/user/:userId/stats
func (h *OrderHandler) GetUserOrderStats(c *gin.Context) {
	stats, err := h.orderService.Stats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}
