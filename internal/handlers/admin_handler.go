package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/internal/middleware"
	"github.com/metagameshop/shop-backend/internal/models"
	"github.com/metagameshop/shop-backend/internal/services"
)

// AdminHandler handles payment verification and ledger overview endpoints
type AdminHandler struct {
	paymentService services.PaymentService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(paymentService services.PaymentService) *AdminHandler {
	return &AdminHandler{
		paymentService: paymentService,
	}
}

// RejectPaymentRequest is the body of PUT /admin/reject-payment/:paymentId
type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}

// ApprovePayment handles PUT /admin/approve-payment/:paymentId
func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	result, err := h.paymentService.Approve(c.Request.Context(), c.Param("paymentId"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment approved",
		"payment": result.Payment,
		"balance": result.Balance,
	})
}

// RejectPayment handles PUT /admin/reject-payment/:paymentId
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	var req RejectPaymentRequest
	// The reason is optional, so an empty body is accepted.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
	}

	actor := middleware.ActorFromContext(c)
	result, err := h.paymentService.Reject(c.Request.Context(), c.Param("paymentId"), actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment rejected",
		"payment": result.Payment,
	})
}

// GetUsers handles GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.paymentService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
		"count":   len(users),
	})
}

// GetStats handles GET /admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.paymentService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// GetPayments handles GET /admin/payments?status=pending
func (h *AdminHandler) GetPayments(c *gin.Context) {
	status := models.PaymentStatus(c.DefaultQuery("status", string(models.PaymentStatusPending)))
	payments, err := h.paymentService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"status":   status,
		"payments": payments,
		"count":    len(payments),
	})
}
